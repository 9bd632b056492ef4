package router

import "github.com/gin-gonic/gin"

// Module mounts one feature's routes on the /api group.
type Module interface {
	Register(api *gin.RouterGroup)
}

// ModuleFunc lets a plain function act as a Module.
type ModuleFunc func(api *gin.RouterGroup)

func (f ModuleFunc) Register(api *gin.RouterGroup) { f(api) }
