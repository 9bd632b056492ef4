package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-project-tracker/internal/application"
	"github.com/oksasatya/go-project-tracker/pkg/response"
	"github.com/oksasatya/go-project-tracker/pkg/validation"
)

// statusFor maps an application error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, application.ErrBadRequest),
		errors.Is(err, application.ErrConflict),
		errors.Is(err, application.ErrInvalidCredentials),
		errors.Is(err, application.ErrInvalidOrExpired):
		return http.StatusBadRequest
	case errors.Is(err, application.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, application.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. notFound overrides the status used for
// ErrNotFound (login style flows answer 400 for unknown users).
func writeError(c *gin.Context, logger *logrus.Logger, err error, notFound ...int) {
	status := statusFor(err)
	if status == http.StatusNotFound && len(notFound) > 0 {
		status = notFound[0]
	}
	if status == http.StatusInternalServerError {
		msg := "Server Error"
		if errors.Is(err, application.ErrDelivery) {
			msg = application.Message(application.ErrDelivery)
		}
		if logger != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"path":       c.FullPath(),
				"request_id": c.GetString("request_id"),
			}).Error("request failed")
		}
		response.Error[any](c, status, msg, nil)
		return
	}
	response.Error[any](c, status, application.Message(err), nil)
}

func bindError(c *gin.Context, err error) {
	response.Error[any](c, http.StatusBadRequest, "Invalid payload", validation.ToDetails(err))
}
