package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-project-tracker/internal/application"
	"github.com/oksasatya/go-project-tracker/internal/domain/entity"
)

type stubAuth struct {
	users map[string]*entity.User
	err   error
}

func (s stubAuth) Authenticate(_ context.Context, token string) (*entity.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[token]
	if !ok {
		return nil, application.ErrUnauthorized
	}
	return u, nil
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

func serve(t *testing.T, r *gin.Engine, method, path, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return w, body
}

func guarded(auth Authenticator, roles ...entity.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chain := []gin.HandlerFunc{Protect(auth)}
	if len(roles) > 0 {
		chain = append(chain, AuthorisedRoles(roles...))
	}
	chain = append(chain, func(c *gin.Context) {
		u, _ := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"success": true, "data": u.ID + ":" + c.GetString(CtxUserIDKey)})
	})
	r.GET("/p", chain...)
	return r
}

func TestProtect(t *testing.T) {
	auth := stubAuth{users: map[string]*entity.User{"good": {ID: "u1", Role: entity.RoleDeveloper}}}
	r := guarded(auth)

	w, body := serve(t, r, http.MethodGet, "/p", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Not authorized, no token provided", body.Message)

	w, body = serve(t, r, http.MethodGet, "/p", "bad")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Not authorized, token failed or expired", body.Message)

	w, body = serve(t, r, http.MethodGet, "/p", "good")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1:u1", body.Data)
}

func TestProtectRejectsNonBearer(t *testing.T) {
	r := guarded(stubAuth{})
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "no token provided")
}

func TestProtectUserGone(t *testing.T) {
	w, body := serve(t, guarded(stubAuth{err: application.ErrTokenUserGone}), http.MethodGet, "/p", "tok")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "User not found, invalid token", body.Message)
}

func TestProtectStoreFailure(t *testing.T) {
	w, body := serve(t, guarded(stubAuth{err: errors.New("mongo down")}), http.MethodGet, "/p", "tok")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Server Error", body.Message)
}

func TestAuthorisedRoles(t *testing.T) {
	auth := stubAuth{users: map[string]*entity.User{
		"dev":   {ID: "d", Role: entity.RoleDeveloper},
		"admin": {ID: "a", Role: entity.RoleAdmin},
		"pm":    {ID: "p", Role: entity.RoleProjectManager},
	}}
	r := guarded(auth, entity.RoleAdmin, entity.RoleProjectManager)

	w, body := serve(t, r, http.MethodGet, "/p", "dev")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Access denied: requires one of the following roles: Admin, ProjectManager", body.Message)

	for _, tok := range []string{"admin", "pm"} {
		w, _ = serve(t, r, http.MethodGet, "/p", tok)
		assert.Equal(t, http.StatusOK, w.Code, tok)
	}
}

func TestAuthorisedRolesWithoutUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/p", AuthorisedRoles(entity.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	w, body := serve(t, r, http.MethodGet, "/p", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Not authorized, user missing", body.Message)
}
