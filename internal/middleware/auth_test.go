package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fellowship_backend/internal/config"
	"fellowship_backend/internal/model"
	"fellowship_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "middleware-test-secret-0123456789abcdef"

func token(t *testing.T, role model.UserRole) string {
	t.Helper()
	user := &model.User{Username: "ada", Role: role}
	user.ID = 7
	tok, err := util.GenerateJWT(user, secret, time.Hour)
	require.NoError(t, err)
	return tok
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		if user == nil {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, string(user.Role))
	})
	r.GET("/", handlers...)
	return r
}

func do(r *gin.Engine, target, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: secret}}
	r := newRouter(AuthMiddleware(cfg))

	w := do(r, "/", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, "/", "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, "/", token(t, model.Member))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "member", w.Body.String())

	w = do(r, "/?token="+token(t, model.Exec), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "exec", w.Body.String())

	other := &config.Config{JWT: config.JWTConfig{Secret: "some-other-secret-0123456789abcdef"}}
	w = do(newRouter(AuthMiddleware(other)), "/", token(t, model.Member))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalAuth(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: secret}}
	r := newRouter(OptionalAuth(cfg))

	assert.Equal(t, "anonymous", do(r, "/", "").Body.String())
	assert.Equal(t, "anonymous", do(r, "/", "garbage").Body.String())
	assert.Equal(t, "admin", do(r, "/", token(t, model.Admin)).Body.String())
}

func TestRoleMiddleware(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: secret}}
	r := newRouter(AuthMiddleware(cfg), StaffOnly())

	cases := map[model.UserRole]int{
		model.Member: http.StatusForbidden,
		model.Exec:   http.StatusOK,
		model.Admin:  http.StatusOK,
	}
	for role, want := range cases {
		assert.Equal(t, want, do(r, "/", token(t, role)).Code, role)
	}

	adminOnly := newRouter(AuthMiddleware(cfg), RoleMiddleware(model.Admin))
	assert.Equal(t, http.StatusForbidden, do(adminOnly, "/", token(t, model.Exec)).Code)

	noAuth := newRouter(RoleMiddleware(model.Admin))
	assert.Equal(t, http.StatusUnauthorized, do(noAuth, "/", "").Code)
}

func TestUserRateKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var keys []string
	cfg := &config.Config{JWT: config.JWTConfig{Secret: secret}}
	r := gin.New()
	r.GET("/", OptionalAuth(cfg), func(c *gin.Context) {
		keys = append(keys, UserRateKey(c))
		c.Status(http.StatusOK)
	})

	do(r, "/", token(t, model.Member))
	do(r, "/", "")

	require.Len(t, keys, 2)
	assert.Equal(t, "user:7", keys[0])
	assert.Equal(t, "ip:192.0.2.1", keys[1])
}
