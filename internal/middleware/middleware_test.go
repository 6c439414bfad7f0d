package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"reportify-backend-go/internal/core"
	"reportify-backend-go/internal/db"
	"reportify-backend-go/internal/models"
)

type fakeVerifier struct {
	tokens map[string]string // token -> email
}

func (f fakeVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	email, ok := f.tokens[idToken]
	if !ok {
		return nil, errors.New("bad token")
	}
	return &auth.Token{UID: "uid-" + idToken, Claims: map[string]interface{}{"email": email}}, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextKeyEmail))
	})
	r.GET("/", handlers...)
	return r
}

func do(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestVerifyToken(t *testing.T) {
	mw := NewAuthMiddleware(fakeVerifier{tokens: map[string]string{"good": "  Ana@Example.com "}}, zap.NewNop())
	r := newRouter(mw.VerifyToken())

	w := do(r, "good")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ana@example.com", w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "forged").Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token good")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	store := db.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Users().Create(ctx, &models.User{Email: "admin@x.com", Role: models.RoleAdmin}))
	require.NoError(t, store.Users().Create(ctx, &models.User{Email: "cit@x.com", Role: models.RoleCitizen}))

	verifier := fakeVerifier{tokens: map[string]string{
		"admin":   "admin@x.com",
		"citizen": "cit@x.com",
		"ghost":   "ghost@x.com",
	}}
	authority := core.NewRoleAuthority(store.Users())
	logger := zap.NewNop()

	var seen core.Actor
	r := newRouter(
		NewAuthMiddleware(verifier, logger).VerifyToken(),
		RequireRole(authority, logger, models.RoleAdmin),
		func(c *gin.Context) {
			seen, _ = ActorFromContext(c)
			c.Next()
		},
	)

	assert.Equal(t, http.StatusOK, do(r, "admin").Code)
	assert.Equal(t, models.RoleAdmin, seen.Role)
	assert.Equal(t, http.StatusForbidden, do(r, "citizen").Code)
	assert.Equal(t, http.StatusForbidden, do(r, "ghost").Code)

	anyRole := newRouter(NewAuthMiddleware(verifier, logger).VerifyToken(), RequireRole(authority, logger))
	assert.Equal(t, http.StatusOK, do(anyRole, "citizen").Code)
	assert.Equal(t, http.StatusForbidden, do(anyRole, "ghost").Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2, zap.NewNop())
	r := newRouter(rl.Handler())

	assert.Equal(t, http.StatusOK, do(r, "").Code)
	assert.Equal(t, http.StatusOK, do(r, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, "").Code)

	assert.Equal(t, 0, rl.Cleanup(time.Hour))
	assert.Equal(t, 1, rl.Cleanup(-time.Second))
}

func TestRecoveryMiddleware(t *testing.T) {
	r := newRouter(RecoveryMiddleware(zap.NewNop()), func(c *gin.Context) { panic("boom") })
	w := do(r, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"message":"Internal Server Error"}`, w.Body.String())
}

func TestCORSMiddleware(t *testing.T) {
	r := newRouter(CORSMiddleware("http://localhost:5173/, https://reportify.app"))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://reportify.app")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://reportify.app", w.Header().Get("Access-Control-Allow-Origin"))
}
