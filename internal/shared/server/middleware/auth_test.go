package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verifycert-backend/internal/shared/auth"
)

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth("/api/v1/verify/", "/api/v1/health"))
	router.GET("/api/v1/templates", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"admin": AdminIDFromContext(c), "email": AdminEmailFromContext(c)})
	})
	router.GET("/api/v1/verify/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"admin": AdminIDFromContext(c)})
	})
	router.OPTIONS("/api/v1/templates", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestAuthAllowsOptionsWithoutIdentity(t *testing.T) {
	router := newAuthRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/templates", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func TestAuthRejectsMissingToken(t *testing.T) {
	router := newAuthRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/templates", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), `"unauthorized"`)
}

func TestAuthRejectsGarbageToken(t *testing.T) {
	router := newAuthRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/templates", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthAcceptsValidToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	router := newAuthRouter()
	token, err := auth.SignJWT(auth.Claims{Email: "a@example.com", RegisteredClaims: jwt.RegisteredClaims{Subject: "admin-7"}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/templates", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"admin":"admin-7"`)
	assert.Contains(t, resp.Body.String(), `"email":"a@example.com"`)
}

func TestAuthSkipsPublicPaths(t *testing.T) {
	router := newAuthRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/verify/abc", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
}
