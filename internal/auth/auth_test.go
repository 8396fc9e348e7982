package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	key    = "test-key"
	issuer = "college-test"
)

func TestIssueAndParse(t *testing.T) {
	tok, err := Issue("rao@x.edu", "faculty", issuer, key, time.Minute)
	require.NoError(t, err)

	claims, err := Parse(tok, key, issuer)
	require.NoError(t, err)
	assert.Equal(t, "rao@x.edu", claims.Email)
	assert.Equal(t, "faculty", claims.Role)

	_, err = Parse(tok, "other-key", issuer)
	assert.Error(t, err)
	_, err = Parse(tok, key, "someone-else")
	assert.Error(t, err)

	expired, err := Issue("rao@x.edu", "faculty", issuer, key, -time.Minute)
	require.NoError(t, err)
	_, err = Parse(expired, key, issuer)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", RequireUser(key, issuer), RequireRole("admin"), func(c *gin.Context) {
		claims, _ := FromContext(c)
		c.String(http.StatusOK, claims.Email)
	})

	do := func(authz string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, do("").Code)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer garbage").Code)

	faculty, _ := Issue("rao@x.edu", "faculty", issuer, key, time.Minute)
	w := do("Bearer " + faculty)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "PERMISSION_DENIED")

	admin, _ := Issue("head@x.edu", "admin", issuer, key, time.Minute)
	w = do("bearer " + admin)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "head@x.edu", w.Body.String())
}
