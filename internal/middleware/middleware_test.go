package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/resource-allocator/internal/models"
	"github.com/noah-isme/resource-allocator/internal/service"
)

func signToken(t *testing.T, secret string, claims models.JWTClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func hodClaims(issuer string, expires time.Time) models.JWTClaims {
	return models.JWTClaims{
		UserID:       "u-1",
		Role:         models.RoleHOD,
		DepartmentID: "cse",
		FacultyID:    "f-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
}

func protectedRouter(verifier *TokenVerifier, roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", JWT(verifier), RequireRoles(roles...), func(c *gin.Context) {
		claims := c.MustGet(ContextUserKey).(*models.JWTClaims)
		c.String(http.StatusOK, claims.DepartmentID)
	})
	return r
}

func callProtected(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAcceptsValidToken(t *testing.T) {
	verifier := NewTokenVerifier("secret", "identity")
	r := protectedRouter(verifier, models.RoleHOD, models.RolePrincipal)

	w := callProtected(r, "Bearer "+signToken(t, "secret", hodClaims("identity", time.Now().Add(time.Hour))))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cse", w.Body.String())
}

func TestJWTRejectsBadTokens(t *testing.T) {
	verifier := NewTokenVerifier("secret", "identity")
	r := protectedRouter(verifier, models.RoleHOD)

	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic abc",
		"wrong secret":   "Bearer " + signToken(t, "other", hodClaims("identity", time.Now().Add(time.Hour))),
		"expired":        "Bearer " + signToken(t, "secret", hodClaims("identity", time.Now().Add(-time.Hour))),
		"wrong issuer":   "Bearer " + signToken(t, "secret", hodClaims("elsewhere", time.Now().Add(time.Hour))),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, callProtected(r, header).Code)
		})
	}
}

func TestRequireRolesForbidsOtherRoles(t *testing.T) {
	verifier := NewTokenVerifier("secret", "")
	r := protectedRouter(verifier, models.RoleFaculty)

	w := callProtected(r, "Bearer "+signToken(t, "secret", hodClaims("anyone", time.Now().Add(time.Hour))))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMetricsMiddlewareRecordsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/exams/:id/seating", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/exams/exam-1/seating", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint64(1), metrics.Snapshot().RequestsTotal)
}
