package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/agentbank/ledger_backend/utils"
	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
)

func signedToken(t *testing.T, secret string, claims utils.JwtCustomClaim) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CorrelationMiddleware(), AuthMiddleware())
	r.GET("/whoami", func(c *gin.Context) {
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())
		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"user": userId, "admin": IsAdmin(c), "cid": cid})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	t.Setenv("API_SECRET", "test-secret")
	r := newAuthRouter()

	valid := signedToken(t, "test-secret", utils.JwtCustomClaim{
		Role:           "agent",
		StandardClaims: jwt.StandardClaims{Subject: "user-1", ExpiresAt: time.Now().Add(time.Hour).Unix()},
	})
	otherSecret := signedToken(t, "other", utils.JwtCustomClaim{
		StandardClaims: jwt.StandardClaims{Subject: "user-1"},
	})
	expired := signedToken(t, "test-secret", utils.JwtCustomClaim{
		StandardClaims: jwt.StandardClaims{Subject: "user-1", ExpiresAt: time.Now().Add(-time.Hour).Unix()},
	})
	noSubject := signedToken(t, "test-secret", utils.JwtCustomClaim{})

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + valid, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", valid, http.StatusUnauthorized},
		{"wrong secret", "Bearer " + otherSecret, http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"no subject", "Bearer " + noSubject, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			req.Header.Set("x-correlation-id", "cid-1")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d (%s)", tc.want, w.Code, w.Body.String())
			}
			if w.Header().Get("x-correlation-id") != "cid-1" {
				t.Fatalf("correlation id not echoed")
			}
		})
	}
}
