package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRequestKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name    string
		header  string
		bodyKey string
		want    string
	}{
		{"body wins", "from-header", "from-body", "from-body"},
		{"header fallback", "  from-header ", "", "from-header"},
		{"none", "", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodPost, "/api/banks/x/deposits", nil)
			if tc.header != "" {
				c.Request.Header.Set(idempotencyHeader, tc.header)
			}
			if got := requestKey(c, tc.bodyKey); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestCreatedStatus(t *testing.T) {
	if createdStatus(false) != http.StatusCreated {
		t.Fatal("first request should answer 201")
	}
	if createdStatus(true) != http.StatusOK {
		t.Fatal("replayed request should answer 200")
	}
}
