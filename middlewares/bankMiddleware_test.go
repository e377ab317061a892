package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agentbank/ledger_backend/models"
	"github.com/gin-gonic/gin"
)

func TestMemberRole(t *testing.T) {
	bank := &models.Bank{OwnerId: "owner-1"}
	staff := &models.BankMember{UserId: "staff-1", Role: models.BankMemberRoleUser}

	cases := []struct {
		name   string
		member *models.BankMember
		userId string
		admin  bool
		want   models.BankMemberRole
		ok     bool
	}{
		{"member operator", staff, "staff-1", false, models.BankMemberRoleUser, true},
		{"creator without row", nil, "owner-1", false, models.BankMemberRoleOwner, true},
		{"admin", nil, "someone", true, models.BankMemberRoleOwner, true},
		{"stranger", nil, "someone", false, "", false},
		{"anonymous", nil, "", false, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			role, ok := memberRole(bank, tc.member, tc.userId, tc.admin)
			if ok != tc.ok || role != tc.want {
				t.Fatalf("expected (%q, %v), got (%q, %v)", tc.want, tc.ok, role, ok)
			}
		})
	}
}

func TestRequireBankOwner(t *testing.T) {
	gin.SetMode(gin.TestMode)
	newRouter := func(role models.BankMemberRole) *gin.Engine {
		r := gin.New()
		r.POST("/reset", func(c *gin.Context) {
			c.Set(memberRoleKey, role)
			c.Next()
		}, RequireBankOwner(), func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})
		return r
	}

	cases := []struct {
		role models.BankMemberRole
		want int
	}{
		{models.BankMemberRoleOwner, http.StatusNoContent},
		{models.BankMemberRoleUser, http.StatusForbidden},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		newRouter(tc.role).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/reset", nil))
		if w.Code != tc.want {
			t.Fatalf("role %q: expected %d, got %d", tc.role, tc.want, w.Code)
		}
	}
}
