package access

import (
	"testing"

	"github.com/budgetwise/budgetwise-api/internal/models"
	"github.com/google/uuid"
)

func TestCanAccess(t *testing.T) {
	owner := uuid.New()
	cases := []struct {
		name   string
		caller *models.User
		min    models.Role
		want   bool
	}{
		{name: "owner", caller: &models.User{ID: owner, Role: models.RoleBasic}, min: models.RoleServiceAccount, want: true},
		{name: "stranger basic", caller: &models.User{ID: uuid.New(), Role: models.RoleBasic}, min: models.RoleServiceAccount, want: false},
		{name: "service account", caller: &models.User{ID: uuid.New(), Role: models.RoleServiceAccount}, min: models.RoleServiceAccount, want: true},
		{name: "admin", caller: &models.User{ID: uuid.New(), Role: models.RoleAdmin}, min: models.RoleServiceAccount, want: true},
		{name: "service below admin", caller: &models.User{ID: uuid.New(), Role: models.RoleServiceAccount}, min: models.RoleAdmin, want: false},
		{name: "nil caller", caller: nil, min: models.RoleBasic, want: false},
	}
	for _, tc := range cases {
		if got := CanAccess(tc.caller, owner, tc.min); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestOwnerOnly_NoEscalation(t *testing.T) {
	owner := uuid.New()
	admin := &models.User{ID: uuid.New(), Role: models.RoleAdmin}
	if OwnerOnly(admin, owner) {
		t.Fatalf("expected admin to be rejected by owner-only policy")
	}
	if !OwnerOnly(&models.User{ID: owner}, owner) {
		t.Fatalf("expected owner to pass")
	}
}
