package store

import (
	"testing"

	"github.com/mhollis/keyturn/internal/model"
)

func TestUserCreateAndGet(t *testing.T) {
	us := NewUserStore(setupTestDB(t))

	u, err := us.Create("alice@example.com", "Alice", model.RoleAdmin)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Role != model.RoleAdmin {
		t.Errorf("role = %q, want admin", u.Role)
	}

	got, err := us.GetByEmail("alice@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got == nil || got.ID != u.ID {
		t.Fatalf("expected user %d, got %v", u.ID, got)
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	us := NewUserStore(setupTestDB(t))

	if _, err := us.Create("alice@example.com", "Alice", model.RoleTenant); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := us.Create("alice@example.com", "Other Alice", model.RoleTenant)
	if err != ErrDuplicateKey {
		t.Errorf("err = %v, want ErrDuplicateKey", err)
	}
}

func TestUserGetByEmailNotFound(t *testing.T) {
	us := NewUserStore(setupTestDB(t))

	got, err := us.GetByEmail("nobody@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got != nil {
		t.Error("expected nil for unknown email")
	}
}

func TestUserRejectsUnknownStoredRole(t *testing.T) {
	db := setupTestDB(t)
	us := NewUserStore(db)

	u, _ := us.Create("alice@example.com", "Alice", model.RoleTenant)
	db.Exec(`UPDATE users SET role = 'superuser' WHERE id = ?`, u.ID)

	if _, err := us.GetByID(u.ID); err == nil {
		t.Error("expected error for unparseable stored role")
	}
}
