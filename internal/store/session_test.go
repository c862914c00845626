package store

import (
	"testing"

	"github.com/mhollis/keyturn/internal/model"
)

func TestSessionCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	us := NewUserStore(db)
	ss := NewSessionStore(db)

	u, _ := us.Create("alice@example.com", "Alice", model.RoleOwner)
	sess, err := ss.Create(u.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if len(sess.Token) != 64 {
		t.Errorf("token length = %d, want 64", len(sess.Token))
	}

	got, err := ss.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got == nil || got.UserID != u.ID {
		t.Fatalf("expected session for user %d, got %v", u.ID, got)
	}
}

func TestSessionGetByTokenInvalid(t *testing.T) {
	ss := NewSessionStore(setupTestDB(t))

	got, err := ss.GetByToken("bogus")
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got != nil {
		t.Error("expected nil for unknown token")
	}
}

func TestSessionDelete(t *testing.T) {
	db := setupTestDB(t)
	us := NewUserStore(db)
	ss := NewSessionStore(db)

	u, _ := us.Create("alice@example.com", "Alice", model.RoleOwner)
	sess, _ := ss.Create(u.ID)

	if err := ss.Delete(sess.Token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if got, _ := ss.GetByToken(sess.Token); got != nil {
		t.Error("expected session to be gone")
	}
}

func TestSessionDeleteExpired(t *testing.T) {
	db := setupTestDB(t)
	us := NewUserStore(db)
	ss := NewSessionStore(db)

	u, _ := us.Create("alice@example.com", "Alice", model.RoleOwner)
	sess, _ := ss.Create(u.ID)
	db.Exec(`UPDATE sessions SET expires_at = datetime('now', '-1 hour') WHERE id = ?`, sess.ID)

	n, err := ss.DeleteExpired()
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
}
