package store

import (
	"testing"
	"time"

	"github.com/mhollis/keyturn/internal/model"
)

func TestTokenInsertAndGet(t *testing.T) {
	ts := NewTokenStore(setupTestDB(t))
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	created, err := ts.Insert("tok-abc", "alice@example.com", model.PurposeLogin, nil, now.Add(15*time.Minute), now)
	if err != nil {
		t.Fatalf("insert token: %v", err)
	}
	if created.Value != "tok-abc" {
		t.Errorf("value = %q, want %q", created.Value, "tok-abc")
	}
	if created.UsedAt != nil {
		t.Error("expected fresh token to be unused")
	}

	got, err := ts.GetByValue("tok-abc")
	if err != nil {
		t.Fatalf("get by value: %v", err)
	}
	if got == nil {
		t.Fatal("expected token, got nil")
	}
	if got.Subject != "alice@example.com" {
		t.Errorf("subject = %q, want alice@example.com", got.Subject)
	}
	if got.Purpose != model.PurposeLogin {
		t.Errorf("purpose = %q, want login", got.Purpose)
	}
}

func TestTokenGetByValueNotFound(t *testing.T) {
	ts := NewTokenStore(setupTestDB(t))

	got, err := ts.GetByValue("nope")
	if err != nil {
		t.Fatalf("get by value: %v", err)
	}
	if got != nil {
		t.Error("expected nil for missing token")
	}
}

func TestTokenInsertDuplicateValue(t *testing.T) {
	ts := NewTokenStore(setupTestDB(t))
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	if _, err := ts.Insert("same", "a@example.com", model.PurposeLogin, nil, now.Add(time.Hour), now); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err := ts.Insert("same", "b@example.com", model.PurposeLogin, nil, now.Add(time.Hour), now)
	if err != ErrDuplicateKey {
		t.Errorf("err = %v, want ErrDuplicateKey", err)
	}
}

func TestTokenConsumeIfUnused(t *testing.T) {
	ts := NewTokenStore(setupTestDB(t))
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	ts.Insert("tok-cas", "alice@example.com", model.PurposeLogin, nil, now.Add(time.Hour), now)

	won, err := ts.ConsumeIfUnused("tok-cas", now)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if !won {
		t.Fatal("expected first consume to win")
	}

	won, err = ts.ConsumeIfUnused("tok-cas", now.Add(time.Second))
	if err != nil {
		t.Fatalf("second consume: %v", err)
	}
	if won {
		t.Error("expected second consume to lose")
	}

	got, _ := ts.GetByValue("tok-cas")
	if got.UsedAt == nil {
		t.Error("expected used_at to be set")
	}
}

func TestTokenInvalidatePending(t *testing.T) {
	ts := NewTokenStore(setupTestDB(t))
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	ts.Insert("old-login", "alice@example.com", model.PurposeLogin, nil, now.Add(time.Hour), now)
	ts.Insert("other-purpose", "alice@example.com", model.PurposeInvite, nil, now.Add(time.Hour), now)
	ts.Insert("other-subject", "bob@example.com", model.PurposeLogin, nil, now.Add(time.Hour), now)

	n, err := ts.InvalidatePending("alice@example.com", model.PurposeLogin, now)
	if err != nil {
		t.Fatalf("invalidate pending: %v", err)
	}
	if n != 1 {
		t.Errorf("invalidated = %d, want 1", n)
	}

	old, _ := ts.GetByValue("old-login")
	if old.UsedAt == nil {
		t.Error("expected superseded token to be consumed")
	}
	invite, _ := ts.GetByValue("other-purpose")
	if invite.UsedAt != nil {
		t.Error("invite token should be untouched")
	}
	bob, _ := ts.GetByValue("other-subject")
	if bob.UsedAt != nil {
		t.Error("other subject's token should be untouched")
	}
}

func TestTokenDeleteExpired(t *testing.T) {
	ts := NewTokenStore(setupTestDB(t))
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	ts.Insert("expired", "alice@example.com", model.PurposeLogin, nil, now.Add(-time.Minute), now.Add(-time.Hour))
	ts.Insert("live", "alice@example.com", model.PurposeInvite, nil, now.Add(time.Hour), now)

	n, err := ts.DeleteExpired(now)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}

	if got, _ := ts.GetByValue("expired"); got != nil {
		t.Error("expired token should be gone")
	}
	if got, _ := ts.GetByValue("live"); got == nil {
		t.Error("live token should remain")
	}
}
