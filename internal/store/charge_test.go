package store

import (
	"testing"
	"time"

	"github.com/mhollis/keyturn/internal/model"
)

func TestChargeCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	lease := createTestLease(t, db, NewLease{})
	cs := NewChargeStore(db)

	due := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	c, err := cs.Create(lease.ID, model.ChargeRent, 150000, due, "rent:1:2026-08")
	if err != nil {
		t.Fatalf("create charge: %v", err)
	}
	if c.Status != model.ChargePending {
		t.Errorf("status = %q, want pending", c.Status)
	}
	if c.AmountPaidCents != 0 {
		t.Errorf("paid = %d, want 0", c.AmountPaidCents)
	}
	if c.IdempotencyKey == nil || *c.IdempotencyKey != "rent:1:2026-08" {
		t.Errorf("idempotency key = %v, want rent:1:2026-08", c.IdempotencyKey)
	}
	if c.Outstanding() != 150000 {
		t.Errorf("outstanding = %d, want 150000", c.Outstanding())
	}
}

func TestChargeCreateDuplicateKey(t *testing.T) {
	db := setupTestDB(t)
	lease := createTestLease(t, db, NewLease{})
	cs := NewChargeStore(db)

	due := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if _, err := cs.Create(lease.ID, model.ChargeLateFee, 5000, due, "latefee:1:2026-08"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := cs.Create(lease.ID, model.ChargeLateFee, 5000, due, "latefee:1:2026-08")
	if err != ErrDuplicateKey {
		t.Errorf("err = %v, want ErrDuplicateKey", err)
	}
}

func TestChargeCreateEmptyKeysDoNotCollide(t *testing.T) {
	db := setupTestDB(t)
	lease := createTestLease(t, db, NewLease{})
	cs := NewChargeStore(db)

	due := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if _, err := cs.Create(lease.ID, model.ChargeOther, 100, due, ""); err != nil {
		t.Fatalf("first unkeyed create: %v", err)
	}
	if _, err := cs.Create(lease.ID, model.ChargeOther, 200, due, ""); err != nil {
		t.Fatalf("second unkeyed create: %v", err)
	}
}

func TestChargeHasKey(t *testing.T) {
	db := setupTestDB(t)
	lease := createTestLease(t, db, NewLease{})
	cs := NewChargeStore(db)

	due := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	cs.Create(lease.ID, model.ChargeRent, 150000, due, "rent:x:2026-08")

	ok, err := cs.HasKey("rent:x:2026-08")
	if err != nil {
		t.Fatalf("has key: %v", err)
	}
	if !ok {
		t.Error("expected key to exist")
	}

	ok, _ = cs.HasKey("rent:x:2026-09")
	if ok {
		t.Error("expected missing key to report false")
	}
}

func TestChargeApplyPaymentPartialThenFull(t *testing.T) {
	db := setupTestDB(t)
	lease := createTestLease(t, db, NewLease{})
	cs := NewChargeStore(db)

	due := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	c, _ := cs.Create(lease.ID, model.ChargeRent, 100000, due, "")
	paidAt := due.Add(48 * time.Hour)

	c, err := cs.ApplyPayment(c.ID, 40000, model.PaymentManual, "", paidAt)
	if err != nil {
		t.Fatalf("partial payment: %v", err)
	}
	if c.Status == model.ChargePaid {
		t.Error("partial payment should not flip status to paid")
	}
	if c.Outstanding() != 60000 {
		t.Errorf("outstanding = %d, want 60000", c.Outstanding())
	}

	c, err = cs.ApplyPayment(c.ID, 60000, model.PaymentStripe, "cs_test_123", paidAt.Add(time.Hour))
	if err != nil {
		t.Fatalf("final payment: %v", err)
	}
	if c.Status != model.ChargePaid {
		t.Errorf("status = %q, want paid", c.Status)
	}
	if c.Outstanding() != 0 {
		t.Errorf("outstanding = %d, want 0", c.Outstanding())
	}

	payments, err := cs.ListPaymentsByCharge(c.ID)
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	if len(payments) != 2 {
		t.Fatalf("payments = %d, want 2", len(payments))
	}
	if payments[1].Method != model.PaymentStripe {
		t.Errorf("second method = %q, want stripe", payments[1].Method)
	}
	if payments[1].StripeSessionID == nil || *payments[1].StripeSessionID != "cs_test_123" {
		t.Errorf("stripe session = %v, want cs_test_123", payments[1].StripeSessionID)
	}
}

func TestChargeApplyPaymentRejectsNonPositive(t *testing.T) {
	db := setupTestDB(t)
	lease := createTestLease(t, db, NewLease{})
	cs := NewChargeStore(db)

	c, _ := cs.Create(lease.ID, model.ChargeRent, 100000, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), "")
	if _, err := cs.ApplyPayment(c.ID, 0, model.PaymentManual, "", time.Now()); err == nil {
		t.Error("expected error for zero payment")
	}
	if _, err := cs.ApplyPayment(c.ID, -100, model.PaymentManual, "", time.Now()); err == nil {
		t.Error("expected error for negative payment")
	}
}

func TestChargeHasStripeSession(t *testing.T) {
	db := setupTestDB(t)
	lease := createTestLease(t, db, NewLease{})
	cs := NewChargeStore(db)

	c, _ := cs.Create(lease.ID, model.ChargeRent, 100000, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), "")
	cs.ApplyPayment(c.ID, 100000, model.PaymentStripe, "cs_dup", time.Now().UTC())

	seen, err := cs.HasStripeSession("cs_dup")
	if err != nil {
		t.Fatalf("has stripe session: %v", err)
	}
	if !seen {
		t.Error("expected recorded session to be found")
	}
	if seen, _ := cs.HasStripeSession("cs_other"); seen {
		t.Error("expected unknown session to report false")
	}
}

func TestChargeListOpenByLease(t *testing.T) {
	db := setupTestDB(t)
	lease := createTestLease(t, db, NewLease{})
	cs := NewChargeStore(db)

	due := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	open, _ := cs.Create(lease.ID, model.ChargeRent, 100000, due, "")
	paid, _ := cs.Create(lease.ID, model.ChargeRent, 50000, due.AddDate(0, -1, 0), "")
	cs.ApplyPayment(paid.ID, 50000, model.PaymentManual, "", due)

	got, err := cs.ListOpenByLease(lease.ID)
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("open charges = %d, want 1", len(got))
	}
	if got[0].ID != open.ID {
		t.Errorf("open charge id = %d, want %d", got[0].ID, open.ID)
	}
}

func TestChargeMarkOverdue(t *testing.T) {
	db := setupTestDB(t)
	lease := createTestLease(t, db, NewLease{})
	cs := NewChargeStore(db)

	now := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	past, _ := cs.Create(lease.ID, model.ChargeRent, 100000, now.AddDate(0, 0, -10), "")
	cs.Create(lease.ID, model.ChargeRent, 100000, now.AddDate(0, 0, 10), "")
	settled, _ := cs.Create(lease.ID, model.ChargeRent, 50000, now.AddDate(0, 0, -20), "")
	cs.ApplyPayment(settled.ID, 50000, model.PaymentManual, "", now)

	n, err := cs.MarkOverdue(now)
	if err != nil {
		t.Fatalf("mark overdue: %v", err)
	}
	if n != 1 {
		t.Errorf("marked = %d, want 1", n)
	}

	got, _ := cs.GetByID(past.ID)
	if got.Status != model.ChargeOverdue {
		t.Errorf("status = %q, want overdue", got.Status)
	}
}
