package latefee

import (
	"errors"
	"testing"
	"time"

	"github.com/mhollis/keyturn/internal/model"
)

func flatLease() model.Lease {
	return model.Lease{
		ID:           1,
		LateFeeMode:  model.LateFeeFlat,
		LateFeeCents: 5000,
	}
}

func TestPeriodIsUTCMonth(t *testing.T) {
	// 23:30 on Aug 31 in UTC-2 is already September in UTC.
	loc := time.FixedZone("minus2", -2*60*60)
	now := time.Date(2026, 8, 31, 23, 30, 0, 0, loc)
	if got := Period(now); got != "2026-09" {
		t.Errorf("period = %q, want 2026-09", got)
	}
}

func TestKey(t *testing.T) {
	if got := Key(42, "2026-08"); got != "latefee:42:2026-08" {
		t.Errorf("key = %q", got)
	}
}

func TestEvaluateFlatFee(t *testing.T) {
	snap := model.AgingSnapshot{Days30Cents: 100000, TotalCents: 100000, OldestDays: 45}

	d, err := Evaluate(flatLease(), snap, "2026-08", false)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !d.Apply {
		t.Fatal("expected fee to apply")
	}
	if d.AmountCents != 5000 {
		t.Errorf("amount = %d, want 5000", d.AmountCents)
	}
	if d.IdempotencyKey != "latefee:1:2026-08" {
		t.Errorf("key = %q", d.IdempotencyKey)
	}
}

func TestEvaluatePercentFee(t *testing.T) {
	lease := model.Lease{ID: 2, LateFeeMode: model.LateFeePercent, LateFeeBps: 150}
	snap := model.AgingSnapshot{Days60Cents: 200000, TotalCents: 200000, OldestDays: 70}

	d, err := Evaluate(lease, snap, "2026-08", false)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !d.Apply {
		t.Fatal("expected fee to apply")
	}
	// 1.5% of $2000.00
	if d.AmountCents != 3000 {
		t.Errorf("amount = %d, want 3000", d.AmountCents)
	}
}

func TestEvaluateAlreadyApplied(t *testing.T) {
	snap := model.AgingSnapshot{Days90Cents: 100000, TotalCents: 100000, OldestDays: 120}

	d, err := Evaluate(flatLease(), snap, "2026-08", true)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if d.Apply {
		t.Error("already-applied period must be a no-op")
	}
}

func TestEvaluateNoPolicy(t *testing.T) {
	snap := model.AgingSnapshot{Days30Cents: 100000, TotalCents: 100000, OldestDays: 45}

	_, err := Evaluate(model.Lease{ID: 3}, snap, "2026-08", false)
	if !errors.Is(err, ErrNoPolicy) {
		t.Errorf("err = %v, want ErrNoPolicy", err)
	}

	_, err = Evaluate(model.Lease{ID: 4, LateFeeMode: model.LateFeeFlat}, snap, "2026-08", false)
	if !errors.Is(err, ErrNoPolicy) {
		t.Errorf("flat without amount err = %v, want ErrNoPolicy", err)
	}

	_, err = Evaluate(model.Lease{ID: 5, LateFeeMode: model.LateFeePercent}, snap, "2026-08", false)
	if !errors.Is(err, ErrNoPolicy) {
		t.Errorf("percent without bps err = %v, want ErrNoPolicy", err)
	}
}

func TestEvaluateNothingOverdue(t *testing.T) {
	snap := model.AgingSnapshot{CurrentCents: 100000, TotalCents: 100000, OldestDays: 10}

	d, err := Evaluate(flatLease(), snap, "2026-08", false)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if d.Apply {
		t.Error("balance inside current bucket should not trigger a fee")
	}
}

func TestEvaluateGraceDays(t *testing.T) {
	lease := flatLease()
	lease.GraceDays = 5

	// Everything sits in current, but the oldest charge is past grace.
	snap := model.AgingSnapshot{CurrentCents: 100000, TotalCents: 100000, OldestDays: 8}
	d, err := Evaluate(lease, snap, "2026-08", false)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !d.Apply {
		t.Error("oldest charge past grace should trigger the fee")
	}

	// Within grace: no fee.
	snap.OldestDays = 5
	d, err = Evaluate(lease, snap, "2026-08", false)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if d.Apply {
		t.Error("charge within grace should not trigger the fee")
	}
}

func TestEvaluateZeroComputedFee(t *testing.T) {
	lease := model.Lease{ID: 6, LateFeeMode: model.LateFeePercent, LateFeeBps: 1}
	snap := model.AgingSnapshot{Days30Cents: 100, TotalCents: 100, OldestDays: 40}

	d, err := Evaluate(lease, snap, "2026-08", false)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if d.Apply {
		t.Error("fee rounding to zero cents should not apply")
	}
}
