package store

import (
	"context"
	"time"

	"github.com/mhollis/keyturn/internal/model"
)

// BillingStorage bundles the stores the billing cycle runner needs behind
// its storage contract.
type BillingStorage struct {
	leases  *LeaseStore
	charges *ChargeStore
	aging   *AgingStore
}

func NewBillingStorage(leases *LeaseStore, charges *ChargeStore, aging *AgingStore) *BillingStorage {
	return &BillingStorage{leases: leases, charges: charges, aging: aging}
}

func (b *BillingStorage) ListActiveLeases(ctx context.Context) ([]model.Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.leases.ListByStatus(model.LeaseActive)
}

func (b *BillingStorage) ListOpenCharges(ctx context.Context, leaseID int64) ([]model.Charge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.charges.ListOpenByLease(leaseID)
}

func (b *BillingStorage) CreateCharge(ctx context.Context, leaseID int64, kind model.ChargeKind, amountCents int64, dueDate time.Time, idempotencyKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.charges.Create(leaseID, kind, amountCents, dueDate, idempotencyKey)
	return err
}

func (b *BillingStorage) HasChargeKey(ctx context.Context, idempotencyKey string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return b.charges.HasKey(idempotencyKey)
}

func (b *BillingStorage) UpsertSnapshot(ctx context.Context, snap model.AgingSnapshot) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return b.aging.Upsert(snap)
}

func (b *BillingStorage) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return b.charges.MarkOverdue(now)
}
