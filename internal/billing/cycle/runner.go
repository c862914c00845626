// Package cycle drives the periodic billing run: per active lease it
// generates due rent charges, recomputes receivables aging, and evaluates
// the late-fee policy. Each lease is an independent unit of work; one
// lease failing never aborts the rest.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mhollis/keyturn/internal/billing/aging"
	"github.com/mhollis/keyturn/internal/billing/latefee"
	"github.com/mhollis/keyturn/internal/model"
	"github.com/mhollis/keyturn/internal/rentplan"
	"github.com/mhollis/keyturn/internal/store"
)

// Storage is the persistence contract the runner needs. CreateCharge must
// return store.ErrDuplicateKey when the idempotency key already exists.
type Storage interface {
	ListActiveLeases(ctx context.Context) ([]model.Lease, error)
	ListOpenCharges(ctx context.Context, leaseID int64) ([]model.Charge, error)
	CreateCharge(ctx context.Context, leaseID int64, kind model.ChargeKind, amountCents int64, dueDate time.Time, idempotencyKey string) error
	HasChargeKey(ctx context.Context, idempotencyKey string) (bool, error)
	UpsertSnapshot(ctx context.Context, snap model.AgingSnapshot) (created bool, err error)
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}

// Notifier receives post-pipeline events. Implementations must not block;
// failures are theirs to log.
type Notifier interface {
	LeaseOverdue(lease model.Lease, snap model.AgingSnapshot)
	FeeApplied(lease model.Lease, amountCents int64, period string)
}

type Runner struct {
	storage  Storage
	notifier Notifier
	logger   *slog.Logger
	workers  int
}

// NewRunner builds a runner processing up to workers leases concurrently.
// notifier may be nil.
func NewRunner(storage Storage, notifier Notifier, logger *slog.Logger, workers int) *Runner {
	if workers < 1 {
		workers = 4
	}
	return &Runner{
		storage:  storage,
		notifier: notifier,
		logger:   logger,
		workers:  workers,
	}
}

// Run executes one billing cycle at the given instant. The returned error
// is non-nil only when lease enumeration itself fails; per-lease failures
// land in the report. Re-running for the same period is idempotent: rent
// generation, snapshot upsert, and fee application are all keyed.
func (r *Runner) Run(ctx context.Context, now time.Time) (*Report, error) {
	report := &Report{StartedAt: now}

	if n, err := r.storage.MarkOverdue(ctx, now); err != nil {
		r.logger.Warn("mark overdue charges", "error", err)
	} else if n > 0 {
		r.logger.Info("charges marked overdue", "count", n)
	}

	leases, err := r.storage.ListActiveLeases(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active leases: %w", err)
	}

	period := latefee.Period(now)
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, lease := range leases {
		g.Go(func() error {
			if ctx.Err() != nil {
				mu.Lock()
				report.NotAttempted++
				mu.Unlock()
				return nil
			}

			res, leaseErr := r.processLease(ctx, now, period, lease)

			mu.Lock()
			defer mu.Unlock()
			report.LeasesProcessed++
			report.ChargesGenerated += res.chargesGenerated
			if res.snapshotCreated {
				report.SnapshotsCreated++
			} else if res.snapshotWritten {
				report.SnapshotsUpdated++
			}
			if res.feeApplied {
				report.FeesApplied++
			}
			if leaseErr != nil {
				report.Errors = append(report.Errors, LeaseError{
					LeaseID: lease.ID,
					Kind:    leaseErr.kind,
					Message: leaseErr.err.Error(),
				})
			}
			return nil
		})
	}
	g.Wait()

	report.FinishedAt = time.Now().UTC()
	r.logger.Info("billing cycle finished",
		"leases", report.LeasesProcessed,
		"charges_generated", report.ChargesGenerated,
		"snapshots_created", report.SnapshotsCreated,
		"snapshots_updated", report.SnapshotsUpdated,
		"fees_applied", report.FeesApplied,
		"errors", len(report.Errors),
		"not_attempted", report.NotAttempted,
	)
	return report, nil
}

type leaseResult struct {
	chargesGenerated int
	snapshotWritten  bool
	snapshotCreated  bool
	feeApplied       bool
}

type stepError struct {
	kind string
	err  error
}

// processLease runs one lease's pipeline in fixed order: generate rent
// charges, fetch open charges, classify, upsert snapshot, evaluate fee.
func (r *Runner) processLease(ctx context.Context, now time.Time, period string, lease model.Lease) (leaseResult, *stepError) {
	var res leaseResult

	generated, err := r.generateRentCharges(ctx, now, lease)
	res.chargesGenerated = generated
	if err != nil {
		return res, &stepError{kind: "storage", err: fmt.Errorf("generate rent charges: %w", err)}
	}

	charges, err := r.storage.ListOpenCharges(ctx, lease.ID)
	if err != nil {
		return res, &stepError{kind: "storage", err: fmt.Errorf("fetch charges: %w", err)}
	}
	for _, c := range charges {
		if c.AmountDueCents < 0 || c.AmountPaidCents < 0 {
			return res, &stepError{kind: "validation", err: fmt.Errorf("charge %d has negative amounts", c.ID)}
		}
	}

	snap := aging.Classify(now, lease.ID, charges)
	created, err := r.storage.UpsertSnapshot(ctx, snap)
	if err != nil {
		return res, &stepError{kind: "storage", err: fmt.Errorf("upsert snapshot: %w", err)}
	}
	res.snapshotWritten = true
	res.snapshotCreated = created

	if r.notifier != nil && snap.OverdueCents() > 0 {
		r.notifier.LeaseOverdue(lease, snap)
	}

	applied, err := r.storage.HasChargeKey(ctx, latefee.Key(lease.ID, period))
	if err != nil {
		return res, &stepError{kind: "storage", err: fmt.Errorf("check fee key: %w", err)}
	}

	decision, err := latefee.Evaluate(lease, snap, period, applied)
	if err != nil {
		if errors.Is(err, latefee.ErrNoPolicy) {
			// Misconfigured lease: skip the fee, keep the cycle going.
			return res, &stepError{kind: "validation", err: err}
		}
		return res, &stepError{kind: "fee", err: err}
	}
	if !decision.Apply {
		return res, nil
	}

	err = r.storage.CreateCharge(ctx, lease.ID, model.ChargeLateFee, decision.AmountCents, now, decision.IdempotencyKey)
	if errors.Is(err, store.ErrDuplicateKey) {
		// A concurrent or earlier run already applied this period's fee.
		return res, nil
	}
	if err != nil {
		return res, &stepError{kind: "storage", err: fmt.Errorf("apply late fee: %w", err)}
	}
	res.feeApplied = true

	if r.notifier != nil {
		r.notifier.FeeApplied(lease, decision.AmountCents, period)
	}
	return res, nil
}

// generateRentCharges inserts any rent charge due on or before now that
// does not exist yet, keyed rent:<lease>:<period> so re-runs are no-ops.
func (r *Runner) generateRentCharges(ctx context.Context, now time.Time, lease model.Lease) (int, error) {
	if lease.RentCents <= 0 {
		return 0, fmt.Errorf("lease %d has non-positive rent", lease.ID)
	}

	generated := 0
	for _, due := range rentplan.DueDates(lease, now) {
		key := fmt.Sprintf("rent:%d:%s", lease.ID, rentplan.PeriodKey(due))
		exists, err := r.storage.HasChargeKey(ctx, key)
		if err != nil {
			return generated, err
		}
		if exists {
			continue
		}
		err = r.storage.CreateCharge(ctx, lease.ID, model.ChargeRent, lease.RentCents, due, key)
		if errors.Is(err, store.ErrDuplicateKey) {
			continue
		}
		if err != nil {
			return generated, err
		}
		generated++
	}
	return generated, nil
}
