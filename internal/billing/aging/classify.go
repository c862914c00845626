// Package aging buckets a lease's outstanding charges by days past due.
package aging

import (
	"math"
	"time"

	"github.com/mhollis/keyturn/internal/model"
)

// DaysPastDue is floor((now - dueDate) / 1 day); negative for charges not
// yet due.
func DaysPastDue(now, dueDate time.Time) int {
	return int(math.Floor(now.Sub(dueDate).Hours() / 24))
}

// Classify computes the aging snapshot for one lease from its open
// charges. Pure and deterministic: same inputs and now, same snapshot.
//
// Bucketing matches the historical report: anything 30 or fewer days past
// due lands in current, which deliberately merges not-yet-due amounts with
// amounts 1-30 days late. Then (30,60] -> days30, (60,90] -> days60,
// >90 -> days90plus.
func Classify(now time.Time, leaseID int64, charges []model.Charge) model.AgingSnapshot {
	snap := model.AgingSnapshot{
		LeaseID:    leaseID,
		ComputedAt: now,
	}

	for _, c := range charges {
		out := c.Outstanding()
		if out == 0 {
			continue
		}

		days := DaysPastDue(now, c.DueDate)
		switch {
		case days <= 30:
			snap.CurrentCents += out
		case days <= 60:
			snap.Days30Cents += out
		case days <= 90:
			snap.Days60Cents += out
		default:
			snap.Days90Cents += out
		}

		if days > snap.OldestDays {
			snap.OldestDays = days
		}
	}

	snap.TotalCents = snap.CurrentCents + snap.Days30Cents + snap.Days60Cents + snap.Days90Cents
	return snap
}
