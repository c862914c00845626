// Package rentplan expands a lease's terms into its schedule of monthly
// rent due dates.
package rentplan

import (
	"time"

	"github.com/mhollis/keyturn/internal/model"
)

// maxMonths caps expansion so a malformed lease term can't spin forever.
const maxMonths = 1200

// DueDates returns the lease's rent due dates from its start through
// min(until, lease end), in order. The due day is clamped to the length
// of short months (due day 31 falls on Feb 28/29).
func DueDates(lease model.Lease, until time.Time) []time.Time {
	end := lease.EndDate
	if until.Before(end) {
		end = until
	}

	var dates []time.Time
	year, month := lease.StartDate.Year(), lease.StartDate.Month()
	for i := 0; i < maxMonths; i++ {
		due := dueInMonth(year, month, lease.DueDay)
		if due.After(end) {
			break
		}
		if !due.Before(lease.StartDate) {
			dates = append(dates, due)
		}
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}
	return dates
}

// PeriodKey names the billing period a due date belongs to.
func PeriodKey(due time.Time) string {
	return due.UTC().Format("2006-01")
}

func dueInMonth(year int, month time.Month, day int) time.Time {
	if day < 1 {
		day = 1
	}
	if last := daysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
