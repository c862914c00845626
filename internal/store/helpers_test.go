package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/mhollis/keyturn/internal/database"
	"github.com/mhollis/keyturn/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestLease builds the owner -> property -> unit -> lease chain the
// foreign keys require and returns the lease.
func createTestLease(t *testing.T, db *sql.DB, nl NewLease) *model.Lease {
	t.Helper()

	owner, err := NewUserStore(db).Create("owner@example.com", "Olive Owner", model.RoleOwner)
	if err != nil {
		t.Fatalf("create owner: %v", err)
	}
	property, err := NewPropertyStore(db).Create(owner.ID, "Maple Court", "12 Maple St")
	if err != nil {
		t.Fatalf("create property: %v", err)
	}
	unit, err := NewUnitStore(db).Create(property.ID, "2B")
	if err != nil {
		t.Fatalf("create unit: %v", err)
	}

	nl.UnitID = unit.ID
	if nl.StartDate.IsZero() {
		nl.StartDate = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if nl.EndDate.IsZero() {
		nl.EndDate = time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	}
	if nl.RentCents == 0 {
		nl.RentCents = 150000
	}
	if nl.DueDay == 0 {
		nl.DueDay = 1
	}
	lease, err := NewLeaseStore(db).Create(nl)
	if err != nil {
		t.Fatalf("create lease: %v", err)
	}
	return lease
}
