package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/mhollis/keyturn/internal/backup"
	"github.com/mhollis/keyturn/internal/billing/cycle"
	"github.com/mhollis/keyturn/internal/store"
	"github.com/mhollis/keyturn/internal/websocket"
)

type AdminHandler struct {
	runner        *cycle.Runner
	backupManager *backup.Manager
	backupStore   *store.BackupStore
	settings      *store.SettingsStore
	hub           *websocket.Hub
	logger        *slog.Logger
}

func NewAdminHandler(runner *cycle.Runner, bm *backup.Manager, bs *store.BackupStore, settings *store.SettingsStore, hub *websocket.Hub, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		runner:        runner,
		backupManager: bm,
		backupStore:   bs,
		settings:      settings,
		hub:           hub,
		logger:        logger,
	}
}

// RunBilling triggers a billing cycle immediately and returns the report.
// Safe to call repeatedly: the cycle is idempotent within a period.
func (h *AdminHandler) RunBilling(w http.ResponseWriter, r *http.Request) {
	report, err := h.runner.Run(r.Context(), time.Now().UTC())
	if err != nil {
		h.logger.Error("manual billing run", "error", err)
		writeError(w, http.StatusInternalServerError, "billing run failed")
		return
	}
	if rerr := report.Err(); rerr != nil {
		h.logger.Warn("billing run finished with lease errors", "error", rerr)
	}
	if err := h.settings.Set("last_billing_run", report.FinishedAt.Format(time.RFC3339)); err != nil {
		h.logger.Warn("record last billing run", "error", err)
	}

	h.hub.Broadcast(websocket.NewEvent("billing_cycle", "finished", 0, map[string]any{
		"leases_processed":  report.LeasesProcessed,
		"charges_generated": report.ChargesGenerated,
		"fees_applied":      report.FeesApplied,
		"errors":            len(report.Errors),
	}))
	writeJSON(w, http.StatusOK, report)
}

// BillingStatus reports when the last billing cycle finished, if ever.
func (h *AdminHandler) BillingStatus(w http.ResponseWriter, r *http.Request) {
	last, err := h.settings.Get("last_billing_run")
	if err != nil {
		h.logger.Error("read last billing run", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"last_billing_run": last})
}

// RunBackup takes an encrypted database backup now.
func (h *AdminHandler) RunBackup(w http.ResponseWriter, r *http.Request) {
	if !h.backupManager.Configured() {
		writeError(w, http.StatusServiceUnavailable, "backups are not configured")
		return
	}
	if err := h.backupManager.Run(r.Context()); err != nil {
		h.logger.Error("manual backup", "error", err)
		writeError(w, http.StatusInternalServerError, "backup failed")
		return
	}
	run, err := h.backupStore.Latest()
	if err != nil {
		h.logger.Error("latest backup lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// LatestBackup reports the most recent backup run.
func (h *AdminHandler) LatestBackup(w http.ResponseWriter, r *http.Request) {
	run, err := h.backupStore.Latest()
	if err != nil {
		h.logger.Error("latest backup lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "no backups yet")
		return
	}
	writeJSON(w, http.StatusOK, run)
}
