// billingd runs billing cycles on a schedule, independent of the web
// process. With -once it runs a single cycle and exits, for use from
// external schedulers or operator shells.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mhollis/keyturn/internal/billing/cron"
	"github.com/mhollis/keyturn/internal/billing/cycle"
	"github.com/mhollis/keyturn/internal/database"
	"github.com/mhollis/keyturn/internal/logging"
	"github.com/mhollis/keyturn/internal/push"
	"github.com/mhollis/keyturn/internal/store"
)

func main() {
	once := flag.Bool("once", false, "run one billing cycle and exit")
	flag.Parse()

	logger := logging.Setup(os.Getenv("KEYTURN_LOG_LEVEL"), os.Getenv("KEYTURN_LOG_FORMAT"))

	dbPath := os.Getenv("KEYTURN_DB_PATH")
	if dbPath == "" {
		dbPath = "keyturn.db"
	}

	schedule := os.Getenv("KEYTURN_BILLING_SCHEDULE")
	if schedule == "" {
		schedule = "0 6 * * *"
	}

	timeout := 10 * time.Minute
	if v := os.Getenv("KEYTURN_BILLING_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			timeout = d
		}
	}

	workers := 4
	if v := os.Getenv("KEYTURN_BILLING_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			workers = n
		}
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	leaseStore := store.NewLeaseStore(db)
	chargeStore := store.NewChargeStore(db)
	agingStore := store.NewAgingStore(db)
	pushStore := store.NewPushStore(db)

	pushService := push.NewService(push.Config{
		VAPIDPublicKey:  os.Getenv("KEYTURN_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("KEYTURN_VAPID_PRIVATE_KEY"),
		Subscriber:      os.Getenv("KEYTURN_VAPID_SUBSCRIBER"),
	})
	notifier := push.NewNotifier(pushService, pushStore, logger.With("component", "push"))

	storage := store.NewBillingStorage(leaseStore, chargeStore, agingStore)
	runner := cycle.NewRunner(storage, notifier, logger.With("component", "billing"), workers)
	settings := store.NewSettingsStore(db)

	if *once {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		report, err := runner.Run(ctx, time.Now().UTC())
		if err != nil {
			logger.Error("billing cycle failed", "error", err)
			os.Exit(1)
		}
		if err := settings.Set("last_billing_run", report.FinishedAt.Format(time.RFC3339)); err != nil {
			logger.Warn("record last billing run", "error", err)
		}
		if rerr := report.Err(); rerr != nil {
			logger.Warn("billing cycle completed with lease errors", "error", rerr)
			os.Exit(2)
		}
		return
	}

	afterRun := func(report *cycle.Report) {
		if err := settings.Set("last_billing_run", report.FinishedAt.Format(time.RFC3339)); err != nil {
			logger.Warn("record last billing run", "error", err)
		}
	}
	trigger := cron.NewTrigger(runner, schedule, timeout, afterRun, logger.With("component", "cron"))
	if err := trigger.Start(); err != nil {
		logger.Error("invalid billing schedule", "schedule", schedule, "error", err)
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	<-trigger.Stop().Done()
}
