package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mhollis/keyturn/internal/backup"
	stripeclient "github.com/mhollis/keyturn/internal/billing/stripe"
	"github.com/mhollis/keyturn/internal/database"
	"github.com/mhollis/keyturn/internal/email"
	"github.com/mhollis/keyturn/internal/logging"
	"github.com/mhollis/keyturn/internal/push"
	"github.com/mhollis/keyturn/internal/server"
)

func main() {
	logger := logging.Setup(os.Getenv("KEYTURN_LOG_LEVEL"), os.Getenv("KEYTURN_LOG_FORMAT"))

	port := os.Getenv("KEYTURN_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("KEYTURN_DB_PATH")
	if dbPath == "" {
		dbPath = "keyturn.db"
	}

	baseURL := os.Getenv("KEYTURN_BASE_URL")
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%s", port)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	emailClient := email.NewClient(
		os.Getenv("KEYTURN_POSTMARK_TOKEN"),
		os.Getenv("KEYTURN_FROM_EMAIL"),
		baseURL,
	)

	workers := 4
	if v := os.Getenv("KEYTURN_BILLING_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			workers = n
		}
	}

	cfg := server.Config{
		Workers: workers,
		Stripe: stripeclient.Config{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			SuccessURL:    baseURL + "/payments/success?session_id={CHECKOUT_SESSION_ID}",
			CancelURL:     baseURL + "/payments/cancelled",
		},
		Backup: backup.Config{
			S3: backup.S3Config{
				Endpoint:  os.Getenv("KEYTURN_S3_ENDPOINT"),
				Bucket:    os.Getenv("KEYTURN_S3_BUCKET"),
				Region:    os.Getenv("KEYTURN_S3_REGION"),
				AccessKey: os.Getenv("KEYTURN_S3_ACCESS_KEY"),
				SecretKey: os.Getenv("KEYTURN_S3_SECRET_KEY"),
			},
			DBPath:     dbPath,
			Passphrase: os.Getenv("KEYTURN_BACKUP_PASSPHRASE"),
		},
		Push: push.Config{
			VAPIDPublicKey:  os.Getenv("KEYTURN_VAPID_PUBLIC_KEY"),
			VAPIDPrivateKey: os.Getenv("KEYTURN_VAPID_PRIVATE_KEY"),
			Subscriber:      os.Getenv("KEYTURN_VAPID_SUBSCRIBER"),
		},
	}

	srv := server.New(db, emailClient, cfg, logger)

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Background cleanup goroutine
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					logger.Error("cleanup expired sessions", "error", err)
				} else if n > 0 {
					logger.Info("cleaned up expired sessions", "count", n)
				}
				if n, err := srv.TokenStore().DeleteExpired(time.Now().UTC()); err != nil {
					logger.Error("cleanup expired tokens", "error", err)
				} else if n > 0 {
					logger.Info("cleaned up expired tokens", "count", n)
				}
				srv.RateLimiter().Cleanup()
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("keyturn starting", "addr", ":"+port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cleanupCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
