package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/mhollis/keyturn/internal/backup"
	"github.com/mhollis/keyturn/internal/billing/cycle"
	stripeclient "github.com/mhollis/keyturn/internal/billing/stripe"
	"github.com/mhollis/keyturn/internal/email"
	"github.com/mhollis/keyturn/internal/handler"
	"github.com/mhollis/keyturn/internal/middleware"
	"github.com/mhollis/keyturn/internal/model"
	"github.com/mhollis/keyturn/internal/push"
	"github.com/mhollis/keyturn/internal/store"
	"github.com/mhollis/keyturn/internal/token"
	ws "github.com/mhollis/keyturn/internal/websocket"
)

// Config collects the external-service configuration the server wires in.
type Config struct {
	Workers int
	Stripe  stripeclient.Config
	Backup  backup.Config
	Push    push.Config
}

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	authH         *handler.AuthHandler
	inviteH       *handler.InviteHandler
	propertyH     *handler.PropertyHandler
	leaseH        *handler.LeaseHandler
	chargeH       *handler.ChargeHandler
	agingH        *handler.AgingHandler
	ticketH       *handler.TicketHandler
	checkoutH     *handler.CheckoutHandler
	webhookH      *handler.WebhookHandler
	pushH         *handler.PushHandler
	adminH        *handler.AdminHandler
	sessionStore  *store.SessionStore
	userStore     *store.UserStore
	tokenStore    *store.TokenStore
	rateLimiter   *middleware.RateLimiter
	runner        *cycle.Runner
	backupManager *backup.Manager
	logger        *slog.Logger
}

func New(db *sql.DB, emailClient *email.Client, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	tokenStore := store.NewTokenStore(db)
	propertyStore := store.NewPropertyStore(db)
	unitStore := store.NewUnitStore(db)
	leaseStore := store.NewLeaseStore(db)
	chargeStore := store.NewChargeStore(db)
	agingStore := store.NewAgingStore(db)
	ticketStore := store.NewTicketStore(db)
	pushStore := store.NewPushStore(db)
	backupStore := store.NewBackupStore(db)
	settingsStore := store.NewSettingsStore(db)

	issuer := token.NewIssuer(tokenStore)
	stripeClient := stripeclient.NewClient(cfg.Stripe)
	pushService := push.NewService(cfg.Push)
	notifier := push.NewNotifier(pushService, pushStore, logger.With("component", "push"))

	billingStorage := store.NewBillingStorage(leaseStore, chargeStore, agingStore)
	runner := cycle.NewRunner(billingStorage, notifier, logger.With("component", "billing"), cfg.Workers)

	backupMgr := backup.NewManager(cfg.Backup, db, backupStore, logger.With("component", "backup"))

	cookie := middleware.SessionCookieName()

	return &Server{
		db:            db,
		hub:           hub,
		authH:         handler.NewAuthHandler(userStore, sessionStore, issuer, emailClient, cookie, logger.With("component", "auth")),
		inviteH:       handler.NewInviteHandler(leaseStore, unitStore, propertyStore, userStore, sessionStore, issuer, emailClient, cookie, logger.With("component", "invite")),
		propertyH:     handler.NewPropertyHandler(propertyStore, unitStore, logger.With("component", "property")),
		leaseH:        handler.NewLeaseHandler(leaseStore, unitStore, logger.With("component", "lease")),
		chargeH:       handler.NewChargeHandler(chargeStore, leaseStore, hub, logger.With("component", "charge")),
		agingH:        handler.NewAgingHandler(agingStore, leaseStore, logger.With("component", "aging")),
		ticketH:       handler.NewTicketHandler(ticketStore, leaseStore, hub, logger.With("component", "ticket")),
		checkoutH:     handler.NewCheckoutHandler(stripeClient, chargeStore, leaseStore, userStore, logger.With("component", "checkout")),
		webhookH:      handler.NewWebhookHandler(stripeClient, chargeStore, hub, logger.With("component", "webhook")),
		pushH:         handler.NewPushHandler(pushService, pushStore, logger.With("component", "push_handler")),
		adminH:        handler.NewAdminHandler(runner, backupMgr, backupStore, settingsStore, hub, logger.With("component", "admin")),
		sessionStore:  sessionStore,
		userStore:     userStore,
		tokenStore:    tokenStore,
		rateLimiter:   middleware.NewRateLimiter(),
		runner:        runner,
		backupManager: backupMgr,
		logger:        logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// TokenStore returns the auth token store for cleanup tasks.
func (s *Server) TokenStore() *store.TokenStore {
	return s.tokenStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Runner returns the billing cycle runner.
func (s *Server) Runner() *cycle.Runner {
	return s.runner
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /auth/login", s.rateLimitedHandler(s.authH.RequestLink))
	outerMux.HandleFunc("POST /auth/verify", s.rateLimitedHandler(s.authH.Verify))
	outerMux.HandleFunc("POST /auth/invite", s.rateLimitedHandler(s.inviteH.Accept))
	outerMux.HandleFunc("POST /webhooks/stripe", s.webhookH.HandleStripe)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	manage := middleware.RequireRole(model.RoleAdmin, model.RoleOwner)

	mux.HandleFunc("POST /logout", s.authH.Logout)

	// Invites (managers only)
	mux.Handle("POST /api/invites", manage(http.HandlerFunc(s.inviteH.Create)))

	// Properties and units (managers only)
	mux.Handle("POST /api/properties", manage(http.HandlerFunc(s.propertyH.Create)))
	mux.Handle("GET /api/properties", manage(http.HandlerFunc(s.propertyH.List)))
	mux.Handle("POST /api/properties/{id}/units", manage(http.HandlerFunc(s.propertyH.CreateUnit)))
	mux.Handle("GET /api/properties/{id}/units", manage(http.HandlerFunc(s.propertyH.ListUnits)))

	// Leases
	mux.Handle("POST /api/leases", manage(http.HandlerFunc(s.leaseH.Create)))
	mux.Handle("POST /api/leases/{id}/activate", manage(http.HandlerFunc(s.leaseH.Activate)))
	mux.Handle("POST /api/leases/{id}/end", manage(http.HandlerFunc(s.leaseH.End)))
	mux.Handle("GET /api/units/{id}/leases", manage(http.HandlerFunc(s.leaseH.ListByUnit)))
	mux.HandleFunc("GET /api/leases/{id}", s.leaseH.Get)
	mux.HandleFunc("GET /api/my/leases", s.leaseH.Mine)

	// Charges and payments
	mux.HandleFunc("GET /api/leases/{id}/charges", s.chargeH.ListByLease)
	mux.Handle("POST /api/charges/{id}/payments", manage(http.HandlerFunc(s.chargeH.RecordPayment)))
	mux.HandleFunc("GET /api/charges/{id}/payments", s.chargeH.ListPayments)
	mux.HandleFunc("POST /api/charges/{id}/checkout", s.checkoutH.Create)

	// Receivables aging
	mux.HandleFunc("GET /api/leases/{id}/aging", s.agingH.GetByLease)
	mux.Handle("GET /api/reports/aging", manage(http.HandlerFunc(s.agingH.OwnerReport)))

	// Maintenance tickets
	mux.HandleFunc("POST /api/tickets", s.ticketH.Create)
	mux.HandleFunc("GET /api/leases/{id}/tickets", s.ticketH.ListByLease)
	mux.Handle("PUT /api/tickets/{id}/status", manage(http.HandlerFunc(s.ticketH.UpdateStatus)))

	// Push notifications
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("DELETE /api/push/subscribe", s.pushH.Unsubscribe)

	// Admin operations
	mux.Handle("POST /admin/billing/run", middleware.RequireAdmin(http.HandlerFunc(s.adminH.RunBilling)))
	mux.Handle("GET /admin/billing/status", middleware.RequireAdmin(http.HandlerFunc(s.adminH.BillingStatus)))
	mux.Handle("POST /admin/backup/run", middleware.RequireAdmin(http.HandlerFunc(s.adminH.RunBackup)))
	mux.Handle("GET /admin/backup/latest", middleware.RequireAdmin(http.HandlerFunc(s.adminH.LatestBackup)))

	// WebSocket
	mux.HandleFunc("GET /ws", ws.Handle(s.hub, s.logger.With("component", "websocket")))
}
