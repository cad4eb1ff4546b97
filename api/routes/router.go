package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/spotixhq/spotix-backend/api/controllers"
	webhookcontrollers "github.com/spotixhq/spotix-backend/api/controllers/webhooks"
	"github.com/spotixhq/spotix-backend/api/middleware"
	"github.com/spotixhq/spotix-backend/internal/agents"
	"github.com/spotixhq/spotix-backend/internal/auth"
	"github.com/spotixhq/spotix-backend/internal/authcodes"
	"github.com/spotixhq/spotix-backend/internal/enhance"
	"github.com/spotixhq/spotix-backend/internal/events"
	"github.com/spotixhq/spotix-backend/internal/identity"
	"github.com/spotixhq/spotix-backend/internal/payouts"
	"github.com/spotixhq/spotix-backend/internal/tickets"
	"github.com/spotixhq/spotix-backend/internal/verification"
	"github.com/spotixhq/spotix-backend/internal/wallet"
	"github.com/spotixhq/spotix-backend/pkg/auth/session"
	"github.com/spotixhq/spotix-backend/pkg/config"
	"github.com/spotixhq/spotix-backend/pkg/db"
	"github.com/spotixhq/spotix-backend/pkg/logger"
	"github.com/spotixhq/spotix-backend/pkg/redis"
	"github.com/spotixhq/spotix-backend/pkg/stripe"
)

// NewRouter wires every controller behind the shared middleware chain.
// MetricsHandler may be nil when the scrape endpoint is disabled.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionManager session.AccessSessionChecker,
	identityService identity.Service,
	authService auth.Service,
	registerService auth.RegisterService,
	walletService wallet.Service,
	eventsService events.Service,
	ticketsService tickets.Service,
	verificationService verification.Service,
	payoutsService payouts.Service,
	agentsService agents.Service,
	authCodesService authcodes.Service,
	enhanceService enhance.Service,
	stripeClient *stripe.Client,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/stripe", webhookcontrollers.StripeWebhook(walletService, stripeClient, logg))
		})

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).
				Post("/login", controllers.AuthLogin(authService, logg))
			r.With(
				middleware.AuthRateLimit(registerPolicy, redisClient, logg),
				middleware.Idempotency(redisClient, logg),
			).Post("/register", controllers.AuthRegister(registerService, authService, logg))
			r.Post("/refresh", controllers.AuthRefresh(authService, logg))
			r.Post("/logout", controllers.AuthLogout(authService, logg))
		})

		// Public catalogue.
		r.Get("/events", controllers.EventsList(eventsService, logg))
		r.Get("/events/{eventId}", controllers.EventGet(eventsService, logg))
		r.Get("/events/{eventId}/ticket-types", controllers.EventTicketTypes(eventsService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))
			r.Use(middleware.Idempotency(redisClient, logg))

			r.Route("/wallet", func(r chi.Router) {
				r.Get("/balance", controllers.WalletBalance(walletService, logg))
				r.Get("/history", controllers.WalletHistory(walletService, logg))
				r.Post("/topup", controllers.WalletTopUp(walletService, logg))
			})

			r.Route("/tickets", func(r chi.Router) {
				r.Post("/purchase", controllers.TicketPurchase(ticketsService, logg))
				r.Get("/history", controllers.TicketHistory(ticketsService, logg))
				r.With(middleware.RequireBooker(logg)).
					Post("/{ticketId}/check-in", controllers.TicketCheckIn(ticketsService, identityService, logg))
			})

			r.Post("/auth-codes/validate", controllers.AuthCodeValidate(authCodesService, identityService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireBooker(logg))
				r.Post("/events", controllers.EventCreate(eventsService, identityService, enhanceService, logg))
				r.Get("/events/mine", controllers.EventsMine(eventsService, identityService, logg))
				r.Post("/events/enhance-description", controllers.EventEnhanceDescription(enhanceService, logg))
				r.Put("/events/{eventId}", controllers.EventUpdate(eventsService, identityService, logg))
				r.Post("/events/{eventId}/publish", controllers.EventPublish(eventsService, identityService, logg))
				r.Get("/events/{eventId}/revenue", controllers.EventRevenue(eventsService, identityService, logg))
				r.Get("/events/{eventId}/attendees", controllers.EventAttendees(ticketsService, identityService, logg))
			})

			r.Route("/verification", func(r chi.Router) {
				r.Get("/", controllers.VerificationGet(verificationService, identityService, logg))
				r.Post("/address", controllers.VerificationAddress(verificationService, identityService, logg))
				r.Post("/documents", controllers.VerificationDocuments(verificationService, identityService, logg))
			})

			r.Route("/agent", func(r chi.Router) {
				r.Use(middleware.RequireAgent(logg))
				r.Post("/auth-codes", controllers.AgentAuthCodeIssue(authCodesService, identityService, logg))
				r.Get("/auth-codes", controllers.AgentAuthCodes(authCodesService, identityService, logg))
				r.Get("/balances", controllers.AgentBalances(agentsService, identityService, logg))
				r.Get("/transactions", controllers.AgentTransactions(agentsService, identityService, logg))
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin(logg))

				r.Route("/payouts", func(r chi.Router) {
					r.Post("/calculate", controllers.AdminPayoutCalculate(payoutsService, identityService, logg))
					r.Post("/{eventId}/send-code", controllers.AdminPayoutSendCode(payoutsService, identityService, logg))
					r.Post("/{payoutId}/verify", controllers.AdminPayoutVerify(payoutsService, identityService, logg))
				})

				r.Route("/events/{eventId}", func(r chi.Router) {
					r.Get("/payouts", controllers.AdminEventPayouts(payoutsService, identityService, logg))
					r.Post("/reconcile", controllers.AdminEventReconcile(eventsService, identityService, logg))
				})

				r.Route("/agents/{userId}", func(r chi.Router) {
					r.Post("/onboard", controllers.AdminAgentOnboard(agentsService, identityService, logg))
					r.Post("/fund", controllers.AdminAgentFund(agentsService, identityService, logg))
					r.Post("/withdraw", controllers.AdminAgentWithdraw(agentsService, identityService, logg))
					r.Get("/balances", controllers.AdminAgentBalances(agentsService, identityService, logg))
					r.Get("/transactions", controllers.AdminAgentTransactions(agentsService, identityService, logg))
				})

				r.Route("/verification", func(r chi.Router) {
					r.Get("/pending", controllers.AdminVerificationPending(verificationService, identityService, logg))
					r.Post("/{recordId}/verify", controllers.AdminVerifyBooker(verificationService, identityService, logg))
				})
			})
		})
	})

	return r
}
