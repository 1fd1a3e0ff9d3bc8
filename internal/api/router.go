package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/acmecrm/crm-identity/internal/api/handler"
	"github.com/acmecrm/crm-identity/internal/api/middleware"
	"github.com/acmecrm/crm-identity/internal/core/domain"
	"github.com/acmecrm/crm-identity/internal/core/policy"
	"github.com/acmecrm/crm-identity/internal/core/service"
	"github.com/acmecrm/crm-identity/internal/infrastructure/config"
	mongostore "github.com/acmecrm/crm-identity/internal/infrastructure/db/mongo"
	redisstore "github.com/acmecrm/crm-identity/internal/infrastructure/db/redis"
	healthhandlers "github.com/acmecrm/crm-identity/internal/infrastructure/http/handlers"
	"github.com/acmecrm/crm-identity/internal/infrastructure/mail"
	"github.com/acmecrm/crm-identity/internal/infrastructure/queue"
	"github.com/acmecrm/crm-identity/pkg/webhooksig"
)

// NewRouter builds the Echo instance with all routes registered. The returned
// dispatcher must be started by the caller before serving traffic.
func NewRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client, log zerolog.Logger) (*echo.Echo, *queue.MailDispatcher, error) {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("crm"))

	// --- Dependencies ---
	userRepo := mongostore.NewUserRepository(db)
	invitationRepo := mongostore.NewInvitationRepository(db)
	attempts := redisstore.NewAttemptTracker(rdb, cfg.SyncAttemptTTL)
	dedup := redisstore.NewDeliveryDedup(rdb)

	mailer := mail.NewLogMailer(cfg.CompanyName, log)
	dispatcher := queue.NewMailDispatcher(cfg.MailWorkers, mailer, log)

	syncService := service.NewSyncService(userRepo, attempts, log)
	teamService := service.NewTeamService(userRepo, log)
	invitationService := service.NewInvitationService(userRepo, invitationRepo, dispatcher, log)

	verifier, err := webhooksig.NewVerifier(cfg.WebhookSecret, cfg.WebhookTolerance)
	if err != nil {
		return nil, nil, err
	}

	webhookHandler := handler.NewWebhookHandler(verifier, dedup, syncService, log)
	meHandler := handler.NewMeHandler(syncService)
	teamHandler := handler.NewTeamHandler(teamService)
	invitationHandler := handler.NewInvitationHandler(invitationService)
	overviewHandler := handler.NewOverviewHandler()

	// --- Health probes and metrics (no auth required) ---
	healthHandler := healthhandlers.NewHealthHandler()
	healthDepsHandler := healthhandlers.NewHealthDependenciesHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())

	// --- Provider webhook (signature-verified, not session-authenticated) ---
	e.POST("/webhooks/identity", webhookHandler.Receive)

	// --- Session routes ---
	gateCfg := middleware.GateConfig{
		SignInURL:    cfg.SignInURL,
		ForbiddenURL: cfg.ForbiddenURL,
	}

	v1 := e.Group("/v1",
		middleware.Auth(cfg.JWTSecret),
		middleware.ResolvePrincipal(syncService, log),
	)

	// Session: a valid session is enough, a local record is not required
	// yet. This is where the record gets created, and the overview renders
	// a pending state while it materializes.
	session := v1.Group("", middleware.Gate(gateCfg, policy.Session()))
	session.POST("/me/sync", meHandler.Sync)
	session.GET("/me", meHandler.Me)
	session.GET("/overview", overviewHandler.Overview)

	// Member: any active local record.
	member := v1.Group("", middleware.Gate(gateCfg, policy.AnyRole(
		domain.RoleOwner, domain.RoleAdmin, domain.RoleManager, domain.RoleSales, domain.RoleViewer,
	)))
	member.GET("/team", teamHandler.List)

	// Restricted: team administration.
	restricted := v1.Group("", middleware.Gate(gateCfg, policy.Named(policy.CanManageUsers)))
	restricted.PATCH("/team/:id/role", teamHandler.ChangeRole)
	restricted.DELETE("/team/:id", teamHandler.Deactivate)
	restricted.GET("/invitations", invitationHandler.List)
	restricted.POST("/invitations", invitationHandler.Create)
	restricted.POST("/invitations/:id/resend", invitationHandler.Resend)
	restricted.DELETE("/invitations/:id", invitationHandler.Cancel)

	return e, dispatcher, nil
}
