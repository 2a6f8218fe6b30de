package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/visitops/fieldtrack/internal/app/domain/analytics"
	"github.com/visitops/fieldtrack/internal/app/domain/auth"
	"github.com/visitops/fieldtrack/internal/app/domain/operator"
	"github.com/visitops/fieldtrack/internal/app/domain/visit"
	"github.com/visitops/fieldtrack/internal/app/middleware"
	"github.com/visitops/fieldtrack/internal/app/models"
	"github.com/visitops/fieldtrack/internal/pkg/config"
)

// AppHandlers bundles every HTTP handler the router mounts.
type AppHandlers struct {
	Auth       *auth.Handler
	Visit      *visit.Handler
	VisitAdmin *visit.AdminHandler
	Operator   *operator.Handler
	Analytics  *analytics.Handler

	// VisitService is exposed so the server can run the expiry sweeper
	// over the same instance the handlers use.
	VisitService visit.Service
}

// NewAppHandlers wires repositories, services and handlers on top of the
// shared pool.
func NewAppHandlers(db *pgxpool.Pool, cfg *config.Config, logger *zap.Logger) *AppHandlers {
	authRepo := auth.NewRepository(db)
	operatorRepo := operator.NewRepository(db)
	visitRepo := visit.NewRepository(db)
	analyticsRepo := analytics.NewRepository(db)

	authService := auth.NewService(authRepo, cfg.JWT, logger)
	operatorService := operator.NewService(operatorRepo, logger)
	visitService := visit.NewService(visitRepo, operatorService, visit.Policy{
		AllowedRadiusMeters: cfg.Geofence.AllowedRadiusMeters,
		MaxSessionDuration:  cfg.Geofence.MaxSessionDuration,
	}, logger)
	analyticsService := analytics.NewService(analyticsRepo, logger)

	return &AppHandlers{
		Auth:         auth.NewHandler(authService, logger),
		Visit:        visit.NewHandler(visitService, logger),
		VisitAdmin:   visit.NewAdminHandler(visitService, logger),
		Operator:     operator.NewHandler(operatorService, logger),
		Analytics:    analytics.NewHandler(analyticsService, logger),
		VisitService: visitService,
	}
}

// Setup mounts the API surface. BD routes are scoped to the caller's own
// sessions; the admin subtree reads everything and is gated on the role
// claim.
func Setup(r *gin.Engine, handlers *AppHandlers, cfg *config.Config, logger *zap.Logger) {
	api := r.Group("/api/v1")

	api.POST("/auth/login", handlers.Auth.Login)

	authed := api.Group("")
	authed.Use(middleware.JWTAuthMiddleware(middleware.JWTConfig{
		SecretKey: cfg.JWT.SecretKey,
		Logger:    logger,
	}))

	checkins := authed.Group("/checkins")
	{
		checkins.POST("/can-check-in/:operatorId", handlers.Visit.CanCheckIn)
		checkins.POST("/check-in/:operatorId", handlers.Visit.CheckIn)
		checkins.PUT("/update-location/:checkInId", handlers.Visit.UpdateLocation)
		checkins.POST("/check-out/:checkInId", handlers.Visit.CheckOut)
		checkins.GET("/active", handlers.Visit.ActiveSession)
		checkins.GET("/history", handlers.Visit.History)
		checkins.GET("/details/:checkInId", handlers.Visit.Details)

		admin := checkins.Group("/admin")
		admin.Use(middleware.RequireRole(models.RoleAdmin))
		{
			admin.GET("/all", handlers.Analytics.ListSessions)
			admin.GET("/analytics", handlers.Analytics.Report)
			admin.GET("/details/:checkInId", handlers.VisitAdmin.Details)
		}
	}

	authed.GET("/operators", handlers.Operator.Mine)
	authed.GET("/operators/:operatorId", handlers.Operator.Get)

	adminOps := authed.Group("/admin/operators")
	adminOps.Use(middleware.RequireRole(models.RoleAdmin))
	{
		adminOps.GET("", handlers.Operator.AdminList)
		adminOps.POST("", handlers.Operator.AdminCreate)
		adminOps.PUT("/:operatorId", handlers.Operator.AdminUpdate)
		adminOps.DELETE("/:operatorId", handlers.Operator.AdminDelete)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}
