package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/chatrelay/chatrelay/internal/ai"
	"github.com/chatrelay/chatrelay/internal/api/handlers"
	mw "github.com/chatrelay/chatrelay/internal/api/middleware"
	"github.com/chatrelay/chatrelay/internal/config"
	"github.com/chatrelay/chatrelay/internal/domain"
	"github.com/chatrelay/chatrelay/internal/service"
	"github.com/chatrelay/chatrelay/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router   *chi.Mux
	Sweeper  *service.SweeperService
	Registry *service.SessionRegistry

	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	// Stores
	tenantStore := store.NewTenantStore(db)
	credentialStore := store.NewCredentialStore(db)
	usageStore := store.NewUsageStore(db)

	// External AI client via provider factory
	aiClient, err := ai.NewClient(
		config.AIProvider(),
		config.AIAPIKey(),
		config.OpenRouterServiceURL(),
		time.Duration(config.AITimeoutSeconds())*time.Second,
	)
	if err != nil {
		logger.Warn("AI client initialization failed, using mock",
			zap.String("provider", config.AIProvider()), zap.Error(err))
		aiClient = ai.NewMockClient()
	} else {
		logger.Info("AI client initialized", zap.String("provider", config.AIProvider()))
	}

	// Base platform configs. Public platforms are locked to their default
	// model; private integrations may switch within their model list.
	publicBase := domain.PlatformConfig{
		RateLimit:        config.PublicRateLimit(),
		MaxHistory:       config.PublicMaxHistory(),
		DefaultModel:     config.PublicDefaultModel(),
		AvailableModels:  config.PublicModels(),
		AllowModelSwitch: false,
	}
	privateBase := domain.PlatformConfig{
		RateLimit:        config.PrivateRateLimit(),
		MaxHistory:       config.PrivateMaxHistory(),
		DefaultModel:     config.PrivateDefaultModel(),
		AvailableModels:  config.PrivateModels(),
		AllowModelSwitch: true,
	}

	// Services
	resolver := service.NewPlatformResolver(
		publicBase, privateBase,
		config.PublicPlatforms(), config.PrivatePlatforms(),
		service.FallbackPolicy(config.UnknownPlatformPolicy()),
		logger,
	)
	registry := service.NewSessionRegistry(resolver, logger)
	quotaSvc := service.NewQuotaService(usageStore, logger)
	chatSvc := service.NewChatService(registry, quotaSvc, aiClient, logger)
	sweeperSvc := service.NewSweeperService(
		registry,
		time.Duration(config.SessionTimeoutMinutes())*time.Minute,
		logger,
	)
	sweeperSvc.SetInterval(time.Duration(config.SweepIntervalMinutes()) * time.Minute)

	// Handlers
	chatHandler := handlers.NewChatHandler(chatSvc)
	sessionHandler := handlers.NewSessionHandler(registry)
	tenantHandler := handlers.NewTenantHandler(tenantStore)
	credentialHandler := handlers.NewCredentialHandler(credentialStore)
	usageHandler := handlers.NewUsageHandler(quotaSvc)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Sweeper:   sweeperSvc,
		Registry:  registry,
		startTime: time.Now(),
	}

	// Metrics collector for middleware
	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	// Health (no auth)
	r.Get("/health", healthHandler(db, aiClient))

	// Metrics (no auth)
	r.Get("/metrics", app.metricsHandler())

	// Authenticated routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(credentialStore, tenantStore))

		r.Post("/chat", chatHandler.Chat)
		r.Get("/quota", usageHandler.Quota)

		// Own-session management
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", sessionHandler.Get)
			r.Delete("/", sessionHandler.Delete)
			r.Post("/clear", sessionHandler.ClearHistory)
			r.Post("/model", sessionHandler.SwitchModel)
			r.With(mw.RequireTier(domain.TierTeamLead)).Get("/all", sessionHandler.ListByTenant)
		})

		// Tenant-scoped management (team_lead+)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireTier(domain.TierTeamLead))

			r.Route("/keys", func(r chi.Router) {
				r.Post("/", credentialHandler.Create)
				r.Get("/", credentialHandler.List)
				r.Post("/{id}/revoke", credentialHandler.Revoke)
				r.Delete("/{id}", credentialHandler.Delete)
			})

			r.Get("/usage/summary", usageHandler.Summary)
			r.Get("/usage/recent", usageHandler.Recent)
		})

		// Admin surface
		r.Route("/admin", func(r chi.Router) {
			r.Use(mw.RequireTier(domain.TierAdmin))

			r.Route("/tenants", func(r chi.Router) {
				r.Post("/", tenantHandler.Create)
				r.Get("/", tenantHandler.List)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", tenantHandler.Get)
					r.Patch("/", tenantHandler.Update)
					r.Delete("/", tenantHandler.Deactivate)
				})
			})

			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", sessionHandler.AdminList)
				r.Get("/stats", sessionHandler.AdminStats)
				r.Post("/sweep", sessionHandler.AdminSweep)
				r.Delete("/{id}", sessionHandler.AdminDelete)
			})
		})
	})

	return app
}

// NewRouter returns just the chi.Mux.
func NewRouter(db *pgxpool.Pool, logger *zap.Logger) *chi.Mux {
	return NewApp(db, logger).Router
}

func healthHandler(db *pgxpool.Pool, aiClient domain.AIClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		status := map[string]string{"status": "ok", "ai": "ok"}
		if !aiClient.HealthCheck(r.Context()) {
			status["ai"] = "unreachable"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(status)
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"sessions":       app.Registry.Count(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.TenantStore     = (*store.TenantStore)(nil)
	_ domain.CredentialStore = (*store.CredentialStore)(nil)
	_ domain.UsageStore      = (*store.UsageStore)(nil)
	_ domain.AIClient        = (*ai.OpenRouterClient)(nil)
	_ domain.AIClient        = (*ai.OpenAIClient)(nil)
	_ domain.AIClient        = (*ai.MockClient)(nil)
)
