package api

import (
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/aksjeradar/aksjeradar/internal/config"
	"github.com/aksjeradar/aksjeradar/internal/handlers"
	"github.com/aksjeradar/aksjeradar/internal/middleware"
	"github.com/aksjeradar/aksjeradar/internal/services"
	"github.com/aksjeradar/aksjeradar/internal/websocket"
)

// Services bundles the server's service layer
type Services struct {
	DB        *gorm.DB
	Auth      services.AuthService
	Users     services.UserService
	Quotes    *services.QuoteService
	Watchlist *services.WatchlistService
	Portfolio *services.PortfolioService
	Alerts    *services.AlertService
	ErrorLog  *services.ErrorLogService
}

// NewServices creates the services. Quotes are cached in Redis when
// redisClient is non-nil and in memory otherwise.
func NewServices(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *Services {
	var cache services.QuoteCache = services.NewMemoryQuoteCache()
	if redisClient != nil {
		cache = services.NewRedisQuoteCache(redisClient)
	}
	return &Services{
		DB:        db,
		Auth:      services.NewAuthService(db),
		Users:     services.NewUserService(db),
		Quotes:    services.NewQuoteService(db, cache, cfg.Server.QuoteTTL),
		Watchlist: services.NewWatchlistService(db),
		Portfolio: services.NewPortfolioService(db),
		Alerts:    services.NewAlertService(db),
		ErrorLog:  services.NewErrorLogService(db),
	}
}

// SetupRouter configures all routes and returns the router
func SetupRouter(svc *Services, wsHub *websocket.Hub, cfg *config.Config) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/api/health", HealthHandler(svc.DB)).Methods("GET")
	if wsHub != nil {
		router.HandleFunc("/ws", wsHub.HandleWebSocket)
	}

	// Public endpoints. A valid token is still attached so the CSRF token
	// and error reports are bound to the caller.
	public := router.NewRoute().Subrouter()
	public.Use(middleware.OptionalAuth(cfg.JWT.SecretKey))
	handlers.NewAuthHandler(svc.Auth, cfg.JWT.SecretKey, cfg.JWT.CSRFKey, cfg.JWT.TTL).RegisterRoutes(public)
	handlers.NewRealtimeHandler(svc.Quotes).RegisterRoutes(public)
	handlers.NewErrorLogHandler(svc.ErrorLog).RegisterRoutes(public)

	// Authenticated endpoints; mutations also need the CSRF token
	authRouter := router.NewRoute().Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg.JWT.SecretKey), middleware.CSRFMiddleware(cfg.JWT.CSRFKey))
	handlers.NewUserHandler(svc.Users).RegisterRoutes(authRouter)
	handlers.NewWatchlistHandler(svc.Watchlist).RegisterRoutes(authRouter)
	handlers.NewPortfolioHandler(svc.Portfolio).RegisterRoutes(authRouter)
	handlers.NewAlertHandler(svc.Alerts).RegisterRoutes(authRouter)

	return router
}
