package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/aksjeradar/aksjeradar/internal/api"
	"github.com/aksjeradar/aksjeradar/internal/config"
	"github.com/aksjeradar/aksjeradar/internal/db"
	"github.com/aksjeradar/aksjeradar/internal/middleware"
	"github.com/aksjeradar/aksjeradar/internal/tasks"
	"github.com/aksjeradar/aksjeradar/internal/websocket"
)

func main() {
	cfg := config.Load()

	// Initialize database connection
	database, err := db.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Redis is optional; quotes fall back to an in-process cache
	redisClient, err := db.ConnectRedis(cfg.Redis)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v", err)
		redisClient = nil
	}

	svc := api.NewServices(database, redisClient, cfg)
	if os.Getenv("SEED_QUOTES") == "1" {
		if err := db.SeedQuotes(context.Background(), svc.Quotes); err != nil {
			log.Printf("Warning: seeding quotes: %v", err)
		}
	}

	wsHub := websocket.NewHub()
	go wsHub.Run()

	taskManager := tasks.NewManager(svc.Quotes, svc.Alerts, wsHub, cfg.Server.BroadcastInterval)
	taskManager.StartScheduledTasks()

	router := api.SetupRouter(svc, wsHub, cfg)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.CSRFHeader},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           corsMiddleware.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Server starting on port %s", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}

	taskManager.StopAllTasks()
	wsHub.Close()
	if redisClient != nil {
		redisClient.Close()
	}
	log.Println("Server stopped")
}
