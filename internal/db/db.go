package db

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/aksjeradar/aksjeradar/internal/config"
	"github.com/aksjeradar/aksjeradar/internal/models"
	"github.com/aksjeradar/aksjeradar/internal/services"
)

// Connect establishes a connection to the database. URLs starting with
// sqlite: open a SQLite file, anything else is handed to Postgres.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if path, ok := strings.CutPrefix(cfg.URL, "sqlite:"); ok {
		dialector = sqlite.Open(path)
	} else {
		dialector = postgres.Open(cfg.URL)
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	// Create a default admin user if none exists
	createDefaultAdmin(db)

	return db, nil
}

// Migrate creates or updates every table the server uses
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.WatchlistEntry{},
		&models.Quote{},
		&models.Portfolio{},
		&models.Position{},
		&models.PriceAlert{},
		&models.ClientError{},
	)
}

// ConnectRedis establishes a connection to Redis
func ConnectRedis(cfg config.RedisConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Test the connection
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, err
	}

	return client, nil
}

// createDefaultAdmin creates an admin from ADMIN_USERNAME and
// ADMIN_PASSWORD if no users exist
func createDefaultAdmin(db *gorm.DB) {
	users := services.NewUserService(db)
	if n, err := users.CountUsers(); err != nil || n > 0 {
		return
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		log.Println("[db] no users and ADMIN_PASSWORD unset, skipping default admin")
		return
	}
	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}
	if _, err := users.CreateUser(models.User{Username: username, Role: "admin"}, password); err != nil {
		log.Printf("[db] create default admin: %v", err)
		return
	}
	log.Printf("[db] created default admin user %q", username)
}

// SeedQuotes stores a starting set of quotes so a fresh development
// database has something to serve
func SeedQuotes(ctx context.Context, quotes *services.QuoteService) error {
	seed := []models.Quote{
		{Symbol: "^OSEBX", Category: models.CategoryIndex, Name: "Oslo Børs Benchmark", Price: decimal.RequireFromString("1412.35")},
		{Symbol: "EQNR.OL", Category: models.CategoryOslo, Name: "Equinor", Price: decimal.RequireFromString("289.40")},
		{Symbol: "DNB.OL", Category: models.CategoryOslo, Name: "DNB Bank", Price: decimal.RequireFromString("214.80")},
		{Symbol: "NHY.OL", Category: models.CategoryOslo, Name: "Norsk Hydro", Price: decimal.RequireFromString("63.12")},
		{Symbol: "AAPL", Category: models.CategoryGlobal, Name: "Apple", Price: decimal.RequireFromString("227.50")},
		{Symbol: "BTC-USD", Category: models.CategoryCrypto, Name: "Bitcoin", Price: decimal.RequireFromString("64250")},
	}
	for _, q := range seed {
		if err := quotes.Upsert(ctx, q); err != nil {
			return err
		}
	}
	log.Printf("[db] seeded %d quotes", len(seed))
	return nil
}
