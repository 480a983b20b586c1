// Command print_routes lists every route the server registers.
package main

import (
	"log"
	"os"

	"github.com/aksjeradar/aksjeradar/internal/api"
	"github.com/aksjeradar/aksjeradar/internal/config"
	"github.com/aksjeradar/aksjeradar/internal/db"
)

func main() {
	// Routes do not depend on stored data, so an in-memory database is enough.
	cfg := config.Load()
	cfg.Database.URL = "sqlite:file::memory:"
	database, err := db.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	router := api.SetupRouter(api.NewServices(database, nil, cfg), nil, cfg)
	if err := api.PrintRoutes(os.Stdout, router); err != nil {
		log.Fatal(err)
	}
}
