package main

import (
	"log"

	"github.com/PratikDhanave/creation-sync/internal/config"
	"github.com/PratikDhanave/creation-sync/internal/httpserver"
	"github.com/PratikDhanave/creation-sync/internal/store"
)

// main boots the service: config → store → schema → HTTP server.
func main() {
	// Load runtime config from environment (DB_URL, API_KEYS, credits).
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	var st store.CreationStore
	switch cfg.StoreBackend {
	case config.BackendMemory:
		log.Println("using in-memory store; data is lost on restart")
		st = store.NewMemoryStore(cfg.InitialCredits)
	default:
		// Connect to durable storage (Postgres) using a connection pool.
		db, err := store.NewPostgresStore(cfg.DBURL, cfg.InitialCredits)
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()

		// Ensure required tables/indexes exist so `docker compose up --build` is enough.
		if err := db.EnsureSchema(); err != nil {
			log.Fatal(err)
		}
		st = db
	}

	// Build HTTP router (public health + authenticated APIs).
	router := httpserver.NewRouter(cfg, st)

	log.Printf("server started on %s", cfg.Addr)
	log.Fatal(router.Run(cfg.Addr))
}
