// seed loads the role catalog and the default device limit. Idempotent: roles
// are upserted and an existing device limit is left alone.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"transapp-auth/internal/config"
	"transapp-auth/internal/db"
	"transapp-auth/internal/store"
)

func main() {
	catalogPath := flag.String("catalog", "", "YAML role catalog (default: embedded roles.yaml)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	data := defaultCatalog
	if *catalogPath != "" {
		if data, err = os.ReadFile(*catalogPath); err != nil {
			log.Fatalf("read catalog: %v", err)
		}
	}
	roles, err := parseCatalog(data)
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	if err := seed(ctx, store.NewPostgresStore(pool), roles, cfg.DefaultDeviceLimit); err != nil {
		log.Fatalf("seed: %v", err)
	}
	log.Printf("Seed completed: %d roles, default device limit %d.", len(roles), cfg.DefaultDeviceLimit)
}
