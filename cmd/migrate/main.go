// Command migrate runs schema operations for the blog. The server only
// auto-migrates outside production, so production schemas are applied here.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"randomblog/internal/config"
	"randomblog/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <auto|status>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "auto":
		if err := database.Migrate(db); err != nil {
			return err
		}
		log.Println("automigrations applied")
	case "status":
		missing, err := database.MissingTables(db)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		log.Printf("env=%s driver=%s models=%d missing=%d", cfg.Env, cfg.DBDriver, len(database.PersistentModels()), len(missing))
		for _, table := range missing {
			log.Printf("missing: %s", table)
		}
	default:
		return usage()
	}

	return nil
}
