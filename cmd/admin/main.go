// Package main provides staff management utilities for the blog.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"randomblog/internal/config"
	"randomblog/internal/database"
	"randomblog/internal/models"
	"randomblog/internal/repository"
	"randomblog/internal/service"
)

// Staff status is only ever granted here, never at boot or sign-in.
func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	auth := service.NewAuthService(repository.NewUserRepository(db))
	ctx := context.Background()

	switch command := os.Args[1]; command {
	case "promote", "demote":
		if len(os.Args) < 3 {
			fmt.Printf("Usage: go run ./cmd/admin %s <username>\n", command)
			os.Exit(1)
		}
		setStaff(ctx, auth, os.Args[2], command == "promote")

	case "list-staff":
		listStaff(ctx, auth)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin promote <username>   - Grant staff access")
	fmt.Println("  go run ./cmd/admin demote <username>    - Revoke staff access")
	fmt.Println("  go run ./cmd/admin list-staff           - List staff accounts")
}

func setStaff(ctx context.Context, auth *service.AuthService, username string, staff bool) {
	if err := auth.SetStaff(ctx, username, staff); err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			fmt.Printf("User %q not found\n", username)
			os.Exit(1)
		}
		log.Fatalf("Failed to update user: %v", err)
	}

	if staff {
		fmt.Printf("✅ %s is now staff\n", username)
	} else {
		fmt.Printf("✅ %s is no longer staff\n", username)
	}
}

func listStaff(ctx context.Context, auth *service.AuthService) {
	staff, err := auth.ListStaff(ctx)
	if err != nil {
		log.Fatalf("Failed to fetch staff: %v", err)
	}

	if len(staff) == 0 {
		fmt.Println("No staff accounts found")
		return
	}

	fmt.Println("\n📋 Staff:")
	fmt.Println("─────────────────────────────────────")
	for _, u := range staff {
		fmt.Printf("ID: %d | Username: %s | Email: %s\n", u.ID, u.Username, u.Email)
	}
	fmt.Println("─────────────────────────────────────")
}
