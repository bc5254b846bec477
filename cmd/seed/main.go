// Command main runs the database seeder for the blog.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"randomblog/internal/config"
	"randomblog/internal/database"
	"randomblog/internal/seed"
)

func main() {
	// Parse command line flags
	fixtures := flag.String("fixtures", "", "YAML fixture file (defaults to the bundled posts)")
	skipFixtures := flag.Bool("skip-fixtures", false, "Do not load fixture posts")
	numPosts := flag.Int("posts", 10, "Number of generated published posts")
	numDrafts := flag.Int("drafts", 2, "Number of generated draft posts")
	numReaders := flag.Int("readers", 5, "Number of reader accounts to create")
	visits := flag.Int("visits", 4, "Post views recorded per reader")
	shouldClean := flag.Bool("clean", false, "Delete all posts and visits before seeding")
	randomSeed := flag.Int64("seed", time.Now().UnixNano(), "Random seed for generated content")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d posts, %d drafts, %d readers, clean=%v\n", *numPosts, *numDrafts, *numReaders, *shouldClean)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	res, err := seed.NewSeeder(db).Run(context.Background(), seed.Options{
		FixturePath:     *fixtures,
		SkipFixtures:    *skipFixtures,
		NumPosts:        *numPosts,
		NumDrafts:       *numDrafts,
		NumReaders:      *numReaders,
		VisitsPerReader: *visits,
		ShouldClean:     *shouldClean,
		RandomSeed:      *randomSeed,
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ All done! %d posts (%d skipped), %d readers, %d visits.\n", res.Posts, res.Skipped, res.Readers, res.Visits)
	if res.Readers > 0 {
		log.Printf("📧 All demo readers have the password: %s\n", seed.DemoPassword)
	}
}
