// Command seed fills the blog database with fake or fixture content.
package main

import (
	"context"
	"flag"
	"log"

	"blogcms/internal/bootstrap"
	"blogcms/internal/config"
	"blogcms/internal/repository"
	"blogcms/internal/seed"
)

func main() {
	numPosts := flag.Int("posts", 30, "Number of posts to create")
	comments := flag.Int("comments", 4, "Comments per post")
	feedItems := flag.Int("feed", 12, "Number of cached feed items to create")
	maxDays := flag.Int("days", 90, "Spread creation times over this many past days")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible runs (0 = time based)")
	shouldClean := flag.Bool("clean", true, "Delete existing content before seeding")
	fixture := flag.String("fixture", "", "Load a YAML fixture instead of fake data (\"demo\" for the built-in set)")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{EnsureAdmin: true, SkipRedis: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = rt.Close() }()

	// Seeded posts are attributed to the bootstrap admin when it exists.
	var authorID *uint
	if admin, err := repository.NewAccountRepository(rt.DB).GetByUsername(ctx, cfg.BootstrapAdminUsername); err == nil {
		authorID = &admin.ID
	}

	if *fixture != "" {
		var fx *seed.Fixture
		if *fixture == "demo" {
			fx, err = seed.DemoFixture()
		} else {
			fx, err = seed.LoadFixture(*fixture)
		}
		if err != nil {
			log.Fatalf("❌ Fixture load failed: %v", err)
		}
		sum, err := seed.ApplyFixture(ctx, rt.DB, fx, authorID)
		if err != nil {
			log.Fatalf("❌ Fixture seeding failed: %v", err)
		}
		log.Printf("✨ Fixture applied: %s", sum)
		return
	}

	log.Printf("Target: %d posts, %d comments each, %d feed items, clean=%v", *numPosts, *comments, *feedItems, *shouldClean)
	sum, err := seed.Seed(ctx, rt.DB, authorID, seed.Options{
		Posts:           *numPosts,
		CommentsPerPost: *comments,
		FeedItems:       *feedItems,
		MaxDays:         *maxDays,
		Seed:            *randSeed,
		Clean:           *shouldClean,
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
	log.Printf("✨ All done! Inserted %s", sum)
}
