// Command seed fills the database with demo data.
package main

import (
	"context"
	"flag"
	"log"

	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/seed"
)

func main() {
	opts := seed.Options{}
	flag.IntVar(&opts.Users, "users", 20, "number of users to create")
	flag.IntVar(&opts.PostsPerUser, "posts", 15, "posts per user")
	flag.IntVar(&opts.CommentsPerPost, "comments", 2, "comments per post")
	flag.IntVar(&opts.FollowsPerUser, "follows", 5, "follow attempts per user")
	flag.BoolVar(&opts.Clean, "clean", false, "delete existing data first")
	flag.BoolVar(&opts.SkipBcrypt, "fast", false, "store the demo password unhashed (logins will fail)")
	flag.IntVar(&opts.MaxDays, "days", 90, "spread post dates over this many days")
	flag.StringVar(&opts.GroupsFile, "groups", "", "YAML file with group fixtures (default: built-in)")
	flag.Int64Var(&opts.RandomSeed, "seed", 0, "random seed for a reproducible run")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	sum, err := seed.NewSeeder(db, opts).Run(ctx)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Created %d users, %d groups, %d posts, %d comments, %d follows",
		sum.Users, sum.Groups, sum.Posts, sum.Comments, sum.Follows)
	if !opts.SkipBcrypt {
		log.Printf("All seeded users have the password: %s", seed.DemoPassword)
	}
}
