// Command admin manages groups, posts, comments and follows from the shell.
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/repository"
	"yatube/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// app holds the services every subcommand works through.
type app struct {
	db       *gorm.DB
	redis    *redis.Client
	groups   *service.GroupService
	posts    *service.PostService
	comments *service.CommentService
	follows  *service.FollowService
}

var admin app

var rootCmd = &cobra.Command{
	Use:           "admin",
	Short:         "Manage yatube content",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return admin.open(cmd.Context())
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		admin.close()
	},
}

func (a *app) open(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	a.db = db
	a.redis = cache.Connect(ctx, cfg.RedisURL)
	c := cache.New(a.redis)

	users := repository.NewUserRepository(db, c)
	groups := repository.NewGroupRepository(db, c)
	posts := repository.NewPostRepository(db)

	a.groups = service.NewGroupService(groups)
	a.posts = service.NewPostService(posts, groups, service.NewImageService(cfg))
	a.comments = service.NewCommentService(posts, repository.NewCommentRepository(db))
	a.follows = service.NewFollowService(users, repository.NewFollowRepository(db))
	return nil
}

func (a *app) close() {
	if a.db != nil {
		_ = database.Close(a.db)
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

func table(cmd *cobra.Command) *tabwriter.Writer {
	return tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
