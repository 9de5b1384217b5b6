package seed

import (
	"context"
	"fmt"
	"log/slog"

	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/service"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Options configures a seeding run.
type Options struct {
	Users           int
	PostsPerUser    int
	CommentsPerPost int
	FollowsPerUser  int
	Clean           bool
	SkipBcrypt      bool
	MaxDays         int
	BatchSize       int
	// GroupsFile overrides the embedded group fixtures.
	GroupsFile string
	// RandomSeed makes a run reproducible; 0 seeds from the clock.
	RandomSeed int64
}

// Summary counts what a run created.
type Summary struct {
	Users    int
	Groups   int
	Posts    int
	Comments int
	Follows  int
}

// Seeder orchestrates a full seeding run.
type Seeder struct {
	db   *gorm.DB
	opts Options
}

func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, opts: opts}
}

// Run optionally clears the database, then creates groups, users, posts,
// comments and follows.
func (s *Seeder) Run(ctx context.Context) (*Summary, error) {
	db := s.db.WithContext(ctx)
	log := middleware.Logger

	if s.opts.Clean {
		if err := ClearAll(db); err != nil {
			return nil, fmt.Errorf("clear: %w", err)
		}
		log.Info("existing data cleared")
	}

	fixtures, err := s.groupFixtures()
	if err != nil {
		return nil, err
	}
	groups, err := Groups(db, fixtures)
	if err != nil {
		return nil, err
	}

	f, err := NewFactory(db, s.opts)
	if err != nil {
		return nil, err
	}
	sum := &Summary{Groups: len(groups)}

	users := make([]*models.User, 0, s.opts.Users)
	for i := range s.opts.Users {
		u, err := f.CreateUser(i + 1)
		if err != nil {
			return sum, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	sum.Users = len(users)
	log.Info("users created", slog.Int("count", sum.Users))

	posts := make([]*models.Post, 0, len(users)*s.opts.PostsPerUser)
	for _, u := range users {
		for range s.opts.PostsPerUser {
			posts = append(posts, f.BuildPost(u, groups))
		}
	}
	if err := f.CreatePostsBatch(posts); err != nil {
		return sum, fmt.Errorf("create posts: %w", err)
	}
	sum.Posts = len(posts)
	log.Info("posts created", slog.Int("count", sum.Posts))

	if len(users) > 0 {
		for _, p := range posts {
			for range s.opts.CommentsPerPost {
				if _, err := f.CreateComment(users[f.rnd.Intn(len(users))], p); err != nil {
					return sum, fmt.Errorf("create comment: %w", err)
				}
				sum.Comments++
			}
		}
	}

	for _, u := range users {
		for range s.opts.FollowsPerUser {
			created, err := f.CreateFollow(u, users[f.rnd.Intn(len(users))])
			if err != nil {
				return sum, fmt.Errorf("create follow: %w", err)
			}
			if created {
				sum.Follows++
			}
		}
	}

	log.Info("seeding completed",
		slog.Int("groups", sum.Groups),
		slog.Int("comments", sum.Comments),
		slog.Int("follows", sum.Follows),
	)
	return sum, nil
}

func (s *Seeder) groupFixtures() ([]service.GroupInput, error) {
	if s.opts.GroupsFile != "" {
		return LoadGroups(s.opts.GroupsFile)
	}
	return DefaultGroups()
}

// Groups upserts fixtures by slug and returns the stored groups.
func Groups(db *gorm.DB, fixtures []service.GroupInput) ([]models.Group, error) {
	out := make([]models.Group, 0, len(fixtures))
	for _, item := range fixtures {
		g := models.Group{Title: item.Title, Slug: item.Slug, Description: item.Description}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "slug"}},
				DoUpdates: clause.AssignmentColumns([]string{"title", "description", "updated_at"}),
			}).Create(&g).Error; err != nil {
				return err
			}
			// Some drivers leave the id unset after an update on conflict.
			return tx.Where("slug = ?", item.Slug).First(&g).Error
		})
		if err != nil {
			return nil, fmt.Errorf("seed group %s: %w", item.Slug, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// ClearAll removes every row the application owns.
func ClearAll(db *gorm.DB) error {
	if db.Dialector.Name() == "postgres" {
		return db.Exec(`TRUNCATE TABLE comments, follows, posts, groups, users RESTART IDENTITY CASCADE`).Error
	}
	all := db.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, m := range []any{&models.Comment{}, &models.Follow{}, &models.Post{}, &models.Group{}, &models.User{}} {
		if err := all.Delete(m).Error; err != nil {
			return err
		}
	}
	return nil
}
