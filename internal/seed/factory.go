// Package seed fills a database with demo users, groups, posts, comments
// and follows. It is meant for development and tests only.
package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"yatube/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password of every seeded user.
const DemoPassword = "yatube-demo-password"

// Factory builds domain entities and persists them.
type Factory struct {
	db   *gorm.DB
	opts Options
	rnd  *rand.Rand
	hash string
}

// NewFactory creates a Factory bound to db. The bcrypt hash of
// DemoPassword is computed once and shared by every user.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	seed := opts.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)

	hash := DemoPassword
	if !opts.SkipBcrypt {
		b, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		hash = string(b)
	}
	// #nosec G404: acceptable for seeding
	return &Factory{db: db, opts: opts, rnd: rand.New(rand.NewSource(seed)), hash: hash}, nil
}

// CreateUser persists a user with fake names. n keeps usernames unique.
func (f *Factory) CreateUser(n int, overrides ...func(*models.User)) (*models.User, error) {
	first, last := gofakeit.FirstName(), gofakeit.LastName()
	username := strings.ToLower(fmt.Sprintf("%s_%s%d", first, last, n))
	username = strings.Map(func(r rune) rune {
		if r == '_' || r == '.' || r == '-' || r == '+' || r == '@' ||
			(r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, username)

	user := &models.User{
		Username:  username,
		Email:     username + "@example.com",
		Password:  f.hash,
		FirstName: first,
		LastName:  last,
	}
	for _, override := range overrides {
		override(user)
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs an unsaved post by author, spread over the last
// MaxDays days and tagged with one of groups about two thirds of the time.
func (f *Factory) BuildPost(author *models.User, groups []models.Group) *models.Post {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	post := &models.Post{
		Text:     gofakeit.Paragraph(1, f.rnd.Intn(4)+1, 12, " "),
		AuthorID: author.ID,
		CreatedAt: time.Now().Add(-time.Duration(f.rnd.Intn(maxDays))*24*time.Hour -
			time.Duration(f.rnd.Intn(24*60))*time.Minute),
	}
	if len(groups) > 0 && f.rnd.Intn(3) > 0 {
		id := groups[f.rnd.Intn(len(groups))].ID
		post.GroupID = &id
	}
	return post
}

// CreatePostsBatch persists posts in batches of BatchSize.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	return f.db.Omit("Author", "Group", "Comments").CreateInBatches(posts, f.batchSize()).Error
}

// CreateComment persists a short comment by author on post.
func (f *Factory) CreateComment(author *models.User, post *models.Post) (*models.Comment, error) {
	comment := &models.Comment{
		Text:      gofakeit.Sentence(f.rnd.Intn(12) + 3),
		PostID:    post.ID,
		AuthorID:  author.ID,
		CreatedAt: post.CreatedAt.Add(time.Duration(f.rnd.Intn(72)+1) * time.Hour),
	}
	if err := f.db.Omit("Author").Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateFollow persists user -> author unless the edge already exists.
func (f *Factory) CreateFollow(user, author *models.User) (bool, error) {
	if user.ID == author.ID {
		return false, nil
	}
	res := f.db.Where(models.Follow{UserID: user.ID, AuthorID: author.ID}).
		FirstOrCreate(&models.Follow{})
	return res.RowsAffected > 0, res.Error
}

func (f *Factory) batchSize() int {
	if f.opts.BatchSize > 0 {
		return f.opts.BatchSize
	}
	return 100
}
