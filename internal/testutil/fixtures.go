package testutil

import (
	"strings"
	"testing"
	"time"

	"yatube/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// MakeUser persists a user with the given username and a fake email.
// The password hash is a placeholder; use the auth service to create
// users that must log in.
func MakeUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{
		Username:  username,
		Email:     strings.ToLower(username) + "." + gofakeit.Username() + "@example.com",
		Password:  "!unusable",
		FirstName: gofakeit.FirstName(),
		LastName:  gofakeit.LastName(),
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// MakeGroup persists a group with the given slug.
func MakeGroup(t testing.TB, db *gorm.DB, slug string) *models.Group {
	t.Helper()
	g := &models.Group{
		Title:       gofakeit.Sentence(3),
		Slug:        slug,
		Description: gofakeit.Paragraph(1, 2, 8, " "),
	}
	if err := db.Create(g).Error; err != nil {
		t.Fatalf("create group %s: %v", slug, err)
	}
	return g
}

// PostOption customizes MakePost.
type PostOption func(*models.Post)

// InGroup tags the post with g.
func InGroup(g *models.Group) PostOption {
	return func(p *models.Post) { p.GroupID = &g.ID }
}

// WithText sets the post text.
func WithText(text string) PostOption {
	return func(p *models.Post) { p.Text = text }
}

// At sets the creation time.
func At(ts time.Time) PostOption {
	return func(p *models.Post) { p.CreatedAt = ts }
}

// MakePost persists a post by author.
func MakePost(t testing.TB, db *gorm.DB, author *models.User, opts ...PostOption) *models.Post {
	t.Helper()
	p := &models.Post{Text: gofakeit.Sentence(8), AuthorID: author.ID}
	for _, opt := range opts {
		opt(p)
	}
	if err := db.Omit("Author", "Group", "Comments").Create(p).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

// MakePosts persists n posts by author, one second apart, oldest first.
func MakePosts(t testing.TB, db *gorm.DB, author *models.User, n int, opts ...PostOption) []*models.Post {
	t.Helper()
	base := time.Now().Add(-time.Duration(n) * time.Second)
	out := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		all := append([]PostOption{At(base.Add(time.Duration(i) * time.Second))}, opts...)
		out = append(out, MakePost(t, db, author, all...))
	}
	return out
}
