package seed

import (
	"os"
	"path/filepath"
	"testing"

	"yatube/internal/models"
	"yatube/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestDefaultGroups(t *testing.T) {
	groups, err := DefaultGroups()
	require.NoError(t, err)
	require.NotEmpty(t, groups)
	assert.Equal(t, "tolstoy", groups[0].Slug)
}

func TestLoadGroups_Rejects(t *testing.T) {
	tests := map[string]string{
		"duplicate slug": "groups:\n  - {title: A, slug: a}\n  - {title: B, slug: a}\n",
		"bad slug":       "groups:\n  - {title: A, slug: 'not a slug'}\n",
		"unknown field":  "groups:\n  - {title: A, slug: a, colour: red}\n",
		"blank title":    "groups:\n  - {title: ' ', slug: a}\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "groups.yml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
			_, err := LoadGroups(path)
			assert.Error(t, err)
		})
	}
}

func TestSeeder_Run(t *testing.T) {
	db := testutil.NewDB(t)
	opts := Options{
		Users:           4,
		PostsPerUser:    3,
		CommentsPerPost: 2,
		FollowsPerUser:  3,
		SkipBcrypt:      true,
		RandomSeed:      42,
		BatchSize:       5,
	}

	sum, err := NewSeeder(db, opts).Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Users)
	assert.Equal(t, 12, sum.Posts)
	assert.Equal(t, 24, sum.Comments)

	count := func(model any) int64 {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		return n
	}
	assert.EqualValues(t, 4, count(&models.User{}))
	assert.EqualValues(t, 12, count(&models.Post{}))
	assert.EqualValues(t, 24, count(&models.Comment{}))
	assert.EqualValues(t, sum.Follows, count(&models.Follow{}))
	assert.EqualValues(t, sum.Groups, count(&models.Group{}))

	var selfFollows int64
	require.NoError(t, db.Model(&models.Follow{}).Where("user_id = author_id").Count(&selfFollows).Error)
	assert.Zero(t, selfFollows)

	// Groups are upserted, and Clean wipes the rest.
	opts.Clean = true
	opts.Users = 1
	_, err = NewSeeder(db, opts).Run(t.Context())
	require.NoError(t, err)
	assert.EqualValues(t, 1, count(&models.User{}))
	assert.EqualValues(t, sum.Groups, count(&models.Group{}))
}

func TestFactory_PasswordsAreHashed(t *testing.T) {
	db := testutil.NewDB(t)
	f, err := NewFactory(db, Options{RandomSeed: 7})
	require.NoError(t, err)

	u, err := f.CreateUser(1)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(DemoPassword)))
	assert.Regexp(t, `^[a-z0-9_.@+-]+$`, u.Username)
}
