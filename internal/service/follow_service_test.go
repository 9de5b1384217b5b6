package service

import (
	"context"
	"errors"
	"testing"

	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowService_SelfFollowRejected(t *testing.T) {
	leo := &models.User{ID: 1, Username: "leo"}
	follows := &followRepoStub{
		createFn: func(context.Context, uint, uint) (bool, error) {
			t.Fatal("self-follow must not reach storage")
			return false, nil
		},
	}
	svc := NewFollowService(usersByName(leo), follows)

	err := svc.Follow(context.Background(), leo.ID, "leo")
	assert.True(t, errors.Is(err, models.ErrSelfFollow))
	assert.Equal(t, models.CodeValidation, models.CodeOf(err))
}

func TestFollowService_UnknownAuthor(t *testing.T) {
	svc := NewFollowService(usersByName(), &followRepoStub{})

	err := svc.Follow(context.Background(), 1, "ghost")
	assert.Equal(t, models.CodeNotFound, models.CodeOf(err))
	err = svc.Unfollow(context.Background(), 1, "ghost")
	assert.Equal(t, models.CodeNotFound, models.CodeOf(err))
}

func TestFollowService_PassesEdge(t *testing.T) {
	leo := &models.User{ID: 7, Username: "leo"}
	var gotUser, gotAuthor uint
	follows := &followRepoStub{
		createFn: func(_ context.Context, userID, authorID uint) (bool, error) {
			gotUser, gotAuthor = userID, authorID
			return true, nil
		},
	}
	svc := NewFollowService(usersByName(leo), follows)

	require.NoError(t, svc.Follow(context.Background(), 3, "leo"))
	assert.Equal(t, uint(3), gotUser)
	assert.Equal(t, uint(7), gotAuthor)
}

func TestFollowService_RoundTrip(t *testing.T) {
	db := testutil.NewDB(t)
	follows := repository.NewFollowRepository(db)
	svc := NewFollowService(repository.NewUserRepository(db, nil), follows)
	ctx := context.Background()

	leo := testutil.MakeUser(t, db, "leo")
	kate := testutil.MakeUser(t, db, "kate")

	ok, err := svc.IsFollowing(ctx, kate.ID, leo.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.Follow(ctx, kate.ID, "leo"))
	require.NoError(t, svc.Follow(ctx, kate.ID, "leo"))

	n, err := follows.CountFollowers(ctx, leo.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "following twice yields one edge")

	ok, err = svc.IsFollowing(ctx, kate.ID, leo.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	edges, err := svc.ListFollows(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, edges, 1)

	require.NoError(t, svc.Unfollow(ctx, kate.ID, "leo"))
	require.NoError(t, svc.Unfollow(ctx, kate.ID, "leo"))

	ok, err = svc.IsFollowing(ctx, kate.ID, leo.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.IsFollowing(ctx, leo.ID, leo.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
