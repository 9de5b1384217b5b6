package service

import (
	"context"

	"yatube/internal/models"
	"yatube/internal/observability"
	"yatube/internal/repository"
)

// FollowService mutates the follow graph.
type FollowService struct {
	users   repository.UserRepository
	follows repository.FollowRepository
}

func NewFollowService(users repository.UserRepository, follows repository.FollowRepository) *FollowService {
	return &FollowService{users: users, follows: follows}
}

// Follow makes userID follow authorUsername. Following twice is a no-op;
// following yourself is ErrSelfFollow.
func (s *FollowService) Follow(ctx context.Context, userID uint, authorUsername string) error {
	author, err := s.users.GetByUsername(ctx, authorUsername)
	if err != nil {
		return err
	}
	if author.ID == userID {
		observability.FollowChanges.WithLabelValues("rejected").Inc()
		return models.ErrSelfFollow
	}

	created, err := s.follows.Create(ctx, userID, author.ID)
	if err != nil {
		return err
	}
	if created {
		observability.FollowChanges.WithLabelValues("follow").Inc()
	}
	return nil
}

// Unfollow removes the edge if present.
func (s *FollowService) Unfollow(ctx context.Context, userID uint, authorUsername string) error {
	author, err := s.users.GetByUsername(ctx, authorUsername)
	if err != nil {
		return err
	}
	deleted, err := s.follows.Delete(ctx, userID, author.ID)
	if err != nil {
		return err
	}
	if deleted {
		observability.FollowChanges.WithLabelValues("unfollow").Inc()
	}
	return nil
}

// IsFollowing reports whether userID follows authorID. Anonymous viewers and
// authors viewing themselves never follow.
func (s *FollowService) IsFollowing(ctx context.Context, userID, authorID uint) (bool, error) {
	if userID == 0 || userID == authorID {
		return false, nil
	}
	return s.follows.Exists(ctx, userID, authorID)
}

// ListFollows pages through every edge, newest first.
func (s *FollowService) ListFollows(ctx context.Context, limit, offset int) ([]*models.Follow, error) {
	return s.follows.List(ctx, limit, offset)
}
