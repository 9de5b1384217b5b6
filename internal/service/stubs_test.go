package service

import (
	"context"
	"sync"

	"yatube/internal/models"
)

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn        func(context.Context, uint) (*models.User, error)
	getByUsernameFn  func(context.Context, string) (*models.User, error)
	getCredentialsFn func(context.Context, string) (*models.User, error)
	existsByEmailFn  func(context.Context, string) (bool, error)
	createFn         func(context.Context, *models.User) error
	listFn           func(context.Context, int, int) ([]*models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) GetCredentials(ctx context.Context, username string) (*models.User, error) {
	return s.getCredentialsFn(ctx, username)
}
func (s *userRepoStub) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.existsByEmailFn(ctx, email)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	return s.listFn(ctx, limit, offset)
}

func usersByName(users ...*models.User) *userRepoStub {
	byName := map[string]*models.User{}
	for _, u := range users {
		byName[u.Username] = u
	}
	return &userRepoStub{
		getByUsernameFn: func(_ context.Context, name string) (*models.User, error) {
			if u, ok := byName[name]; ok {
				return u, nil
			}
			return nil, models.NewNotFoundError("user", name)
		},
	}
}

// followRepoStub is a stub for repository.FollowRepository.
type followRepoStub struct {
	createFn         func(context.Context, uint, uint) (bool, error)
	deleteFn         func(context.Context, uint, uint) (bool, error)
	existsFn         func(context.Context, uint, uint) (bool, error)
	countFollowersFn func(context.Context, uint) (int64, error)
	countFollowingFn func(context.Context, uint) (int64, error)
	listFn           func(context.Context, int, int) ([]*models.Follow, error)
}

func (s *followRepoStub) Create(ctx context.Context, userID, authorID uint) (bool, error) {
	return s.createFn(ctx, userID, authorID)
}
func (s *followRepoStub) Delete(ctx context.Context, userID, authorID uint) (bool, error) {
	return s.deleteFn(ctx, userID, authorID)
}
func (s *followRepoStub) Exists(ctx context.Context, userID, authorID uint) (bool, error) {
	return s.existsFn(ctx, userID, authorID)
}
func (s *followRepoStub) CountFollowers(ctx context.Context, authorID uint) (int64, error) {
	return s.countFollowersFn(ctx, authorID)
}
func (s *followRepoStub) CountFollowing(ctx context.Context, userID uint) (int64, error) {
	return s.countFollowingFn(ctx, userID)
}
func (s *followRepoStub) List(ctx context.Context, limit, offset int) ([]*models.Follow, error) {
	return s.listFn(ctx, limit, offset)
}

// imageStoreStub records saved and removed images without touching disk.
type imageStoreStub struct {
	mu      sync.Mutex
	saveErr error
	saved   []string
	removed []string
}

func (s *imageStoreStub) Save(_ context.Context, in ImageUpload) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return "", s.saveErr
	}
	rel := "posts/" + in.Filename
	s.saved = append(s.saved, rel)
	return rel, nil
}

func (s *imageStoreStub) Remove(rel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, rel)
	return nil
}
