package repository

import (
	"context"
	"fmt"

	"yatube/internal/cache"
	"yatube/internal/models"

	"gorm.io/gorm"
)

// GroupRepository defines persistence operations for groups.
type GroupRepository interface {
	GetBySlug(ctx context.Context, slug string) (*models.Group, error)
	GetByID(ctx context.Context, id uint) (*models.Group, error)
	// List returns groups ordered by title; search filters titles case-insensitively.
	List(ctx context.Context, search string) ([]*models.Group, error)
	Create(ctx context.Context, group *models.Group) error
	Update(ctx context.Context, group *models.Group, oldSlug string) error
	Delete(ctx context.Context, slug string) error
}

type groupRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewGroupRepository returns a GroupRepository with slug lookups cached in Redis.
func NewGroupRepository(db *gorm.DB, c *cache.Cache) GroupRepository {
	return &groupRepository{db: db, cache: c}
}

func (r *groupRepository) GetBySlug(ctx context.Context, slug string) (*models.Group, error) {
	var group models.Group
	err := r.cache.Aside(ctx, cache.GroupKey(slug), &group, cache.GroupTTL, func() error {
		if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&group).Error; err != nil {
			return notFoundOr(err, "group", slug)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *groupRepository) GetByID(ctx context.Context, id uint) (*models.Group, error) {
	var group models.Group
	if err := r.db.WithContext(ctx).First(&group, id).Error; err != nil {
		return nil, notFoundOr(err, "group", id)
	}
	return &group, nil
}

func (r *groupRepository) List(ctx context.Context, search string) ([]*models.Group, error) {
	var groups []*models.Group
	q := r.db.WithContext(ctx).Order("title ASC, id ASC")
	if search != "" {
		q = q.Where("LOWER(title) LIKE ? ESCAPE '\\'", likePattern(search))
	}
	if err := q.Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

func (r *groupRepository) Create(ctx context.Context, group *models.Group) error {
	if err := r.db.WithContext(ctx).Create(group).Error; err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

func (r *groupRepository) Update(ctx context.Context, group *models.Group, oldSlug string) error {
	err := r.db.WithContext(ctx).Model(group).
		Select("title", "slug", "description", "updated_at").
		Updates(group).Error
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	r.cache.Invalidate(ctx, cache.GroupKey(oldSlug), cache.GroupKey(group.Slug))
	return nil
}

func (r *groupRepository) Delete(ctx context.Context, slug string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if err := tx.Where("slug = ?", slug).First(&group).Error; err != nil {
			return notFoundOr(err, "group", slug)
		}
		// Posts outlive their group.
		if err := tx.Model(&models.Post{}).Where("group_id = ?", group.ID).Update("group_id", nil).Error; err != nil {
			return fmt.Errorf("detach posts: %w", err)
		}
		return tx.Delete(&group).Error
	})
	if err != nil {
		return err
	}
	r.cache.Invalidate(ctx, cache.GroupKey(slug))
	return nil
}
