package repository

import (
	"context"
	"fmt"

	"yatube/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	// ListByPost returns a post's comments newest first.
	ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error)
	// Search lists comments across posts, newest first, filtered by text.
	Search(ctx context.Context, query string, limit, offset int) ([]*models.Comment, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit("Author").Create(comment).Error; err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("list comments of post %d: %w", postID, err)
	}
	return comments, nil
}

func (r *commentRepository) Search(ctx context.Context, query string, limit, offset int) ([]*models.Comment, error) {
	var comments []*models.Comment
	q := r.db.WithContext(ctx).Preload("Author").Order("created_at DESC").Order("id DESC")
	if query != "" {
		q = q.Where("LOWER(text) LIKE ? ESCAPE '\\'", likePattern(query))
	}
	if err := q.Limit(limit).Offset(offset).Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("search comments: %w", err)
	}
	return comments, nil
}
