package service

import (
	"context"

	"yatube/internal/models"
	"yatube/internal/observability"
	"yatube/internal/repository"
	"yatube/internal/validation"
)

type CommentService struct {
	posts    repository.PostRepository
	comments repository.CommentRepository
}

// CreateCommentInput is the comment form on the post page.
type CreateCommentInput struct {
	PostID   uint   `form:"-"`
	AuthorID uint   `form:"-"`
	Text     string `form:"text" validate:"notblank,max=5000"`
}

func NewCommentService(posts repository.PostRepository, comments repository.CommentRepository) *CommentService {
	return &CommentService{posts: posts, comments: comments}
}

// AddComment stores a comment on an existing post.
func (s *CommentService) AddComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	if in.AuthorID == 0 {
		return nil, models.NewUnauthorizedError("login required")
	}
	if _, err := s.posts.GetByID(ctx, in.PostID); err != nil {
		return nil, err
	}
	if res := validation.Check(in); !res.Valid() {
		return nil, formError(res.Errors)
	}

	comment := &models.Comment{PostID: in.PostID, AuthorID: in.AuthorID, Text: in.Text}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	observability.CommentsCreated.Inc()
	return comment, nil
}

// ListComments returns a post's comments newest first.
func (s *CommentService) ListComments(ctx context.Context, postID uint) ([]*models.Comment, error) {
	return s.comments.ListByPost(ctx, postID)
}

// SearchComments filters comments across all posts by text.
func (s *CommentService) SearchComments(ctx context.Context, query string, limit, offset int) ([]*models.Comment, error) {
	return s.comments.Search(ctx, query, limit, offset)
}
