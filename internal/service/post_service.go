package service

import (
	"context"

	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/observability"
	"yatube/internal/repository"
	"yatube/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// ImageStore persists post images. ImageService is the production implementation.
type ImageStore interface {
	Save(ctx context.Context, in ImageUpload) (string, error)
	Remove(rel string) error
}

type PostService struct {
	posts  repository.PostRepository
	groups repository.GroupRepository
	images ImageStore
}

// CreatePostInput is the new-post form. AuthorID is always the acting user.
type CreatePostInput struct {
	AuthorID uint         `form:"-"`
	Text     string       `form:"text" validate:"notblank,max=10000"`
	GroupID  *uint        `form:"group"`
	Image    *ImageUpload `form:"-"`
}

// UpdatePostInput is the edit form. ClearImage drops the current image
// when no new one is uploaded.
type UpdatePostInput struct {
	PostID     uint         `form:"-"`
	ActorID    uint         `form:"-"`
	Text       string       `form:"text" validate:"notblank,max=10000"`
	GroupID    *uint        `form:"group"`
	Image      *ImageUpload `form:"-"`
	ClearImage bool         `form:"image-clear"`
}

func NewPostService(posts repository.PostRepository, groups repository.GroupRepository, images ImageStore) *PostService {
	return &PostService{posts: posts, groups: groups, images: images}
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.posts.GetByID(ctx, id)
}

// AuthorPostCount is the number of posts written by authorID.
func (s *PostService) AuthorPostCount(ctx context.Context, authorID uint) (int64, error) {
	return s.posts.Count(ctx, repository.PostFilter{AuthorID: authorID})
}

// ListPosts pages through posts matching filter, newest first.
func (s *PostService) ListPosts(ctx context.Context, filter repository.PostFilter, limit, offset int) ([]*models.Post, error) {
	return s.posts.List(ctx, filter, limit, offset)
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	span, ctx := observability.StartSpan(ctx, "post.create", attribute.Int("post.author_id", int(in.AuthorID)))
	defer span.End()

	if in.AuthorID == 0 {
		return nil, models.NewUnauthorizedError("login required")
	}

	res := validation.Check(in)
	fe := res.Errors
	if err := s.checkGroup(ctx, in.GroupID); err != nil {
		if models.CodeOf(err) != models.CodeValidation {
			return nil, err
		}
		fe = mergeFormErrors(fe, err)
	}
	if len(fe) > 0 {
		return nil, formError(fe)
	}

	post := &models.Post{
		Text:     in.Text,
		AuthorID: in.AuthorID,
		GroupID:  in.GroupID,
	}
	if in.Image != nil && s.images != nil {
		rel, err := s.images.Save(ctx, *in.Image)
		if err != nil {
			return nil, err
		}
		post.Image = rel
	}

	if err := s.posts.Create(ctx, post); err != nil {
		span.SetError(err)
		s.discardImage(ctx, post.Image)
		return nil, err
	}
	observability.PostsWritten.WithLabelValues("create").Inc()
	return post, nil
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	span, ctx := observability.StartSpan(ctx, "post.update", attribute.Int("post.id", int(in.PostID)))
	defer span.End()

	post, err := s.posts.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != in.ActorID {
		return nil, models.NewForbiddenError("only the author can edit this post")
	}

	res := validation.Check(in)
	fe := res.Errors
	if err := s.checkGroup(ctx, in.GroupID); err != nil {
		if models.CodeOf(err) != models.CodeValidation {
			return nil, err
		}
		fe = mergeFormErrors(fe, err)
	}
	if len(fe) > 0 {
		return nil, formError(fe)
	}

	oldImage := post.Image
	post.Text = in.Text
	post.GroupID = in.GroupID
	post.Group = nil
	switch {
	case in.Image != nil && s.images != nil:
		rel, err := s.images.Save(ctx, *in.Image)
		if err != nil {
			return nil, err
		}
		post.Image = rel
	case in.ClearImage:
		post.Image = ""
	}

	if err := s.posts.Update(ctx, post); err != nil {
		span.SetError(err)
		if post.Image != oldImage {
			s.discardImage(ctx, post.Image)
		}
		return nil, err
	}
	if oldImage != "" && oldImage != post.Image {
		s.discardImage(ctx, oldImage)
	}
	observability.PostsWritten.WithLabelValues("update").Inc()
	return s.posts.GetByID(ctx, post.ID)
}

// DeletePost removes a post, its comments and its stored image.
func (s *PostService) DeletePost(ctx context.Context, id uint) error {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		return err
	}
	s.discardImage(ctx, post.Image)
	observability.PostsWritten.WithLabelValues("delete").Inc()
	return nil
}

func (s *PostService) checkGroup(ctx context.Context, groupID *uint) error {
	if groupID == nil {
		return nil
	}
	_, err := s.groups.GetByID(ctx, *groupID)
	if models.CodeOf(err) == models.CodeNotFound {
		return models.NewFormError(map[string][]string{
			"group": {"Select a valid choice. That choice is not one of the available choices."},
		})
	}
	return err
}

// discardImage removes rel unless another post still points at it.
// Identical uploads share one file.
func (s *PostService) discardImage(ctx context.Context, rel string) {
	if rel == "" || s.images == nil {
		return
	}
	refs, err := s.posts.Count(ctx, repository.PostFilter{Image: rel})
	if err != nil {
		middleware.Logger.WarnContext(ctx, "keeping post image, reference check failed", "image", rel, "error", err.Error())
		return
	}
	if refs > 0 {
		return
	}
	if err := s.images.Remove(rel); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to remove post image", "image", rel, "error", err.Error())
	}
}
