package service

import (
	"context"

	"yatube/internal/models"
	"yatube/internal/observability"
	"yatube/internal/pagination"
	"yatube/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// Feed is one page of posts, newest first.
type Feed struct {
	Posts []*models.Post
	Page  pagination.Page
}

// GroupFeed is a group's feed.
type GroupFeed struct {
	Feed
	Group *models.Group
}

// ProfileFeed is an author's feed together with the follow counters shown
// on the profile page.
type ProfileFeed struct {
	Feed
	Author         *models.User
	FollowerCount  int64
	FollowingCount int64
	// ViewerFollows is true when the logged-in viewer follows Author.
	ViewerFollows bool
}

// FeedService assembles the paginated listings.
type FeedService struct {
	posts    repository.PostRepository
	groups   repository.GroupRepository
	users    repository.UserRepository
	follows  repository.FollowRepository
	graph    *FollowService
	pageSize int
}

func NewFeedService(
	posts repository.PostRepository,
	groups repository.GroupRepository,
	users repository.UserRepository,
	follows repository.FollowRepository,
	pageSize int,
) *FeedService {
	if pageSize < 1 {
		pageSize = pagination.DefaultSize
	}
	return &FeedService{
		posts:    posts,
		groups:   groups,
		users:    users,
		follows:  follows,
		graph:    NewFollowService(users, follows),
		pageSize: pageSize,
	}
}

// PageSize is the number of posts per feed page.
func (s *FeedService) PageSize() int {
	return s.pageSize
}

// Index returns a page of every post.
func (s *FeedService) Index(ctx context.Context, rawPage string) (*Feed, error) {
	feed, err := s.page(ctx, "index", repository.PostFilter{}, rawPage)
	if err != nil {
		return nil, err
	}
	return &feed, nil
}

// Group returns a page of the posts tagged with the group slug.
func (s *FeedService) Group(ctx context.Context, slug, rawPage string) (*GroupFeed, error) {
	group, err := s.groups.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	feed, err := s.page(ctx, "group", repository.PostFilter{GroupID: group.ID}, rawPage)
	if err != nil {
		return nil, err
	}
	return &GroupFeed{Feed: feed, Group: group}, nil
}

// Profile returns a page of username's posts. viewerID is 0 for anonymous viewers.
func (s *FeedService) Profile(ctx context.Context, username string, viewerID uint, rawPage string) (*ProfileFeed, error) {
	author, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	feed, err := s.page(ctx, "profile", repository.PostFilter{AuthorID: author.ID}, rawPage)
	if err != nil {
		return nil, err
	}

	out := &ProfileFeed{Feed: feed, Author: author}
	if out.FollowerCount, err = s.follows.CountFollowers(ctx, author.ID); err != nil {
		return nil, err
	}
	if out.FollowingCount, err = s.follows.CountFollowing(ctx, author.ID); err != nil {
		return nil, err
	}
	if out.ViewerFollows, err = s.graph.IsFollowing(ctx, viewerID, author.ID); err != nil {
		return nil, err
	}
	return out, nil
}

// Followed returns a page of posts by the authors userID follows.
func (s *FeedService) Followed(ctx context.Context, userID uint, rawPage string) (*Feed, error) {
	if userID == 0 {
		return nil, models.NewUnauthorizedError("login required")
	}
	feed, err := s.page(ctx, "follow", repository.PostFilter{FollowerID: userID}, rawPage)
	if err != nil {
		return nil, err
	}
	return &feed, nil
}

func (s *FeedService) page(ctx context.Context, kind string, filter repository.PostFilter, rawPage string) (Feed, error) {
	span, ctx := observability.StartSpan(ctx, "feed."+kind, attribute.String("feed.page", rawPage))
	defer span.End()

	total, err := s.posts.Count(ctx, filter)
	if err != nil {
		span.SetError(err)
		return Feed{}, err
	}

	page := pagination.New(int(total), pagination.ParseNumber(rawPage), s.pageSize)
	posts, err := s.posts.List(ctx, filter, page.Size, page.Offset)
	if err != nil {
		span.SetError(err)
		return Feed{}, err
	}

	span.AddAttributes(
		attribute.Int("feed.page_number", page.Number),
		attribute.Int64("feed.total", total),
	)
	observability.FeedRequests.WithLabelValues(kind).Inc()
	return Feed{Posts: posts, Page: page}, nil
}
