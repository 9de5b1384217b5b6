package service

import (
	"context"
	"strings"

	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/validation"
)

type GroupService struct {
	groups repository.GroupRepository
}

// GroupInput is the group form used by the admin tooling and the seeder.
type GroupInput struct {
	Title       string `form:"title" yaml:"title" validate:"notblank,max=200"`
	Slug        string `form:"slug" yaml:"slug" validate:"required,slug"`
	Description string `form:"description" yaml:"description"`
}

func NewGroupService(groups repository.GroupRepository) *GroupService {
	return &GroupService{groups: groups}
}

func (s *GroupService) GetGroup(ctx context.Context, slug string) (*models.Group, error) {
	return s.groups.GetBySlug(ctx, slug)
}

func (s *GroupService) ListGroups(ctx context.Context, search string) ([]*models.Group, error) {
	return s.groups.List(ctx, search)
}

func (s *GroupService) CreateGroup(ctx context.Context, in GroupInput) (*models.Group, error) {
	in.Slug = strings.TrimSpace(in.Slug)
	if res := validation.Check(in); !res.Valid() {
		return nil, formError(res.Errors)
	}
	group := &models.Group{Title: strings.TrimSpace(in.Title), Slug: in.Slug, Description: in.Description}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, slugTaken(err)
	}
	return group, nil
}

// UpdateGroup rewrites the group currently at slug.
func (s *GroupService) UpdateGroup(ctx context.Context, slug string, in GroupInput) (*models.Group, error) {
	group, err := s.groups.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	in.Slug = strings.TrimSpace(in.Slug)
	if res := validation.Check(in); !res.Valid() {
		return nil, formError(res.Errors)
	}
	group.Title = strings.TrimSpace(in.Title)
	group.Slug = in.Slug
	group.Description = in.Description
	if err := s.groups.Update(ctx, group, slug); err != nil {
		return nil, slugTaken(err)
	}
	return group, nil
}

// DeleteGroup removes the group; its posts stay, ungrouped.
func (s *GroupService) DeleteGroup(ctx context.Context, slug string) error {
	return s.groups.Delete(ctx, slug)
}

func slugTaken(err error) error {
	if repository.IsUniqueViolation(err) {
		return models.NewFormError(map[string][]string{"slug": {"Group with this Slug already exists."}})
	}
	return err
}
