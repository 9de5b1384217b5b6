package server

import (
	"yatube/internal/models"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
)

// postForm is what the create/edit template needs to re-render a form.
type postForm struct {
	Text    string
	GroupID uint
	Image   string
}

// PostDetail handles GET /posts/:id/
func (s *Server) PostDetail(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	return s.renderPostDetail(c, id, "", nil)
}

func (s *Server) renderPostDetail(c *fiber.Ctx, id uint, commentText string, fields map[string][]string) error {
	ctx := c.UserContext()
	post, err := s.postService.GetPost(ctx, id)
	if err != nil {
		return err
	}
	comments, err := s.commentService.ListComments(ctx, id)
	if err != nil {
		return err
	}
	count, err := s.postService.AuthorPostCount(ctx, post.AuthorID)
	if err != nil {
		return err
	}
	return s.render(c, "posts/post_detail", fiber.Map{
		"Title":       post.Excerpt(30),
		"Post":        post,
		"Comments":    comments,
		"PostCount":   count,
		"IsAuthor":    viewerID(c) == post.AuthorID,
		"CommentText": commentText,
		"Fields":      fields,
	})
}

// CreatePostForm handles GET /create/
func (s *Server) CreatePostForm(c *fiber.Ctx) error {
	return s.renderPostForm(c, nil, postForm{}, nil)
}

// CreatePost handles POST /create/. The author is always the viewer.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	form := postForm{Text: c.FormValue("text")}
	groupID, ok := optionalID(c.FormValue("group"))
	if !ok {
		return s.renderPostForm(c, nil, form, invalidGroup())
	}
	if groupID != nil {
		form.GroupID = *groupID
	}
	upload, err := s.readUpload(c, "image")
	if err != nil {
		if isFormError(err) {
			return s.renderPostForm(c, nil, form, models.FieldsOf(err))
		}
		return err
	}

	viewer := currentViewer(c)
	_, err = s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		AuthorID: viewer.UserID,
		Text:     form.Text,
		GroupID:  groupID,
		Image:    upload,
	})
	if isFormError(err) {
		return s.renderPostForm(c, nil, form, models.FieldsOf(err))
	}
	if err != nil {
		return err
	}
	return c.Redirect(profileURL(viewer.Username), fiber.StatusFound)
}

// EditPostForm handles GET /posts/:id/edit/
func (s *Server) EditPostForm(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	post, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return err
	}
	if post.AuthorID != viewerID(c) {
		return c.Redirect(postURL(post.ID), fiber.StatusFound)
	}
	form := postForm{Text: post.Text, Image: post.Image}
	if post.GroupID != nil {
		form.GroupID = *post.GroupID
	}
	return s.renderPostForm(c, post, form, nil)
}

// EditPost handles POST /posts/:id/edit/. Non-authors are sent back to the
// post unchanged.
func (s *Server) EditPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	post, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return err
	}
	if post.AuthorID != viewerID(c) {
		return c.Redirect(postURL(post.ID), fiber.StatusFound)
	}

	form := postForm{Text: c.FormValue("text"), Image: post.Image}
	groupID, ok := optionalID(c.FormValue("group"))
	if !ok {
		return s.renderPostForm(c, post, form, invalidGroup())
	}
	if groupID != nil {
		form.GroupID = *groupID
	}
	upload, err := s.readUpload(c, "image")
	if err != nil {
		if isFormError(err) {
			return s.renderPostForm(c, post, form, models.FieldsOf(err))
		}
		return err
	}

	_, err = s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		PostID:     id,
		ActorID:    viewerID(c),
		Text:       form.Text,
		GroupID:    groupID,
		Image:      upload,
		ClearImage: c.FormValue("image-clear") != "",
	})
	switch {
	case models.CodeOf(err) == models.CodeForbidden:
		return c.Redirect(postURL(id), fiber.StatusFound)
	case isFormError(err):
		return s.renderPostForm(c, post, form, models.FieldsOf(err))
	case err != nil:
		return err
	}
	return c.Redirect(postURL(id), fiber.StatusFound)
}

func (s *Server) renderPostForm(c *fiber.Ctx, post *models.Post, form postForm, fields map[string][]string) error {
	groups, err := s.groupService.ListGroups(c.UserContext(), "")
	if err != nil {
		return err
	}
	title := "New post"
	if post != nil {
		title = "Edit post"
	}
	return s.render(c, "posts/create_post", fiber.Map{
		"Title":  title,
		"IsEdit": post != nil,
		"Post":   post,
		"Form":   form,
		"Groups": groups,
		"Fields": fields,
	})
}

// AddComment handles POST /posts/:id/comment/
func (s *Server) AddComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	text := c.FormValue("text")
	_, err = s.commentService.AddComment(c.UserContext(), service.CreateCommentInput{
		PostID:   id,
		AuthorID: viewerID(c),
		Text:     text,
	})
	if isFormError(err) {
		return s.renderPostDetail(c, id, text, models.FieldsOf(err))
	}
	if err != nil {
		return err
	}
	return c.Redirect(postURL(id), fiber.StatusFound)
}

func invalidGroup() map[string][]string {
	return map[string][]string{
		"group": {"Select a valid choice. That choice is not one of the available choices."},
	}
}
