package server

import (
	"errors"

	"yatube/internal/middleware"
	"yatube/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ProfileFollow handles GET /profile/:username/follow/
func (s *Server) ProfileFollow(c *fiber.Ctx) error {
	username := c.Params("username")
	err := s.followService.Follow(c.UserContext(), viewerID(c), username)
	if errors.Is(err, models.ErrSelfFollow) {
		middleware.Logger.DebugContext(c.UserContext(), "ignoring self-follow", "username", username)
		err = nil
	}
	if err != nil {
		return err
	}
	return c.Redirect(profileURL(username), fiber.StatusFound)
}

// ProfileUnfollow handles GET /profile/:username/unfollow/
func (s *Server) ProfileUnfollow(c *fiber.Ctx) error {
	username := c.Params("username")
	if err := s.followService.Unfollow(c.UserContext(), viewerID(c), username); err != nil {
		return err
	}
	return c.Redirect(profileURL(username), fiber.StatusFound)
}
