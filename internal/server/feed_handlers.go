package server

import (
	"github.com/gofiber/fiber/v2"
)

// Index handles GET /
func (s *Server) Index(c *fiber.Ctx) error {
	feed, err := s.feedService.Index(c.UserContext(), c.Query("page"))
	if err != nil {
		return err
	}
	return s.render(c, "posts/index", fiber.Map{
		"Title": "Latest posts",
		"Posts": feed.Posts,
		"Page":  feed.Page,
	})
}

// GroupPosts handles GET /group/:slug/
func (s *Server) GroupPosts(c *fiber.Ctx) error {
	feed, err := s.feedService.Group(c.UserContext(), c.Params("slug"), c.Query("page"))
	if err != nil {
		return err
	}
	return s.render(c, "posts/group_list", fiber.Map{
		"Title": feed.Group.Title,
		"Group": feed.Group,
		"Posts": feed.Posts,
		"Page":  feed.Page,
	})
}

// Profile handles GET /profile/:username/
func (s *Server) Profile(c *fiber.Ctx) error {
	feed, err := s.feedService.Profile(c.UserContext(), c.Params("username"), viewerID(c), c.Query("page"))
	if err != nil {
		return err
	}
	return s.render(c, "posts/profile", fiber.Map{
		"Title":          "Profile of " + feed.Author.FullName(),
		"Author":         feed.Author,
		"Posts":          feed.Posts,
		"Page":           feed.Page,
		"PostCount":      feed.Page.TotalItems,
		"FollowerCount":  feed.FollowerCount,
		"FollowingCount": feed.FollowingCount,
		"Following":      feed.ViewerFollows,
		"IsSelf":         viewerID(c) == feed.Author.ID,
	})
}

// FollowIndex handles GET /follow/
func (s *Server) FollowIndex(c *fiber.Ctx) error {
	feed, err := s.feedService.Followed(c.UserContext(), viewerID(c), c.Query("page"))
	if err != nil {
		return err
	}
	return s.render(c, "posts/follow", fiber.Map{
		"Title": "Followed authors",
		"Posts": feed.Posts,
		"Page":  feed.Page,
	})
}
