package server

import (
	"time"

	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
)

// currentViewer returns the session of a route behind LoginRequired.
func currentViewer(c *fiber.Ctx) *middleware.Session {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		return &middleware.Session{}
	}
	return sess
}

// SignupForm handles GET /auth/signup/
func (s *Server) SignupForm(c *fiber.Ctx) error {
	return s.render(c, "users/signup", fiber.Map{"Title": "Sign up", "Form": service.SignupInput{}})
}

// Signup handles POST /auth/signup/ and logs the new user in.
func (s *Server) Signup(c *fiber.Ctx) error {
	in := service.SignupInput{
		Username:  c.FormValue("username"),
		Email:     c.FormValue("email"),
		FirstName: c.FormValue("first_name"),
		LastName:  c.FormValue("last_name"),
		Password1: c.FormValue("password1"),
		Password2: c.FormValue("password2"),
	}
	user, err := s.authService.Signup(c.UserContext(), in)
	if isFormError(err) {
		in.Password1, in.Password2 = "", ""
		return s.render(c, "users/signup", fiber.Map{
			"Title":  "Sign up",
			"Form":   in,
			"Fields": models.FieldsOf(err),
		})
	}
	if err != nil {
		return err
	}
	if err := s.startSession(c, user); err != nil {
		return err
	}
	return c.Redirect("/", fiber.StatusFound)
}

// LoginForm handles GET /auth/login/
func (s *Server) LoginForm(c *fiber.Ctx) error {
	return s.render(c, "users/login", fiber.Map{
		"Title": "Log in",
		"Next":  c.Query("next"),
	})
}

// Login handles POST /auth/login/ and redirects to a local next path.
func (s *Server) Login(c *fiber.Ctx) error {
	next := c.FormValue("next", c.Query("next"))
	in := service.LoginInput{
		Username: c.FormValue("username"),
		Password: c.FormValue("password"),
	}
	user, err := s.authService.Login(c.UserContext(), in)
	if isFormError(err) {
		return s.render(c, "users/login", fiber.Map{
			"Title":    "Log in",
			"Next":     next,
			"Username": in.Username,
			"Fields":   models.FieldsOf(err),
		})
	}
	if err != nil {
		return err
	}
	if err := s.startSession(c, user); err != nil {
		return err
	}
	return c.Redirect(middleware.SafeNext(next, "/"), fiber.StatusFound)
}

// Logout handles POST /auth/logout/: the session token is revoked and the cookie cleared.
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.authService.Logout(c.UserContext(), c.Cookies(s.config.SessionCookieName)); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "token revocation failed", "error", err.Error())
	}
	c.Cookie(&fiber.Cookie{
		Name:     s.config.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Locals(middleware.LocalSession, nil)
	c.Locals(middleware.LocalUserID, nil)
	return s.render(c, "users/logged_out", fiber.Map{"Title": "Logged out"})
}

func (s *Server) startSession(c *fiber.Ctx, user *models.User) error {
	token, sess, err := s.authService.IssueToken(user)
	if err != nil {
		return models.NewInternalError(err)
	}
	c.Cookie(&fiber.Cookie{
		Name:     s.config.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}
