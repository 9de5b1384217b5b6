package server

import (
	"errors"
	"strconv"

	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// errorHandler renders core/404 for missing resources and unknown routes,
// redirects unauthenticated callers to login, and renders core/500 for
// everything else.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError

	var fe *fiber.Error
	var appErr *models.AppError
	switch {
	case errors.As(err, &fe):
		status = fe.Code
	case errors.As(err, &appErr):
		switch appErr.Code {
		case models.CodeNotFound:
			status = fiber.StatusNotFound
		case models.CodeForbidden:
			status = fiber.StatusForbidden
		case models.CodeUnauthorized:
			return c.Redirect(middleware.LoginURL(loginPath, c.OriginalURL()), fiber.StatusFound)
		case models.CodeValidation:
			status = fiber.StatusBadRequest
		}
	}

	switch {
	case status == fiber.StatusNotFound:
		return s.renderStatus(c, status, "core/404")
	case status >= fiber.StatusInternalServerError:
		middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
			"path", c.Path(), "error", err.Error())
		observability.CaptureError(c.UserContext(), err, map[string]string{
			"path":   c.Route().Path,
			"method": c.Method(),
			"status": strconv.Itoa(status),
		})
		return s.renderStatus(c, status, "core/500")
	default:
		return c.Status(status).SendString(err.Error())
	}
}

func (s *Server) renderStatus(c *fiber.Ctx, status int, name string) error {
	c.Status(status)
	if err := s.render(c, name, fiber.Map{"Status": status}); err != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "error page failed to render", "error", err.Error())
		return c.Status(status).SendString(strconv.Itoa(status))
	}
	return nil
}
