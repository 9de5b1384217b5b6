package server

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"yatube/internal/featureflags"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
)

// viewerID returns the logged-in user's id, or 0.
func viewerID(c *fiber.Ctx) uint {
	if id, ok := c.Locals(middleware.LocalUserID).(uint); ok {
		return id
	}
	return 0
}

// parseID reads a positive numeric route parameter. Anything else is a 404,
// matching a route that only accepts integers.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(param), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.ErrNotFound
	}
	return uint(id), nil
}

// optionalID parses an optional numeric form field; an empty value is nil.
func optionalID(raw string) (*uint, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, false
	}
	v := uint(id)
	return &v, true
}

// readUpload returns the multipart file under field, or nil when none was
// sent or uploads are switched off for the viewer.
func (s *Server) readUpload(c *fiber.Ctx, field string) (*service.ImageUpload, error) {
	if !s.featureFlags.Enabled(featureflags.ImageUploads, viewerID(c)) {
		return nil, nil
	}
	fh, err := c.FormFile(field)
	if err != nil || fh == nil || fh.Size == 0 {
		return nil, nil
	}
	if fh.Size > s.config.ImageMaxUploadBytes() {
		return nil, models.NewFormError(map[string][]string{
			field: {fmt.Sprintf("File too large (max %dMB).", s.config.ImageMaxUploadSizeMB)},
		})
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(io.LimitReader(f, s.config.ImageMaxUploadBytes()+1))
	if err != nil {
		return nil, err
	}
	return &service.ImageUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Content:     content,
	}, nil
}

func profileURL(username string) string {
	return "/profile/" + username + "/"
}

func postURL(id uint) string {
	return fmt.Sprintf("/posts/%d/", id)
}

// isFormError reports whether err carries field errors to show on a form.
func isFormError(err error) bool {
	return models.CodeOf(err) == models.CodeValidation && len(models.FieldsOf(err)) > 0
}
