package server

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"yatube/internal/featureflags"
	"yatube/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
)

//go:embed templates
var templateFS embed.FS

const baseLayout = "layouts/base"

func newViewEngine() (*html.Engine, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFuncMap(map[string]interface{}{
		"date": func(t time.Time) string {
			return t.Format("2 January 2006")
		},
		"truncate": func(n int, s string) string {
			r := []rune(s)
			if len(r) <= n {
				return s
			}
			return strings.TrimSpace(string(r[:n])) + "…"
		},
		"media": func(rel string) string {
			if rel == "" {
				return ""
			}
			return "/media/" + rel
		},
		"errs": func(fields map[string][]string, name string) []string {
			return fields[name]
		},
	})
	return engine, engine.Load()
}

// view wraps handler data with what every page needs: the viewer, the
// feature flag snapshot and the current path.
func (s *Server) view(c *fiber.Ctx, data fiber.Map) fiber.Map {
	if data == nil {
		data = fiber.Map{}
	}
	sess, ok := middleware.CurrentSession(c)
	if ok {
		data["Viewer"] = sess
	}
	data["ImageUploads"] = s.featureFlags.Enabled(featureflags.ImageUploads, viewerID(c))
	data["Path"] = c.Path()
	token, _ := c.Locals(csrfLocal).(string)
	data["CSRFToken"] = token
	if _, set := data["Fields"]; !set {
		data["Fields"] = map[string][]string{}
	}
	return data
}

// render writes a page with the base layout.
func (s *Server) render(c *fiber.Ctx, name string, data fiber.Map) error {
	return c.Render(name, s.view(c, data))
}
