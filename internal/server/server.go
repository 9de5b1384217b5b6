// Package server contains the HTML handlers, routing and middleware wiring.
package server

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/featureflags"
	"yatube/internal/middleware"
	"yatube/internal/repository"
	"yatube/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	fibercache "github.com/gofiber/fiber/v2/middleware/cache"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const loginPath = "/auth/login/"

const (
	csrfCookieName = "yatube_csrf"
	csrfField      = "csrf_token"
	csrfLocal      = "csrf"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	cache          *cache.Cache
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	featureFlags   *featureflags.Manager
	limiter        *middleware.RateLimiter

	feedService    *service.FeedService
	followService  *service.FollowService
	postService    *service.PostService
	commentService *service.CommentService
	groupService   *service.GroupService
	authService    *service.AuthService
	imageService   *service.ImageService
}

// NewServer connects the database and Redis and builds a Server.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return NewServerWithDeps(cfg, db, cache.Connect(ctx, cfg.RedisURL))
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; caching then falls back to memory or pass-through.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, fmt.Errorf("config and database are required")
	}
	c := cache.New(redisClient)

	userRepo := repository.NewUserRepository(db, c)
	groupRepo := repository.NewGroupRepository(db, c)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	followRepo := repository.NewFollowRepository(db)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		cache:          c,
		promMiddleware: middleware.InitMetrics(),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		limiter:        middleware.NewRateLimiter(redisClient, cfg.Env),
	}
	s.imageService = service.NewImageService(cfg)
	s.feedService = service.NewFeedService(postRepo, groupRepo, userRepo, followRepo, cfg.PostsPerPage)
	s.followService = service.NewFollowService(userRepo, followRepo)
	s.postService = service.NewPostService(postRepo, groupRepo, s.imageService)
	s.commentService = service.NewCommentService(postRepo, commentRepo)
	s.groupService = service.NewGroupService(groupRepo)
	s.authService = service.NewAuthService(userRepo, c, cfg.JWTSecret, cfg.SessionTTL())
	return s, nil
}

// NewApp builds the Fiber app with views, middleware and routes.
func (s *Server) NewApp() (*fiber.App, error) {
	engine, err := newViewEngine()
	if err != nil {
		return nil, err
	}
	app := fiber.New(fiber.Config{
		AppName:      "yatube",
		Views:        engine,
		ViewsLayout:  baseLayout,
		ErrorHandler: s.errorHandler,
		BodyLimit:    int(s.config.ImageMaxUploadBytes()) + 1<<20,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New(recover.Config{EnableStackTrace: !s.config.IsProduction()}))
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())

	// The session must be resolved before the context and log middleware read the viewer.
	app.Use(middleware.LoadSession(s.authService, s.config.SessionCookieName))
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	app.Use(helmet.New(helmet.Config{
		CrossOriginEmbedderPolicy: "unsafe-none",
	}))
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:8000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))
	app.Use(compress.New())
	app.Use(s.csrfProtection())
}

// csrfProtection checks a double-submit token on every form POST. Tokens
// live in Redis when it is available.
func (s *Server) csrfProtection() fiber.Handler {
	cfg := csrf.Config{
		Next: func(c *fiber.Ctx) bool {
			p := c.Path()
			return strings.HasPrefix(p, "/health") || strings.HasPrefix(p, "/metrics") || strings.HasPrefix(p, "/media")
		},
		KeyLookup:      "form:" + csrfField,
		CookieName:     csrfCookieName,
		CookieSameSite: fiber.CookieSameSiteLaxMode,
		CookieHTTPOnly: true,
		CookieSecure:   s.config.IsProduction(),
		Expiration:     12 * time.Hour,
		ContextKey:     csrfLocal,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			middleware.Logger.WarnContext(c.UserContext(), "csrf check failed",
				"path", c.Path(), "error", err.Error())
			return fiber.ErrForbidden
		},
	}
	if s.redis != nil {
		cfg.Storage = cache.NewTokenStore(s.redis)
	}
	return csrf.New(cfg)
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Static("/media", s.imageService.MediaDir(), fiber.Static{MaxAge: 3600})

	auth := app.Group("/auth")
	auth.Get("/signup", s.SignupForm)
	auth.Post("/signup", s.limiter.Handler("signup", 5, 10*time.Minute, middleware.FailOpen), s.Signup)
	auth.Get("/login", s.LoginForm)
	auth.Post("/login", s.limiter.Handler("login", 10, 5*time.Minute, middleware.FailOpen), s.Login)
	auth.Post("/logout", s.Logout)

	loginRequired := middleware.LoginRequired(loginPath)

	app.Get("/", s.indexCache(), s.Index)
	app.Get("/group/:slug", s.GroupPosts)
	app.Get("/profile/:username", s.Profile)
	app.Get("/profile/:username/follow", loginRequired, s.ProfileFollow)
	app.Get("/profile/:username/unfollow", loginRequired, s.ProfileUnfollow)
	app.Get("/follow", loginRequired, s.FollowIndex)

	app.Get("/create", loginRequired, s.CreatePostForm)
	app.Post("/create", loginRequired,
		s.limiter.Handler("create_post", 10, time.Minute, middleware.FailOpen), s.CreatePost)

	posts := app.Group("/posts")
	posts.Get("/:id", s.PostDetail)
	posts.Get("/:id/edit", loginRequired, s.EditPostForm)
	posts.Post("/:id/edit", loginRequired, s.EditPost)
	posts.Post("/:id/comment", loginRequired,
		s.limiter.Handler("create_comment", 20, time.Minute, middleware.FailOpen), s.AddComment)
}

// indexCache caches the rendered index page per URL and viewer. Pages for a
// logged-in viewer embed their CSRF token, so the token is part of the key.
func (s *Server) indexCache() fiber.Handler {
	cfg := fibercache.Config{
		Expiration:   s.config.IndexCacheTTL(),
		CacheControl: false,
		Next: func(c *fiber.Ctx) bool {
			return s.config.IndexCacheSeconds <= 0 || !s.featureFlags.On(featureflags.IndexCache)
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			id := viewerID(c)
			key := utils.CopyString(c.OriginalURL()) + "|" + strconv.FormatUint(uint64(id), 10)
			if token, ok := c.Locals(csrfLocal).(string); ok && id != 0 {
				key += "|" + token
			}
			return key
		},
	}
	if s.redis != nil {
		cfg.Storage = cache.NewPageStore(s.redis)
	}
	return fibercache.New(cfg)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis health. Redis is optional:
// without it the app serves uncached.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"flags": s.featureFlags.Snapshot(0),
		"time":  time.Now(),
	})
}

// Start builds the app and listens on the configured port.
func (s *Server) Start() error {
	app, err := s.NewApp()
	if err != nil {
		return err
	}
	s.app = app
	middleware.Logger.Info("server starting", "port", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err.Error())
		}
	}
	if err := database.Close(s.db); err != nil {
		middleware.Logger.Error("error closing database", "error", err.Error())
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing redis", "error", err.Error())
		}
	}
	middleware.Logger.Info("server shutdown complete")
	return nil
}
