// Package server contains the HTTP and WebSocket handlers of the blog API.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	_ "blogcms/docs" // swagger docs
	"blogcms/internal/auth"
	"blogcms/internal/bootstrap"
	"blogcms/internal/cache"
	"blogcms/internal/config"
	"blogcms/internal/database"
	"blogcms/internal/feed"
	"blogcms/internal/featureflags"
	"blogcms/internal/middleware"
	"blogcms/internal/models"
	"blogcms/internal/notifications"
	"blogcms/internal/observability"
	"blogcms/internal/repository"
	"blogcms/internal/service"
	"blogcms/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// multipartOverhead is added to the upload ceiling when sizing the request
// body limit, so a file of exactly the ceiling still fits with its headers.
const multipartOverhead = 1 << 20

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	scheduler      *cron.Cron
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	tokens       *auth.TokenIssuer
	featureFlags *featureflags.Manager
	store        storage.Store
	notifier     *notifications.Notifier
	hub          *notifications.Hub

	authService    *service.AuthService
	postService    *service.PostService
	commentService *service.CommentService
	feedService    *service.FeedService
	mediaService   *service.MediaService
}

// NewServer connects to the database and Redis, makes sure the bootstrap
// admin exists and wires every dependency.
func NewServer(cfg *config.Config) (*Server, error) {
	rt, err := bootstrap.InitRuntime(context.Background(), cfg, bootstrap.Options{EnsureAdmin: true})
	if err != nil {
		return nil, err
	}
	s, err := NewServerWithDeps(cfg, rt.DB, rt.Redis)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	return s, nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; the server then runs without cache, Redis rate
// limits and admin events.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	store, err := storage.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	flags := featureflags.NewManager(cfg.FeatureFlags)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenTTL())
	notifier := notifications.NewNotifier(redisClient)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: observability.HTTPMetrics("blogcms-api"),
		tokens:         tokens,
		featureFlags:   flags,
		store:          store,
		notifier:       notifier,
		hub:            notifications.NewHub(),
	}

	s.authService = service.NewAuthService(repository.NewAccountRepository(db), tokens, flags)
	s.postService = service.NewPostService(repository.NewPostRepository(db), cache.New(redisClient), store, notifier)
	s.commentService = service.NewCommentService(repository.NewCommentRepository(db), notifier)
	s.feedService = service.NewFeedService(
		repository.NewFeedItemRepository(db),
		repository.NewSyncRunRepository(db),
		newFeedSource(cfg),
		notifier,
		flags,
		service.FeedSettings{
			ClientID:     cfg.InstagramClientID,
			ClientSecret: cfg.InstagramClientSecret,
			RedirectURI:  cfg.InstagramRedirectURI,
			AccessToken:  cfg.InstagramAccessToken,
			VerifyToken:  cfg.InstagramVerifyToken,
			SyncTimeout:  cfg.InstagramTimeout(),
		},
	)
	s.mediaService = service.NewMediaService(repository.NewMediaRepository(db), store, flags, notifier, service.MediaOptions{
		MaxBytes:        cfg.MaxUploadBytes(),
		PreviewMaxWidth: cfg.PreviewMaxWidth,
		PreviewQuality:  cfg.PreviewQuality,
	})

	return s, nil
}

func newFeedSource(cfg *config.Config) feed.Source {
	if cfg.FeedProvider == "rss" {
		return feed.NewRSSSource(cfg.RSSFeedURL, cfg.InstagramTimeout())
	}
	return feed.NewInstagramSource(feed.InstagramOptions{
		BaseURL:     cfg.InstagramAPIURL,
		AccessToken: cfg.InstagramAccessToken,
		MaxPages:    cfg.InstagramMaxPages,
		Timeout:     cfg.InstagramTimeout(),
	})
}

// App builds the fiber application once and returns it.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}

	app := fiber.New(fiber.Config{
		AppName:      "Blog CMS API",
		BodyLimit:    int(s.config.MaxUploadBytes()) + multipartOverhead,
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// errorHandler renders errors that escape handlers, including fiber's own
// (unknown method, body too large).
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		if fe.Code == fiber.StatusRequestEntityTooLarge {
			return respondError(c, models.NewTooLargeError(s.config.MaxUploadBytes()))
		}
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	return respondError(c, err)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	// Copies request and trace IDs into the context for loggers downstream.
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
		app.Use(s.promMiddleware.Middleware)
	}

	// The admin frontend runs on another origin and embeds uploaded media.
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses
	// still carry the headers.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.AllowedOrigins(),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowCredentials: true,
		MaxAge:           86400,
	}))
}

// apiLimiter is the in-memory per-IP limit applied to the whole API.
func apiLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
			})
		},
	})
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	if local, ok := s.store.(*storage.LocalStore); ok {
		app.Static(storage.PublicUploadsPath, local.Dir())
	}

	api := app.Group("/api", apiLimiter())
	authn := middleware.AuthRequired(s.tokens)
	admin := middleware.AdminRequired()

	api.Get("/health", s.HealthCheck)
	api.Get("/swagger/*", swagger.HandlerDefault)

	authGroup := api.Group("/auth")
	authGroup.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	authGroup.Get("/verify", authn, s.Verify)
	authGroup.Post("/logout", s.Logout)
	authGroup.Post("/register", middleware.RateLimit(s.redis, 3, 10*time.Minute, "register"), s.Register)

	// Specific paths go before the generic /:id routes.
	posts := api.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Post("/upload", authn, admin, s.UploadMedia)
	posts.Get("/media/list", authn, admin, s.ListMedia)
	posts.Delete("/media/:id", authn, admin, s.DeleteMedia)
	posts.Post("/", authn, admin, s.CreatePost)
	posts.Get("/:id", s.GetPost)
	posts.Put("/:id", authn, admin, s.UpdatePost)
	posts.Delete("/:id", authn, admin, s.DeletePost)

	comments := api.Group("/comments")
	comments.Get("/post/:postId", s.GetPostComments)
	comments.Post("/", middleware.RateLimit(s.redis, 5, time.Minute, "comment"), s.SubmitComment)
	comments.Get("/admin/all", authn, admin, s.GetAllComments)
	comments.Put("/:id/approve", authn, admin, s.ApproveComment)
	comments.Put("/:id/reject", authn, admin, s.RejectComment)
	comments.Get("/:id", authn, admin, s.GetComment)
	comments.Delete("/:id", authn, admin, s.DeleteComment)

	instagram := api.Group("/instagram")
	instagram.Get("/posts", s.GetFeedPosts)
	instagram.Delete("/posts/:id", authn, admin, s.DeleteFeedPost)
	instagram.Post("/sync", authn, admin, s.SyncFeed)
	instagram.Get("/stats", authn, admin, s.GetFeedStats)
	instagram.Get("/setup", authn, admin, s.GetFeedSetup)
	instagram.Get("/webhook", s.VerifyWebhook)
	instagram.Post("/webhook", s.ReceiveWebhook)
	instagram.Post("/webhook/setup", authn, admin, s.SetupWebhook)

	adminGroup := api.Group("/admin", authn, admin)
	adminGroup.Get("/feature-flags", s.GetFeatureFlags)

	api.Get("/ws/admin",
		middleware.WebSocketAuthRequired(s.tokens),
		admin,
		s.upgradeRequired,
		s.AdminEventsHandler(),
	)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{Error: "Route not found"})
	})
}

// HealthCheck reports liveness plus the state of the database and Redis.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} object{status=string,message=string,timestamp=string,checks=object}
// @Failure 503 {object} object{status=string,checks=object}
// @Router /health [get]
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis is optional; its absence degrades features but not readiness.
	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "OK"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "DEGRADED"
	}

	return c.Status(status).JSON(fiber.Map{
		"status":    overall,
		"message":   "Blog CMS API is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
	})
}

// Start wires background work and listens on the configured port. It
// blocks until the listener stops.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.App()

	if s.redis != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start admin event wiring", "error", err)
			}
		}()
	}

	if err := s.startScheduler(); err != nil {
		cancel()
		return err
	}

	middleware.Logger.Info("server starting", "port", s.config.Port, "storage", s.store.Name())
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	s.stopScheduler(ctx)

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down admin hub", "error", err)
	}

	if err := database.Close(s.db); err != nil {
		middleware.Logger.Error("error closing database", "error", err)
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing redis", "error", err)
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
