package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/demandboard/backend/internal/auth"
	"github.com/emilythestrangee/demandboard/backend/internal/config"
	"github.com/emilythestrangee/demandboard/backend/internal/database"
	"github.com/emilythestrangee/demandboard/backend/internal/handlers"
	"github.com/emilythestrangee/demandboard/backend/internal/leaderboard"
	"github.com/emilythestrangee/demandboard/backend/internal/logging"
	"github.com/emilythestrangee/demandboard/backend/internal/metrics"
	"github.com/emilythestrangee/demandboard/backend/internal/middleware"
)

type Server struct {
	cfg     *config.Config
	db      database.Database
	gate    middleware.TokenVerifier
	handler *handlers.Handler
	log     logrus.FieldLogger
}

// New wires the leaderboard services over db.
func New(cfg *config.Config, db database.Database, gate middleware.TokenVerifier, log logrus.FieldLogger) *Server {
	atomic := cfg.Signals.Atomic
	svc := leaderboard.NewService(db, atomic, log)
	engine := leaderboard.NewEngine(db, atomic, log)
	resolver := leaderboard.NewResolver(db, log)

	return &Server{
		cfg:     cfg,
		db:      db,
		gate:    gate,
		handler: handlers.NewHandler(svc, engine, resolver, log),
		log:     log,
	}
}

// NewHTTPServer creates the HTTP server for cfg, verifying tokens with the
// configured shared secret.
func NewHTTPServer(cfg *config.Config, db database.Database, log logrus.FieldLogger) *http.Server {
	gate := auth.NewJWT(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience)
	s := New(cfg, db, gate, log)

	return &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", cfg.Server.Port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}
}

func (s *Server) corsConfig() cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", logging.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", logging.RequestIDHeader},
		AllowCredentials: s.cfg.CORS.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}

	origins := s.cfg.CORS.AllowedOrigins
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		// credentials cannot be combined with a wildcard origin
		c.AllowAllOrigins = true
		c.AllowCredentials = false
	} else {
		c.AllowOrigins = origins
	}
	return c
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.RequestLogger(s.log))
	r.Use(cors.New(s.corsConfig()))

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	requireUser := middleware.RequireUser(s.gate, s.db, s.log)

	api := r.Group("/api")
	{
		// Identity sync runs before the local user exists
		api.POST("/auth/sync", middleware.Authenticate(s.gate), s.handler.Auth.Sync)

		// Public reads
		api.GET("/problems", s.handler.Problem.GetProblems)
		api.GET("/problems/:id", s.handler.Problem.GetProblem)
		api.GET("/problems/:id/alternatives", s.handler.Problem.GetAlternatives)
		api.GET("/problems/:id/solutions", s.handler.Solution.GetSolutions)
		api.GET("/users/:id", s.handler.User.GetUserProfile)

		protected := api.Group("")
		protected.Use(requireUser)
		{
			protected.GET("/me", s.handler.Auth.GetMe)

			protected.POST("/problems", s.handler.Problem.CreateProblem)
			protected.GET("/problems/:id/signals", s.handler.Problem.GetSignals)
			protected.POST("/problems/:id/upvote", s.handler.Problem.UpvoteProblem)
			protected.POST("/problems/:id/pay-signal", s.handler.Problem.PaySignal)
			protected.POST("/problems/:id/alternatives", s.handler.Problem.CreateAlternative)
			protected.POST("/problems/:id/alternative", s.handler.Problem.CreateAlternative)
			protected.POST("/problems/:id/solutions", s.handler.Solution.CreateSolution)

			protected.POST("/solutions/:id/upvote", s.handler.Solution.UpvoteSolution)
			protected.POST("/solutions/:id/mark-solved", s.handler.Solution.MarkSolved)
		}
	}

	return r
}

func (s *Server) health(c *gin.Context) {
	status := s.db.Health(c.Request.Context())
	code := http.StatusOK
	if status["status"] != "up" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
