package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/Review-Corral/review-corral-next/internal/github"
	"github.com/Review-Corral/review-corral-next/internal/slack"
	"github.com/Review-Corral/review-corral-next/internal/store"
)

// Server is the HTTP surface of the service: the GitHub webhook entry point
// plus the small management API the dashboard consumes.
type Server struct {
	echo   *echo.Echo
	port   int
	logger zerolog.Logger

	webhookSecret string

	pullRequests store.PullRequestStore
	orgs         store.OrgStore
	usernames    store.UsernameStore

	github *github.Client
	tokens *github.AppAuth
	slack  *slack.WebClient
}

// Deps bundles the server's collaborators.
type Deps struct {
	WebhookSecret string

	PullRequests store.PullRequestStore
	Orgs         store.OrgStore
	Usernames    store.UsernameStore

	GitHub  *github.Client
	Tokens  *github.AppAuth
	SlackWC *slack.WebClient
}

// NewServer creates the API server
func NewServer(port int, logger zerolog.Logger, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	server := &Server{
		echo:          e,
		port:          port,
		logger:        logger,
		webhookSecret: deps.WebhookSecret,
		pullRequests:  deps.PullRequests,
		orgs:          deps.Orgs,
		usernames:     deps.Usernames,
		github:        deps.GitHub,
		tokens:        deps.Tokens,
		slack:         deps.SlackWC,
	}

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	gh := s.echo.Group("/api/gh")
	gh.POST("/events", s.handleWebhook)
	gh.GET("/installations/:installationId/repositories", s.getInstallationRepositories)

	orgs := s.echo.Group("/api/organizations")
	orgs.GET("/:orgId/members", s.getOrganizationMembers)
	orgs.GET("/:orgId/usernames", s.getUsernameMappings)
	orgs.PUT("/:orgId/usernames", s.putUsernameMapping)
}

// Start runs the server until interrupted, then shuts down gracefully.
func (s *Server) Start() error {
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.port)); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal().Err(err).Msg("Shutting down the server")
		}
	}()

	s.logger.Info().Int("port", s.port).Msg("API server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}
