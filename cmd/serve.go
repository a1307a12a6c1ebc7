package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/Review-Corral/review-corral-next/internal/api"
	"github.com/Review-Corral/review-corral-next/internal/config"
	"github.com/Review-Corral/review-corral-next/internal/database"
	"github.com/Review-Corral/review-corral-next/internal/github"
	"github.com/Review-Corral/review-corral-next/internal/slack"
	"github.com/Review-Corral/review-corral-next/internal/store"
)

// ServeCommand returns the CLI command for starting the webhook server
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the webhook server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the server, overrides the config file",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	port := cfg.Server.Port
	if c.IsSet("port") {
		port = c.Int("port")
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.NewDB(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := store.EnsureSchema(context.Background(), db); err != nil {
		return fmt.Errorf("failed to prepare database schema: %w", err)
	}

	tokens, err := github.NewAppAuth(cfg.GitHub.AppID, cfg.GitHub.PrivateKeyPath, cfg.GitHub.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to load GitHub App credentials: %w", err)
	}

	postgres := store.NewPostgres(db)

	server := api.NewServer(port, logger, api.Deps{
		WebhookSecret: cfg.GitHub.WebhookSecret,
		PullRequests:  postgres,
		Orgs:          postgres,
		Usernames:     postgres,
		GitHub:        github.NewClient(cfg.GitHub.BaseURL),
		Tokens:        tokens,
		SlackWC:       slack.NewWebClient(cfg.Slack.BaseURL),
	})

	return server.Start()
}
