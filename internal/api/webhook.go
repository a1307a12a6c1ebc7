package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Review-Corral/review-corral-next/internal/github"
	"github.com/Review-Corral/review-corral-next/internal/reconcile"
	"github.com/Review-Corral/review-corral-next/internal/slack"
	"github.com/Review-Corral/review-corral-next/internal/store"
)

// handleWebhook is the GitHub webhook entry point. Each delivery is
// verified, decoded, resolved to an organization's Slack wiring, and handed
// to the reconciliation engine synchronously. GitHub redelivers on non-2xx.
func (s *Server) handleWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "failed to read request body",
		})
	}

	if !verifySignature(body, c.Request().Header.Get("X-Hub-Signature-256"), s.webhookSecret) {
		s.logger.Warn().Msg("Webhook delivery failed signature verification")
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "invalid signature",
		})
	}

	deliveryID := c.Request().Header.Get("X-GitHub-Delivery")
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}
	eventName := c.Request().Header.Get("X-GitHub-Event")

	logger := s.logger.With().
		Str("delivery_id", deliveryID).
		Str("event", eventName).
		Logger()

	event, err := github.DecodeEvent(eventName, body)
	if err != nil {
		if errors.Is(err, github.ErrUnsupportedEvent) {
			logger.Debug().Msg("Ignoring webhook event outside the pull request family")
			return c.JSON(http.StatusOK, map[string]string{
				"status": "ignored",
			})
		}
		logger.Error().Err(err).Msg("Failed to decode webhook payload")
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	ctx := c.Request().Context()
	key := event.Key()

	org, err := s.orgs.OrganizationForRepo(ctx, key.RepoID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logger.Warn().Int64("repo_id", key.RepoID).Msg("Webhook for a repository with no mapped organization")
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "repository is not mapped to an organization",
			})
		}
		logger.Error().Err(err).Msg("Failed to look up organization for repository")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "organization lookup failed",
		})
	}

	integration, err := s.orgs.SlackIntegrationForOrg(ctx, org.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logger.Warn().Int64("organization_id", org.ID).Msg("Organization has no Slack integration")
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "organization has no Slack integration",
			})
		}
		logger.Error().Err(err).Msg("Failed to look up Slack integration")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "slack integration lookup failed",
		})
	}

	ec := &reconcile.EventContext{
		InstallationID: org.InstallationID,
		OrganizationID: org.ID,
		Logger:         logger.With().Int64("organization_id", org.ID).Logger(),
		Poster:         slack.NewChannelPoster(s.slack, integration.AccessToken, integration.ChannelID),
		PullRequests:   s.pullRequests,
		Resolver:       reconcile.NewUsernameResolver(s.usernames),
		Tokens:         s.tokens,
		Comments:       s.github,
	}

	if err := reconcile.HandleEvent(ctx, ec, event); err != nil {
		ec.Logger.Error().Err(err).Msg("Failed to handle webhook event")
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// verifySignature checks the HMAC SHA-256 signature GitHub sends in
// X-Hub-Signature-256, "sha256=<hex>" over the raw body.
func verifySignature(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	received, ok := strings.CutPrefix(signature, "sha256=")
	if !ok {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(received), []byte(expected))
}
