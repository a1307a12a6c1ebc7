package reconcile

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Review-Corral/review-corral-next/internal/github"
	"github.com/Review-Corral/review-corral-next/internal/slack"
	"github.com/Review-Corral/review-corral-next/internal/store"
)

// TokenIssuer issues installation-scoped GitHub access tokens.
// *github.AppAuth is the production implementation.
type TokenIssuer interface {
	IssueInstallationToken(ctx context.Context, installationID int64) (*github.InstallationToken, error)
}

// CommentsFetcher fetches the review comments already present on a PR.
// *github.Client is the production implementation.
type CommentsFetcher interface {
	GetPullRequestComments(ctx context.Context, commentsURL, token string) ([]github.Comment, error)
}

// EventContext carries everything one webhook delivery needs. It is built
// per invocation and never shared across concurrent deliveries; there is no
// process-wide engine state.
type EventContext struct {
	InstallationID int64
	OrganizationID int64

	Logger zerolog.Logger

	Poster       slack.Poster
	PullRequests store.PullRequestStore
	Resolver     *UsernameResolver
	Tokens       TokenIssuer
	Comments     CommentsFetcher
}
