package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Review-Corral/review-corral-next/internal/store"
)

// UsernameResolver maps a GitHub login to a Slack display identity. It
// never fails the caller: any miss or lookup error degrades to the raw
// login.
type UsernameResolver struct {
	usernames store.UsernameStore
}

// NewUsernameResolver creates a resolver backed by the username store
func NewUsernameResolver(usernames store.UsernameStore) *UsernameResolver {
	return &UsernameResolver{usernames: usernames}
}

// Resolve returns the Slack mention for a GitHub login, or the login itself
// when no mapping exists.
func (r *UsernameResolver) Resolve(ctx context.Context, logger zerolog.Logger, orgID int64, githubLogin string) string {
	slackUserID, err := r.usernames.SlackUserID(ctx, orgID, githubLogin)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Warn().Err(err).
				Str("github_login", githubLogin).
				Msg("Username lookup failed, falling back to raw login")
		}
		return githubLogin
	}

	return fmt.Sprintf("<@%s>", slackUserID)
}
