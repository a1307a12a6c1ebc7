package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// PullRequestUpdate lists the fields an update may touch. Nil fields are
// left untouched.
type PullRequestUpdate struct {
	IsDraft  *bool
	ThreadTS *string
}

// PullRequestStore is the narrow persistence interface the reconciliation
// engine works against. Fetch may serve slightly stale data; FetchStrong
// must reflect the latest committed write and is consulted immediately
// before any thread-creating post.
type PullRequestStore interface {
	Fetch(ctx context.Context, prID, repoID int64) (*PullRequestRecord, error)
	FetchStrong(ctx context.Context, prID, repoID int64) (*PullRequestRecord, error)
	Insert(ctx context.Context, record *PullRequestRecord) error
	Update(ctx context.Context, prID, repoID int64, update PullRequestUpdate) error
}

// OrgStore resolves the organization and Slack wiring a webhook delivery
// belongs to.
type OrgStore interface {
	OrganizationForRepo(ctx context.Context, repoID int64) (*Organization, error)
	SlackIntegrationForOrg(ctx context.Context, orgID int64) (*SlackIntegration, error)
	OrganizationByID(ctx context.Context, orgID int64) (*Organization, error)
}

// UsernameStore holds per-organization GitHub login to Slack user mappings.
type UsernameStore interface {
	SlackUserID(ctx context.Context, orgID int64, githubLogin string) (string, error)
	ListMappings(ctx context.Context, orgID int64) ([]UsernameMapping, error)
	UpsertMapping(ctx context.Context, mapping UsernameMapping) error
}
