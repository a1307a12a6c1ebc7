package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Postgres implements the store interfaces over database/sql.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a new Postgres-backed store
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const pullRequestColumns = `pr_id, repo_id, is_draft, COALESCE(thread_ts, ''), created_at, updated_at`

// Fetch looks up a pull request record. Postgres reads committed data, so
// this is as fresh as FetchStrong; the split interface is kept because the
// engine's correctness argument leans on the pre-post re-check being an
// explicit, separate operation.
func (p *Postgres) Fetch(ctx context.Context, prID, repoID int64) (*PullRequestRecord, error) {
	return p.fetch(ctx, p.db, prID, repoID)
}

// FetchStrong looks up a pull request record inside its own transaction so
// the read cannot be served ahead of a concurrently committing insert.
func (p *Postgres) FetchStrong(ctx context.Context, prID, repoID int64) (*PullRequestRecord, error) {
	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin read tx: %w", err)
	}
	defer tx.Rollback()

	record, err := p.fetch(ctx, tx, prID, repoID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit read tx: %w", err)
	}
	return record, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (p *Postgres) fetch(ctx context.Context, q querier, prID, repoID int64) (*PullRequestRecord, error) {
	query := `
		SELECT ` + pullRequestColumns + `
		FROM pull_requests
		WHERE pr_id = $1 AND repo_id = $2
	`

	var record PullRequestRecord
	err := q.QueryRowContext(ctx, query, prID, repoID).Scan(
		&record.PRID, &record.RepoID, &record.IsDraft, &record.ThreadTS,
		&record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch pull request %d/%d: %w", repoID, prID, err)
	}

	return &record, nil
}

// Insert creates a new pull request record
func (p *Postgres) Insert(ctx context.Context, record *PullRequestRecord) error {
	query := `
		INSERT INTO pull_requests (pr_id, repo_id, is_draft, thread_ts, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err := p.db.QueryRowContext(ctx, query,
		record.PRID, record.RepoID, record.IsDraft, record.ThreadTS,
	).Scan(&record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert pull request %d/%d: %w", record.RepoID, record.PRID, err)
	}

	return nil
}

// Update mutates the listed fields of an existing record
func (p *Postgres) Update(ctx context.Context, prID, repoID int64, update PullRequestUpdate) error {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{prID, repoID}

	if update.IsDraft != nil {
		args = append(args, *update.IsDraft)
		sets = append(sets, fmt.Sprintf("is_draft = $%d", len(args)))
	}
	if update.ThreadTS != nil {
		args = append(args, *update.ThreadTS)
		sets = append(sets, fmt.Sprintf("thread_ts = NULLIF($%d, '')", len(args)))
	}

	query := fmt.Sprintf(`
		UPDATE pull_requests
		SET %s
		WHERE pr_id = $1 AND repo_id = $2
	`, strings.Join(sets, ", "))

	result, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update pull request %d/%d: %w", repoID, prID, err)
	}

	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// OrganizationForRepo resolves the organization a repository is mapped to
func (p *Postgres) OrganizationForRepo(ctx context.Context, repoID int64) (*Organization, error) {
	query := `
		SELECT o.id, o.name, o.installation_id
		FROM organizations o
		JOIN github_repositories gr ON gr.organization_id = o.id
		WHERE gr.repository_id = $1
	`

	var org Organization
	err := p.db.QueryRowContext(ctx, query, repoID).Scan(&org.ID, &org.Name, &org.InstallationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve organization for repo %d: %w", repoID, err)
	}

	return &org, nil
}

// OrganizationByID fetches an organization by primary key
func (p *Postgres) OrganizationByID(ctx context.Context, orgID int64) (*Organization, error) {
	query := `SELECT id, name, installation_id FROM organizations WHERE id = $1`

	var org Organization
	err := p.db.QueryRowContext(ctx, query, orgID).Scan(&org.ID, &org.Name, &org.InstallationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch organization %d: %w", orgID, err)
	}

	return &org, nil
}

// SlackIntegrationForOrg fetches the Slack wiring for an organization
func (p *Postgres) SlackIntegrationForOrg(ctx context.Context, orgID int64) (*SlackIntegration, error) {
	query := `
		SELECT organization_id, channel_id, access_token
		FROM slack_integrations
		WHERE organization_id = $1
	`

	var integration SlackIntegration
	err := p.db.QueryRowContext(ctx, query, orgID).Scan(
		&integration.OrganizationID, &integration.ChannelID, &integration.AccessToken,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch slack integration for org %d: %w", orgID, err)
	}

	return &integration, nil
}

// SlackUserID looks up the Slack user mapped to a GitHub login
func (p *Postgres) SlackUserID(ctx context.Context, orgID int64, githubLogin string) (string, error) {
	query := `
		SELECT slack_user_id
		FROM username_mappings
		WHERE organization_id = $1 AND github_login = $2
	`

	var slackUserID string
	err := p.db.QueryRowContext(ctx, query, orgID, githubLogin).Scan(&slackUserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to look up username mapping for %s: %w", githubLogin, err)
	}

	return slackUserID, nil
}

// ListMappings returns all username mappings for an organization
func (p *Postgres) ListMappings(ctx context.Context, orgID int64) ([]UsernameMapping, error) {
	query := `
		SELECT organization_id, github_login, slack_user_id
		FROM username_mappings
		WHERE organization_id = $1
		ORDER BY github_login
	`

	rows, err := p.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list username mappings for org %d: %w", orgID, err)
	}
	defer rows.Close()

	var mappings []UsernameMapping
	for rows.Next() {
		var m UsernameMapping
		if err := rows.Scan(&m.OrganizationID, &m.GithubLogin, &m.SlackUserID); err != nil {
			return nil, fmt.Errorf("failed to scan username mapping: %w", err)
		}
		mappings = append(mappings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read username mappings: %w", err)
	}

	return mappings, nil
}

// UpsertMapping creates or replaces a username mapping
func (p *Postgres) UpsertMapping(ctx context.Context, mapping UsernameMapping) error {
	query := `
		INSERT INTO username_mappings (organization_id, github_login, slack_user_id, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (organization_id, github_login)
		DO UPDATE SET slack_user_id = EXCLUDED.slack_user_id, updated_at = NOW()
	`

	if _, err := p.db.ExecContext(ctx, query, mapping.OrganizationID, mapping.GithubLogin, mapping.SlackUserID); err != nil {
		return fmt.Errorf("failed to upsert username mapping for %s: %w", mapping.GithubLogin, err)
	}
	return nil
}
