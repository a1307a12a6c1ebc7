package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Review-Corral/review-corral-next/internal/database"
)

// testPostgres connects to the database named by TEST_DATABASE_URL; tests
// are skipped when it is unset so the suite runs without infrastructure.
func testPostgres(t *testing.T) *Postgres {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database integration test")
	}

	db, err := database.NewDB(url)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, EnsureSchema(context.Background(), db))

	return NewPostgres(db)
}

func TestPullRequestRoundTrip(t *testing.T) {
	p := testPostgres(t)
	ctx := context.Background()

	record := &PullRequestRecord{PRID: 910042, RepoID: 910007, IsDraft: true}
	require.NoError(t, p.Insert(ctx, record))
	t.Cleanup(func() {
		p.db.ExecContext(ctx, "DELETE FROM pull_requests WHERE pr_id = $1 AND repo_id = $2", record.PRID, record.RepoID)
	})

	fetched, err := p.Fetch(ctx, record.PRID, record.RepoID)
	require.NoError(t, err)
	assert.True(t, fetched.IsDraft)
	assert.False(t, fetched.HasThread())

	strong, err := p.FetchStrong(ctx, record.PRID, record.RepoID)
	require.NoError(t, err)
	assert.Equal(t, fetched.PRID, strong.PRID)

	threadTS := "1700000000.000100"
	isDraft := false
	require.NoError(t, p.Update(ctx, record.PRID, record.RepoID, PullRequestUpdate{
		IsDraft:  &isDraft,
		ThreadTS: &threadTS,
	}))

	updated, err := p.Fetch(ctx, record.PRID, record.RepoID)
	require.NoError(t, err)
	assert.Equal(t, threadTS, updated.ThreadTS)
	assert.False(t, updated.IsDraft)
}

func TestFetchMissingRecord(t *testing.T) {
	p := testPostgres(t)

	_, err := p.Fetch(context.Background(), 1, 999999999)
	assert.ErrorIs(t, err, ErrNotFound)

	err = p.Update(context.Background(), 1, 999999999, PullRequestUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUsernameMappingUpsert(t *testing.T) {
	p := testPostgres(t)
	ctx := context.Background()

	orgID := int64(910001)
	require.NoError(t, p.db.QueryRowContext(ctx, `
		INSERT INTO organizations (id, name, installation_id) VALUES ($1, 'acme-test', 1)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, orgID).Scan(&orgID))
	t.Cleanup(func() {
		p.db.ExecContext(ctx, "DELETE FROM username_mappings WHERE organization_id = $1", orgID)
		p.db.ExecContext(ctx, "DELETE FROM organizations WHERE id = $1", orgID)
	})

	mapping := UsernameMapping{OrganizationID: orgID, GithubLogin: "alice", SlackUserID: "U111"}
	require.NoError(t, p.UpsertMapping(ctx, mapping))

	id, err := p.SlackUserID(ctx, orgID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "U111", id)

	// Upsert replaces the existing mapping in place.
	mapping.SlackUserID = "U222"
	require.NoError(t, p.UpsertMapping(ctx, mapping))

	id, err = p.SlackUserID(ctx, orgID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "U222", id)

	mappings, err := p.ListMappings(ctx, orgID)
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, "U222", mappings[0].SlackUserID)

	_, err = p.SlackUserID(ctx, orgID, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}
