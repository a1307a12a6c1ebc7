package github

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePullRequestEvent(t *testing.T) {
	t.Parallel()

	payload := []byte(`{
		"action": "opened",
		"number": 42,
		"pull_request": {
			"id": 9001,
			"number": 42,
			"title": "Add retries",
			"draft": false,
			"merged": false,
			"html_url": "https://github.com/acme/widgets/pull/42",
			"comments_url": "https://api.github.com/repos/acme/widgets/pulls/42/comments",
			"user": {"id": 1, "login": "alice", "type": "User"},
			"requested_reviewers": [{"id": 2, "login": "bob", "type": "User"}]
		},
		"repository": {"id": 7, "name": "widgets", "full_name": "acme/widgets"},
		"sender": {"id": 1, "login": "alice", "type": "User"}
	}`)

	event, err := DecodeEvent(EventNamePullRequest, payload)
	require.NoError(t, err)

	pr, ok := event.(*PullRequestEvent)
	require.True(t, ok)
	assert.Equal(t, ActionOpened, pr.Action)
	assert.Equal(t, int64(9001), pr.PullRequest.ID)
	assert.Equal(t, "alice", pr.Sender.Login)
	require.Len(t, pr.PullRequest.RequestedReviewers, 1)
	assert.Equal(t, Key{RepoID: 7, PRID: 9001}, pr.Key())
}

func TestDecodeReviewCommentEvent(t *testing.T) {
	t.Parallel()

	payload := []byte(`{
		"action": "created",
		"comment": {
			"id": 555,
			"body": "nit: rename this",
			"html_url": "https://github.com/acme/widgets/pull/42#discussion_r555",
			"user": {"id": 2, "login": "bob", "type": "User"}
		},
		"pull_request": {"id": 9001, "number": 42},
		"repository": {"id": 7},
		"sender": {"id": 2, "login": "bob", "type": "User"}
	}`)

	event, err := DecodeEvent(EventNameReviewComment, payload)
	require.NoError(t, err)

	comment, ok := event.(*ReviewCommentEvent)
	require.True(t, ok)
	assert.Equal(t, "nit: rename this", comment.Comment.Body)
	assert.True(t, comment.Comment.User.IsHuman())
	assert.Equal(t, Key{RepoID: 7, PRID: 9001}, comment.Key())
}

func TestDecodeUnsupportedEventFamily(t *testing.T) {
	t.Parallel()

	_, err := DecodeEvent("issues", []byte(`{"action": "opened"}`))
	require.ErrorIs(t, err, ErrUnsupportedEvent)
}

func TestDecodeRejectsMalformedPayloads(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		eventName string
		payload   string
	}{
		{
			name:      "not json",
			eventName: EventNamePullRequest,
			payload:   `{"action": `,
		},
		{
			name:      "missing action",
			eventName: EventNamePullRequest,
			payload:   `{"pull_request": {"id": 1}, "repository": {"id": 2}}`,
		},
		{
			name:      "missing ids",
			eventName: EventNamePullRequest,
			payload:   `{"action": "opened", "pull_request": {}, "repository": {}}`,
		},
		{
			name:      "review request without reviewer or team",
			eventName: EventNamePullRequest,
			payload:   `{"action": "review_requested", "pull_request": {"id": 1}, "repository": {"id": 2}}`,
		},
		{
			name:      "comment missing ids",
			eventName: EventNameReviewComment,
			payload:   `{"action": "created", "comment": {"body": "hi"}}`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := DecodeEvent(tt.eventName, []byte(tt.payload))
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrUnsupportedEvent)
		})
	}
}

func TestChangesRelevant(t *testing.T) {
	t.Parallel()

	assert.False(t, (*Changes)(nil).Relevant())
	assert.False(t, (&Changes{}).Relevant())
	assert.True(t, (&Changes{Title: &ChangedField{From: "old"}}).Relevant())
	assert.True(t, (&Changes{Body: &ChangedField{From: "old"}}).Relevant())

	withBase := &Changes{Base: &struct {
		Ref ChangedField `json:"ref"`
		SHA ChangedField `json:"sha"`
	}{Ref: ChangedField{From: "main"}}}
	assert.True(t, withBase.Relevant())
}
