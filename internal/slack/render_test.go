package slack

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Review-Corral/review-corral-next/internal/github"
)

func testEvent() *github.PullRequestEvent {
	return &github.PullRequestEvent{
		PullRequest: github.PullRequest{
			ID:      9001,
			Number:  42,
			Title:   "Add retries",
			Body:    "Retries the flaky call three times.",
			HTMLURL: "https://github.com/acme/widgets/pull/42",
			User:    github.User{Login: "alice"},
		},
	}
}

func TestRenderMainMessage(t *testing.T) {
	t.Parallel()

	message := renderMainMessage(testEvent(), "<@U123>")
	assert.Equal(t, "Pull request opened by <@U123>: <https://github.com/acme/widgets/pull/42|#42 Add retries>", message.Text)

	if assert.Len(t, message.Attachments, 1) {
		assert.Equal(t, colorOpen, message.Attachments[0].Color)
		assert.Equal(t, "Retries the flaky call three times.", message.Attachments[0].Text)
	}
}

func TestRenderMainMessageWithoutBody(t *testing.T) {
	t.Parallel()

	event := testEvent()
	event.PullRequest.Body = ""
	message := renderMainMessage(event, "alice")
	assert.Empty(t, message.Attachments)
}

func TestRenderMainMessageClosedColors(t *testing.T) {
	t.Parallel()

	merged := renderMainMessageClosed(testEvent(), statusMerged)
	assert.Contains(t, merged.Text, "(merged)")
	assert.Equal(t, colorMerged, merged.Attachments[0].Color)

	closed := renderMainMessageClosed(testEvent(), statusClosed)
	assert.Contains(t, closed.Text, "(closed)")
	assert.Equal(t, colorClosed, closed.Attachments[0].Color)
}

func TestRenderComment(t *testing.T) {
	t.Parallel()

	message := renderComment("<@U456>", "nit: rename this", "https://github.com/acme/widgets/pull/42#discussion_r1")
	assert.Equal(t, "<https://github.com/acme/widgets/pull/42#discussion_r1|Comment> from <@U456>", message.Text)
	assert.Equal(t, "nit: rename this", message.Attachments[0].Text)

	plain := renderComment("bob", "looks good", "")
	assert.Equal(t, "Comment from bob", plain.Text)
}

func TestReviewRequestNotice(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ":mag: Review request for <@U123>", ReviewRequestNotice("<@U123>", false))
	assert.Equal(t, "Review request for <@U123> removed", ReviewRequestNotice("<@U123>", true))
}
