package slack

import (
	"fmt"

	"github.com/Review-Corral/review-corral-next/internal/github"
)

type prStatus string

const (
	statusMerged prStatus = "merged"
	statusClosed prStatus = "closed"
)

const (
	colorOpen   = "#36a64f"
	colorMerged = "#8839ef"
	colorClosed = "#d1242f"
)

func prLink(event *github.PullRequestEvent) string {
	return fmt.Sprintf("<%s|#%d %s>", event.PullRequest.HTMLURL, event.PullRequest.Number, event.PullRequest.Title)
}

func renderMainMessage(event *github.PullRequestEvent, authorName string) Message {
	message := Message{
		Text: fmt.Sprintf("Pull request opened by %s: %s", authorName, prLink(event)),
	}
	if body := event.PullRequest.Body; body != "" {
		message.Attachments = []Attachment{{Color: colorOpen, Text: body}}
	}
	return message
}

func renderMainMessageClosed(event *github.PullRequestEvent, status prStatus) Message {
	color := colorClosed
	if status == statusMerged {
		color = colorMerged
	}

	message := Message{
		Text: fmt.Sprintf("Pull request opened by %s: %s (%s)", event.PullRequest.User.Login, prLink(event), status),
	}
	if body := event.PullRequest.Body; body != "" {
		message.Attachments = []Attachment{{Color: color, Text: body}}
	}
	return message
}

func renderReadyForReview(event *github.PullRequestEvent, authorName string) Message {
	return Message{Text: fmt.Sprintf("%s marked this pull request as ready for review", authorName)}
}

func renderMerged(event *github.PullRequestEvent, mergedBy string) Message {
	return Message{Text: fmt.Sprintf("Pull request merged by %s :tada:", mergedBy)}
}

func renderClosed(event *github.PullRequestEvent, closedBy string) Message {
	return Message{Text: fmt.Sprintf("Pull request closed by %s", closedBy)}
}

func renderConvertedToDraft(event *github.PullRequestEvent, actorName string) Message {
	return Message{Text: fmt.Sprintf("%s converted this pull request back to a draft", actorName)}
}

func renderComment(authorName, body, commentURL string) Message {
	text := fmt.Sprintf("Comment from %s", authorName)
	if commentURL != "" {
		text = fmt.Sprintf("<%s|Comment> from %s", commentURL, authorName)
	}
	return Message{
		Text:        text,
		Attachments: []Attachment{{Text: body}},
	}
}

// ReviewRequestNotice is the short message posted when a reviewer is asked
// for (or released from) a review.
func ReviewRequestNotice(reviewerName string, removed bool) string {
	if removed {
		return fmt.Sprintf("Review request for %s removed", reviewerName)
	}
	return fmt.Sprintf(":mag: Review request for %s", reviewerName)
}
