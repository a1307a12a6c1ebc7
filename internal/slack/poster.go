package slack

import (
	"context"

	"github.com/Review-Corral/review-corral-next/internal/github"
)

// Poster renders pull-request events into Slack messages and performs the
// actual posting. The thread timestamp returned by PostNewThread is the
// handle every later call addresses.
type Poster interface {
	PostNewThread(ctx context.Context, event *github.PullRequestEvent, authorName string) (string, error)
	PostReadyForReview(ctx context.Context, event *github.PullRequestEvent, threadTS, authorName string) error
	PostPrMerged(ctx context.Context, event *github.PullRequestEvent, threadTS, mergedBy string) error
	PostPrClosed(ctx context.Context, event *github.PullRequestEvent, threadTS, closedBy string) error
	PostConvertedToDraft(ctx context.Context, event *github.PullRequestEvent, threadTS, actorName string) error
	PostComment(ctx context.Context, threadTS, authorName, body, commentURL string) error
	PostMessage(ctx context.Context, threadTS, text string) error
	UpdateMainMessage(ctx context.Context, event *github.PullRequestEvent, threadTS, authorName string) error
}

// ChannelPoster posts to one channel with one workspace token. A new one is
// built per webhook delivery from the organization's Slack integration.
type ChannelPoster struct {
	client  *WebClient
	token   string
	channel string
}

// NewChannelPoster creates a poster bound to a channel and token
func NewChannelPoster(client *WebClient, token, channel string) *ChannelPoster {
	return &ChannelPoster{
		client:  client,
		token:   token,
		channel: channel,
	}
}

// PostNewThread posts the main PR message and returns its thread timestamp
func (p *ChannelPoster) PostNewThread(ctx context.Context, event *github.PullRequestEvent, authorName string) (string, error) {
	return p.client.PostMessage(ctx, p.token, p.channel, renderMainMessage(event, authorName), "")
}

// PostReadyForReview posts a short promotion notice into the thread
func (p *ChannelPoster) PostReadyForReview(ctx context.Context, event *github.PullRequestEvent, threadTS, authorName string) error {
	_, err := p.client.PostMessage(ctx, p.token, p.channel, renderReadyForReview(event, authorName), threadTS)
	return err
}

// PostPrMerged posts a merged notice and repaints the main message
func (p *ChannelPoster) PostPrMerged(ctx context.Context, event *github.PullRequestEvent, threadTS, mergedBy string) error {
	if _, err := p.client.PostMessage(ctx, p.token, p.channel, renderMerged(event, mergedBy), threadTS); err != nil {
		return err
	}
	return p.client.UpdateMessage(ctx, p.token, p.channel, threadTS, renderMainMessageClosed(event, statusMerged))
}

// PostPrClosed posts a closed notice and repaints the main message
func (p *ChannelPoster) PostPrClosed(ctx context.Context, event *github.PullRequestEvent, threadTS, closedBy string) error {
	if _, err := p.client.PostMessage(ctx, p.token, p.channel, renderClosed(event, closedBy), threadTS); err != nil {
		return err
	}
	return p.client.UpdateMessage(ctx, p.token, p.channel, threadTS, renderMainMessageClosed(event, statusClosed))
}

// PostConvertedToDraft posts a draft-conversion notice into the thread
func (p *ChannelPoster) PostConvertedToDraft(ctx context.Context, event *github.PullRequestEvent, threadTS, actorName string) error {
	_, err := p.client.PostMessage(ctx, p.token, p.channel, renderConvertedToDraft(event, actorName), threadTS)
	return err
}

// PostComment posts a review comment as a threaded reply
func (p *ChannelPoster) PostComment(ctx context.Context, threadTS, authorName, body, commentURL string) error {
	_, err := p.client.PostMessage(ctx, p.token, p.channel, renderComment(authorName, body, commentURL), threadTS)
	return err
}

// PostMessage posts a bare text notice into the thread
func (p *ChannelPoster) PostMessage(ctx context.Context, threadTS, text string) error {
	_, err := p.client.PostMessage(ctx, p.token, p.channel, Message{Text: text}, threadTS)
	return err
}

// UpdateMainMessage rewrites the main PR message after an edit
func (p *ChannelPoster) UpdateMainMessage(ctx context.Context, event *github.PullRequestEvent, threadTS, authorName string) error {
	return p.client.UpdateMessage(ctx, p.token, p.channel, threadTS, renderMainMessage(event, authorName))
}
