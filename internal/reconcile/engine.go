package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Review-Corral/review-corral-next/internal/github"
	"github.com/Review-Corral/review-corral-next/internal/slack"
	"github.com/Review-Corral/review-corral-next/internal/store"
)

// HandleEvent drives the reconciliation state machine for one decoded
// webhook delivery. It returns an error only when the event's primary
// action could not be completed; secondary fan-out failures are logged and
// absorbed here.
func HandleEvent(ctx context.Context, ec *EventContext, event github.Event) error {
	switch e := event.(type) {
	case *github.PullRequestEvent:
		return handlePullRequestEvent(ctx, ec, e)
	case *github.ReviewCommentEvent:
		return handleReviewCommentEvent(ctx, ec, e)
	default:
		ec.Logger.Debug().Msg("Dropping event of unknown type")
		return nil
	}
}

func handlePullRequestEvent(ctx context.Context, ec *EventContext, event *github.PullRequestEvent) error {
	logger := ec.Logger.With().
		Str("action", event.Action).
		Int64("pr_id", event.PullRequest.ID).
		Int64("repo_id", event.Repository.ID).
		Logger()
	logger.Debug().Msg("Handling pull request event")

	record, err := fetchRecord(ctx, ec.PullRequests.Fetch, event.Key())
	if err != nil {
		return fmt.Errorf("failed to look up pull request record: %w", err)
	}

	if event.Action == github.ActionOpened || event.Action == github.ActionReadyForReview {
		return handleNewPullRequest(ctx, ec, event, record)
	}

	if !record.HasThread() {
		// Nothing to update yet: the opening event either hasn't arrived
		// or only produced a draft record.
		logger.Debug().Msg("No thread for pull request event, dropping")
		return nil
	}
	threadTS := record.ThreadTS

	switch event.Action {
	case github.ActionConvertedToDraft:
		return handleConvertedToDraft(ctx, ec, event, threadTS)

	case github.ActionClosed:
		sender := ec.Resolver.Resolve(ctx, logger, ec.OrganizationID, event.Sender.Login)
		if event.PullRequest.Merged {
			if err := ec.Poster.PostPrMerged(ctx, event, threadTS, sender); err != nil {
				return fmt.Errorf("failed to post merged notice: %w", err)
			}
			return nil
		}
		if err := ec.Poster.PostPrClosed(ctx, event, threadTS, sender); err != nil {
			return fmt.Errorf("failed to post closed notice: %w", err)
		}
		return nil

	case github.ActionReviewRequested, github.ActionReviewRequestRemoved:
		if event.RequestedReviewer == nil {
			// Team review requests have no Slack identity to address.
			logger.Debug().Msg("Review request for a team, skipping notice")
			return nil
		}
		reviewer := ec.Resolver.Resolve(ctx, logger, ec.OrganizationID, event.RequestedReviewer.Login)
		notice := slack.ReviewRequestNotice(reviewer, event.Action == github.ActionReviewRequestRemoved)
		if err := ec.Poster.PostMessage(ctx, threadTS, notice); err != nil {
			return fmt.Errorf("failed to post review request notice: %w", err)
		}
		return nil

	case github.ActionEdited:
		return handleEdited(ctx, ec, event, threadTS)

	default:
		logger.Debug().Msg("Unhandled pull request action, dropping")
		return nil
	}
}

func handleConvertedToDraft(ctx context.Context, ec *EventContext, event *github.PullRequestEvent, threadTS string) error {
	sender := ec.Resolver.Resolve(ctx, ec.Logger, ec.OrganizationID, event.Sender.Login)
	if err := ec.Poster.PostConvertedToDraft(ctx, event, threadTS, sender); err != nil {
		return fmt.Errorf("failed to post converted-to-draft notice: %w", err)
	}

	// The notice is the primary action; a failed flag update only leaves
	// the stored draft bit stale.
	isDraft := true
	if err := ec.PullRequests.Update(ctx, event.PullRequest.ID, event.Repository.ID, store.PullRequestUpdate{IsDraft: &isDraft}); err != nil {
		ec.Logger.Error().Err(err).
			Int64("pr_id", event.PullRequest.ID).
			Msg("Failed to mark pull request as draft after posting notice")
	}
	return nil
}

func handleEdited(ctx context.Context, ec *EventContext, event *github.PullRequestEvent, threadTS string) error {
	if !event.Changes.Relevant() {
		ec.Logger.Debug().
			Int64("pr_id", event.PullRequest.ID).
			Msg("Edit touched none of base, title or body, skipping update")
		return nil
	}

	author := ec.Resolver.Resolve(ctx, ec.Logger, ec.OrganizationID, event.PullRequest.User.Login)
	if err := ec.Poster.UpdateMainMessage(ctx, event, threadTS, author); err != nil {
		return fmt.Errorf("failed to update main pull request message: %w", err)
	}
	return nil
}

// handleNewPullRequest covers opened and ready_for_review. Drafts are
// recorded but never posted; the promotion path re-checks the store with a
// strongly-consistent read right before posting so a second
// opened-equivalent delivery cannot create two threads.
func handleNewPullRequest(ctx context.Context, ec *EventContext, event *github.PullRequestEvent, record *store.PullRequestRecord) error {
	logger := ec.Logger.With().
		Int64("pr_id", event.PullRequest.ID).
		Int64("repo_id", event.Repository.ID).
		Logger()

	if event.PullRequest.Draft {
		if record != nil {
			logger.Debug().Msg("Draft pull request already tracked")
			return nil
		}
		logger.Debug().Msg("Tracking draft pull request without posting")
		if err := ec.PullRequests.Insert(ctx, &store.PullRequestRecord{
			PRID:    event.PullRequest.ID,
			RepoID:  event.Repository.ID,
			IsDraft: true,
		}); err != nil {
			return fmt.Errorf("failed to insert draft pull request record: %w", err)
		}
		return nil
	}

	// Re-check with the strongly-consistent read immediately before any
	// thread-creating post. The soft read above may have missed a record a
	// duplicated or racing delivery just wrote.
	existing, err := fetchRecord(ctx, ec.PullRequests.FetchStrong, event.Key())
	if err != nil {
		return fmt.Errorf("failed strongly-consistent pull request lookup: %w", err)
	}

	if existing.HasThread() {
		if event.Action != github.ActionReadyForReview {
			logger.Debug().Str("thread_ts", existing.ThreadTS).Msg("Thread already exists, dropping duplicate opened event")
			return nil
		}

		// A draft already promoted (or posted by a racing delivery): notify
		// in the existing thread instead of creating a second one.
		author := ec.Resolver.Resolve(ctx, logger, ec.OrganizationID, event.PullRequest.User.Login)
		if err := ec.Poster.PostReadyForReview(ctx, event, existing.ThreadTS, author); err != nil {
			return fmt.Errorf("failed to post ready-for-review notice: %w", err)
		}

		isDraft := false
		if err := ec.PullRequests.Update(ctx, event.PullRequest.ID, event.Repository.ID, store.PullRequestUpdate{IsDraft: &isDraft}); err != nil {
			logger.Error().Err(err).Msg("Failed to clear draft flag after posting notice")
		}
		return nil
	}

	threadTS, err := createNewThread(ctx, ec, event, existing)
	if err != nil {
		return err
	}

	logger.Debug().Str("thread_ts", threadTS).Msg("Created thread for pull request")
	fanOutNewThread(ctx, ec, event, threadTS)
	return nil
}

// createNewThread posts the main message and then persists the returned
// handle. Chat first, store second: if the store write fails the thread
// exists without a record, which a later strongly-consistent re-check can
// pick up. There is no compensating delete.
func createNewThread(ctx context.Context, ec *EventContext, event *github.PullRequestEvent, existing *store.PullRequestRecord) (string, error) {
	sender := ec.Resolver.Resolve(ctx, ec.Logger, ec.OrganizationID, event.Sender.Login)

	threadTS, err := ec.Poster.PostNewThread(ctx, event, sender)
	if err != nil {
		return "", fmt.Errorf("failed to post new thread for pull request %d: %w", event.PullRequest.ID, err)
	}

	if existing != nil {
		isDraft := event.PullRequest.Draft
		err = ec.PullRequests.Update(ctx, event.PullRequest.ID, event.Repository.ID, store.PullRequestUpdate{
			IsDraft:  &isDraft,
			ThreadTS: &threadTS,
		})
	} else {
		err = ec.PullRequests.Insert(ctx, &store.PullRequestRecord{
			PRID:     event.PullRequest.ID,
			RepoID:   event.Repository.ID,
			IsDraft:  event.PullRequest.Draft,
			ThreadTS: threadTS,
		})
	}
	if err != nil {
		ec.Logger.Error().Err(err).
			Int64("pr_id", event.PullRequest.ID).
			Str("thread_ts", threadTS).
			Msg("Failed to persist thread handle after posting; leaving thread dangling")
	}

	return threadTS, nil
}

// fanOutNewThread replays pre-existing review comments and posts one notice
// per already-requested reviewer. Every step is best-effort: failures are
// logged and never unwind the thread that was just created.
func fanOutNewThread(ctx context.Context, ec *EventContext, event *github.PullRequestEvent, threadTS string) {
	logger := ec.Logger.With().
		Int64("pr_id", event.PullRequest.ID).
		Str("thread_ts", threadTS).
		Logger()

	replayExistingComments(ctx, ec, event, threadTS, logger)

	for _, reviewer := range event.PullRequest.RequestedReviewers {
		name := ec.Resolver.Resolve(ctx, logger, ec.OrganizationID, reviewer.Login)
		if err := ec.Poster.PostMessage(ctx, threadTS, slack.ReviewRequestNotice(name, false)); err != nil {
			logger.Error().Err(err).
				Str("reviewer", reviewer.Login).
				Msg("Failed to post reviewer notice for new thread")
		}
	}
}

func replayExistingComments(ctx context.Context, ec *EventContext, event *github.PullRequestEvent, threadTS string, logger zerolog.Logger) {
	token, err := ec.Tokens.IssueInstallationToken(ctx, ec.InstallationID)
	if err != nil {
		logger.Error().Err(err).
			Int64("installation_id", ec.InstallationID).
			Msg("Failed to issue installation token for comment replay")
		return
	}

	comments, err := ec.Comments.GetPullRequestComments(ctx, event.PullRequest.CommentsURL, token.Token)
	if err != nil {
		logger.Error().Err(err).
			Int64("installation_id", ec.InstallationID).
			Int64("organization_id", ec.OrganizationID).
			Msg("Failed to fetch existing comments for replay")
		return
	}

	// Comments arrive oldest first; keep that order in the thread.
	for _, comment := range comments {
		if !comment.User.IsHuman() {
			continue
		}
		author := ec.Resolver.Resolve(ctx, logger, ec.OrganizationID, comment.User.Login)
		if err := ec.Poster.PostComment(ctx, threadTS, author, comment.Body, comment.HTMLURL); err != nil {
			logger.Error().Err(err).
				Int64("comment_id", comment.ID).
				Msg("Failed to replay comment into new thread")
		}
	}
}

func handleReviewCommentEvent(ctx context.Context, ec *EventContext, event *github.ReviewCommentEvent) error {
	logger := ec.Logger.With().
		Str("action", event.Action).
		Int64("pr_id", event.PullRequest.ID).
		Int64("repo_id", event.Repository.ID).
		Logger()

	if event.Action != github.ActionCommentCreated || !event.Comment.User.IsHuman() {
		logger.Debug().Str("author_type", event.Comment.User.Type).Msg("Ignoring review comment event")
		return nil
	}

	record, err := fetchRecord(ctx, ec.PullRequests.Fetch, event.Key())
	if err != nil {
		return fmt.Errorf("failed to look up pull request record for comment: %w", err)
	}

	if !record.HasThread() {
		// The comment beat the opening event; there is no retry queue.
		logger.Warn().Msg("Got a comment event but couldn't find the thread")
		return nil
	}

	author := ec.Resolver.Resolve(ctx, logger, ec.OrganizationID, event.Sender.Login)
	if err := ec.Poster.PostComment(ctx, record.ThreadTS, author, event.Comment.Body, event.Comment.HTMLURL); err != nil {
		return fmt.Errorf("failed to post comment to thread: %w", err)
	}
	return nil
}

type fetchFunc func(ctx context.Context, prID, repoID int64) (*store.PullRequestRecord, error)

func fetchRecord(ctx context.Context, fetch fetchFunc, key github.Key) (*store.PullRequestRecord, error) {
	record, err := fetch(ctx, key.PRID, key.RepoID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}
