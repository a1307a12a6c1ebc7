package github

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Event names as delivered in the X-GitHub-Event header.
const (
	EventNamePullRequest   = "pull_request"
	EventNameReviewComment = "pull_request_review_comment"
)

// Pull request actions handled by the reconciliation engine.
const (
	ActionOpened               = "opened"
	ActionReadyForReview       = "ready_for_review"
	ActionEdited               = "edited"
	ActionConvertedToDraft     = "converted_to_draft"
	ActionClosed               = "closed"
	ActionReviewRequested      = "review_requested"
	ActionReviewRequestRemoved = "review_request_removed"
	ActionCommentCreated       = "created"
)

// ErrUnsupportedEvent is returned when a webhook delivery is outside the
// pull-request event family. Callers drop these deliveries.
var ErrUnsupportedEvent = errors.New("unsupported webhook event")

// User represents a GitHub user
type User struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	HTMLURL   string `json:"html_url"`
	AvatarURL string `json:"avatar_url"`
	Type      string `json:"type"`
}

// IsHuman reports whether the account is a real user rather than a bot or app.
func (u User) IsHuman() bool {
	return u.Type == "User"
}

// Team represents a GitHub team
type Team struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Repository represents a GitHub repository
type Repository struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	HTMLURL  string `json:"html_url"`
	Owner    User   `json:"owner"`
}

// Branch represents one side of a pull request
type Branch struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

// PullRequest represents the pull_request snapshot carried in webhook payloads
type PullRequest struct {
	ID                 int64  `json:"id"`
	Number             int    `json:"number"`
	Title              string `json:"title"`
	Body               string `json:"body"`
	State              string `json:"state"`
	Draft              bool   `json:"draft"`
	Merged             bool   `json:"merged"`
	HTMLURL            string `json:"html_url"`
	CommentsURL        string `json:"comments_url"`
	ReviewCommentsURL  string `json:"review_comments_url"`
	Head               Branch `json:"head"`
	Base               Branch `json:"base"`
	User               User   `json:"user"`
	RequestedReviewers []User `json:"requested_reviewers"`
	RequestedTeams     []Team `json:"requested_teams"`
}

// ChangedField holds the previous value of an edited field
type ChangedField struct {
	From string `json:"from"`
}

// Changes describes what an "edited" event touched. Only base, title and
// body are relevant to the Slack thread.
type Changes struct {
	Base *struct {
		Ref ChangedField `json:"ref"`
		SHA ChangedField `json:"sha"`
	} `json:"base,omitempty"`
	Title *ChangedField `json:"title,omitempty"`
	Body  *ChangedField `json:"body,omitempty"`
}

// Relevant reports whether the edit touched anything worth reflecting in Slack.
func (c *Changes) Relevant() bool {
	return c != nil && (c.Base != nil || c.Title != nil || c.Body != nil)
}

// Comment represents a pull request review comment
type Comment struct {
	ID      int64  `json:"id"`
	Body    string `json:"body"`
	URL     string `json:"url"`
	HTMLURL string `json:"html_url"`
	User    User   `json:"user"`
}

// PullRequestEvent is a decoded pull_request webhook delivery
type PullRequestEvent struct {
	Action      string      `json:"action"`
	Number      int         `json:"number"`
	PullRequest PullRequest `json:"pull_request"`
	Repository  Repository  `json:"repository"`
	Sender      User        `json:"sender"`
	Changes     *Changes    `json:"changes,omitempty"`
	// Exactly one of these is set for review_requested/review_request_removed
	RequestedReviewer *User `json:"requested_reviewer,omitempty"`
	RequestedTeam     *Team `json:"requested_team,omitempty"`
}

// ReviewCommentEvent is a decoded pull_request_review_comment webhook delivery
type ReviewCommentEvent struct {
	Action      string      `json:"action"`
	Comment     Comment     `json:"comment"`
	PullRequest PullRequest `json:"pull_request"`
	Repository  Repository  `json:"repository"`
	Sender      User        `json:"sender"`
}

// Event is the closed set of webhook deliveries the engine consumes.
type Event interface {
	isWebhookEvent()
	Key() Key
}

func (*PullRequestEvent) isWebhookEvent()   {}
func (*ReviewCommentEvent) isWebhookEvent() {}

// Key identifies a pull request across both event families.
type Key struct {
	RepoID int64
	PRID   int64
}

// Key returns the (repository, pull request) identity of the event.
func (e *PullRequestEvent) Key() Key {
	return Key{RepoID: e.Repository.ID, PRID: e.PullRequest.ID}
}

// Key returns the (repository, pull request) identity of the event.
func (e *ReviewCommentEvent) Key() Key {
	return Key{RepoID: e.Repository.ID, PRID: e.PullRequest.ID}
}

// DecodeEvent parses a raw webhook body into its typed event. Event families
// outside the pull-request family return ErrUnsupportedEvent; payloads that
// do not carry the fields the engine relies on are a decode error rather
// than a runtime surprise further in.
func DecodeEvent(eventName string, body []byte) (Event, error) {
	switch eventName {
	case EventNamePullRequest:
		var event PullRequestEvent
		if err := json.Unmarshal(body, &event); err != nil {
			return nil, fmt.Errorf("failed to parse pull_request webhook: %w", err)
		}
		if err := event.validate(); err != nil {
			return nil, err
		}
		return &event, nil

	case EventNameReviewComment:
		var event ReviewCommentEvent
		if err := json.Unmarshal(body, &event); err != nil {
			return nil, fmt.Errorf("failed to parse pull_request_review_comment webhook: %w", err)
		}
		if err := event.validate(); err != nil {
			return nil, err
		}
		return &event, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEvent, eventName)
	}
}

func (e *PullRequestEvent) validate() error {
	if e.Action == "" {
		return fmt.Errorf("pull_request event missing action")
	}
	if e.PullRequest.ID == 0 || e.Repository.ID == 0 {
		return fmt.Errorf("pull_request event missing pull request or repository id (action=%s)", e.Action)
	}
	switch e.Action {
	case ActionReviewRequested, ActionReviewRequestRemoved:
		if e.RequestedReviewer == nil && e.RequestedTeam == nil {
			return fmt.Errorf("%s event carries neither requested_reviewer nor requested_team", e.Action)
		}
	}
	return nil
}

func (e *ReviewCommentEvent) validate() error {
	if e.Action == "" {
		return fmt.Errorf("pull_request_review_comment event missing action")
	}
	if e.PullRequest.ID == 0 || e.Repository.ID == 0 {
		return fmt.Errorf("pull_request_review_comment event missing pull request or repository id")
	}
	return nil
}
