package store

import "time"

// PullRequestRecord is the durable mapping from a pull request to its Slack
// thread. ThreadTS is empty while only a draft record exists; once set it
// stays stable for the life of the PR.
type PullRequestRecord struct {
	PRID      int64
	RepoID    int64
	IsDraft   bool
	ThreadTS  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasThread reports whether a Slack thread has been posted for this PR.
func (r *PullRequestRecord) HasThread() bool {
	return r != nil && r.ThreadTS != ""
}

// Organization is one GitHub organization the app is installed in
type Organization struct {
	ID             int64
	Name           string
	InstallationID int64
}

// SlackIntegration holds the Slack workspace wiring for an organization
type SlackIntegration struct {
	OrganizationID int64
	ChannelID      string
	AccessToken    string
}

// UsernameMapping maps a GitHub login to a Slack user for one organization
type UsernameMapping struct {
	OrganizationID int64
	GithubLogin    string
	SlackUserID    string
}
