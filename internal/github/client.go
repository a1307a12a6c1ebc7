package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const apiVersionHeader = "2022-11-28"

// Client is a thin typed client for the GitHub REST API. It holds no
// credentials: every call takes the token to use, because tokens are
// short-lived and installation-scoped.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new GitHub API client
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	if baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}

	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// InstallationRepository is one repository an installation grants access to
type InstallationRepository struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	HTMLURL  string `json:"html_url"`
	Private  bool   `json:"private"`
}

type installationRepositoriesResponse struct {
	TotalCount   int                      `json:"total_count"`
	Repositories []InstallationRepository `json:"repositories"`
}

// OrgMember is a member of a GitHub organization
type OrgMember struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	Type      string `json:"type"`
}

// GetPullRequestComments fetches the review comments already present on a
// pull request. commentsURL is taken verbatim from the webhook payload, so
// the call works regardless of which repository the PR lives in.
func (c *Client) GetPullRequestComments(ctx context.Context, commentsURL, token string) ([]Comment, error) {
	var comments []Comment
	if err := c.getJSON(ctx, commentsURL, token, &comments); err != nil {
		return nil, fmt.Errorf("failed to fetch pull request comments: %w", err)
	}
	return comments, nil
}

// GetOrgMembers fetches the members of an organization
func (c *Client) GetOrgMembers(ctx context.Context, org, token string) ([]OrgMember, error) {
	requestURL := fmt.Sprintf("%s/orgs/%s/members", c.baseURL, url.PathEscape(org))

	var members []OrgMember
	if err := c.getJSON(ctx, requestURL, token, &members); err != nil {
		return nil, fmt.Errorf("failed to fetch org members: %w", err)
	}
	return members, nil
}

// GetInstallationRepositories fetches the repositories accessible to the
// installation the token was issued for.
func (c *Client) GetInstallationRepositories(ctx context.Context, token string) ([]InstallationRepository, error) {
	requestURL := c.baseURL + "/installation/repositories"

	var response installationRepositoriesResponse
	if err := c.getJSON(ctx, requestURL, token, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch installation repositories: %w", err)
	}
	return response.Repositories, nil
}

func (c *Client) getJSON(ctx context.Context, requestURL, token string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersionHeader)
	req.Header.Set("User-Agent", "ReviewCorral-Bot")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GitHub API error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode GitHub response: %w", err)
	}

	return nil
}
