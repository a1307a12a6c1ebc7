package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/Review-Corral/review-corral-next/internal/retry"
)

// WebClient is a custom HTTP client for the Slack Web API. It is stateless
// with respect to credentials: the bot token is supplied per call because
// each organization brings its own workspace token.
type WebClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewWebClient creates a new Slack Web API client
func NewWebClient(baseURL string) *WebClient {
	if baseURL == "" {
		baseURL = "https://slack.com/api"
	}
	if baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}

	return &WebClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		// chat.postMessage is limited to roughly one message per second
		// per channel; smooth bursts instead of tripping Slack's 429s.
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

// Attachment is a legacy-style message attachment
type Attachment struct {
	Color string `json:"color,omitempty"`
	Text  string `json:"text,omitempty"`
}

// Message is the renderable part of a Slack post
type Message struct {
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type postMessageRequest struct {
	Channel     string       `json:"channel"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
	ThreadTS    string       `json:"thread_ts,omitempty"`
	UnfurlLinks bool         `json:"unfurl_links"`
}

type updateMessageRequest struct {
	Channel     string       `json:"channel"`
	TS          string       `json:"ts"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	TS    string `json:"ts"`
	Error string `json:"error"`
}

// PostMessage posts a message to a channel, optionally threaded under
// threadTS, and returns the timestamp Slack assigned to it.
func (c *WebClient) PostMessage(ctx context.Context, token, channel string, message Message, threadTS string) (string, error) {
	body := postMessageRequest{
		Channel:     channel,
		Text:        message.Text,
		Attachments: message.Attachments,
		ThreadTS:    threadTS,
	}

	response, err := c.call(ctx, token, "chat.postMessage", body)
	if err != nil {
		return "", err
	}
	if response.TS == "" {
		return "", fmt.Errorf("chat.postMessage returned no message timestamp")
	}
	return response.TS, nil
}

// UpdateMessage rewrites an existing message in place
func (c *WebClient) UpdateMessage(ctx context.Context, token, channel, ts string, message Message) error {
	body := updateMessageRequest{
		Channel:     channel,
		TS:          ts,
		Text:        message.Text,
		Attachments: message.Attachments,
	}

	_, err := c.call(ctx, token, "chat.update", body)
	return err
}

// errTransient marks responses worth one more attempt (429s and 5xx).
var errTransient = errors.New("transient slack error")

func (c *WebClient) call(ctx context.Context, token, method string, body interface{}) (*apiResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	var response *apiResponse
	err = retry.Do(ctx, retry.DefaultConfig(), func() error {
		response, err = c.callOnce(ctx, token, method, payload)
		return err
	}, func(err error) bool {
		return errors.Is(err, errTransient)
	})
	if err != nil {
		return nil, err
	}

	return response, nil
}

func (c *WebClient) callOnce(ctx context.Context, token, method string, payload []byte) (*apiResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter interrupted: %w", err)
	}

	requestURL := fmt.Sprintf("%s/%s", c.baseURL, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, fmt.Errorf("slack %s failed with status %d: %w", method, resp.StatusCode, errTransient)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("slack %s failed with status %d", method, resp.StatusCode)
	}

	var response apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", method, err)
	}

	if !response.OK {
		return nil, fmt.Errorf("slack %s error: %s", method, response.Error)
	}

	return &response, nil
}
