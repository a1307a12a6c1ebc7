package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostMessage(t *testing.T) {
	t.Parallel()

	var got postMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat.postMessage", r.URL.Path)
		require.Equal(t, "Bearer xoxb-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Write([]byte(`{"ok": true, "ts": "1700000000.000100"}`))
	}))
	defer server.Close()

	client := NewWebClient(server.URL)

	ts, err := client.PostMessage(context.Background(), "xoxb-test", "C123", Message{Text: "hello"}, "1699.42")
	require.NoError(t, err)
	assert.Equal(t, "1700000000.000100", ts)
	assert.Equal(t, "C123", got.Channel)
	assert.Equal(t, "hello", got.Text)
	assert.Equal(t, "1699.42", got.ThreadTS)
}

func TestPostMessageSurfacesSlackError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok": false, "error": "channel_not_found"}`))
	}))
	defer server.Close()

	client := NewWebClient(server.URL)

	_, err := client.PostMessage(context.Background(), "xoxb-test", "C404", Message{Text: "hello"}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}

func TestPostMessageRetriesRateLimit(t *testing.T) {
	t.Parallel()

	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok": true, "ts": "1700000000.000200"}`))
	}))
	defer server.Close()

	client := NewWebClient(server.URL)

	ts, err := client.PostMessage(context.Background(), "xoxb-test", "C123", Message{Text: "hello"}, "")
	require.NoError(t, err)
	assert.Equal(t, "1700000000.000200", ts)
	assert.Equal(t, 2, attempts)
}

func TestUpdateMessage(t *testing.T) {
	t.Parallel()

	var got updateMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat.update", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Write([]byte(`{"ok": true, "ts": "1700000000.000100"}`))
	}))
	defer server.Close()

	client := NewWebClient(server.URL)

	err := client.UpdateMessage(context.Background(), "xoxb-test", "C123", "1700000000.000100", Message{Text: "updated"})
	require.NoError(t, err)
	assert.Equal(t, "1700000000.000100", got.TS)
	assert.Equal(t, "updated", got.Text)
}
