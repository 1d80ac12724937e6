package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		BaseURL:     srv.URL,
		AccessToken: "test-token",
		PhoneID:     "12345",
	})
	require.NoError(t, err)
	return c
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{PhoneID: "12345"})
	assert.Error(t, err)

	_, err = New(Config{AccessToken: "tok"})
	assert.Error(t, err)
}

func TestSendTextPostsToMessages(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/12345/messages", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.SendText(context.Background(), "919876543210", "hello"))

	assert.Equal(t, "whatsapp", got["messaging_product"])
	assert.Equal(t, "919876543210", got["to"])
	assert.Equal(t, "text", got["type"])
}

func TestSendButtonsEnforcesCap(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	four := []Button{{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"}}
	err := c.SendButtons(context.Background(), "919876543210", "pick", four)
	assert.Error(t, err)

	err = c.SendButtons(context.Background(), "919876543210", "pick", four[:3])
	assert.NoError(t, err)
}

func TestSendListEnforcesCap(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rows := make([]Row, 11)
	for i := range rows {
		rows[i] = Row{ID: string(rune('a' + i)), Title: "row"}
	}
	err := c.SendList(context.Background(), "919876543210", "pick", "Options", rows)
	assert.Error(t, err)

	err = c.SendList(context.Background(), "919876543210", "pick", "Options", rows[:10])
	assert.NoError(t, err)
}

func TestButtonTitlesAreTruncated(t *testing.T) {
	var got interactiveMessage
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	})

	long := "ThisTitleIsFarTooLongForAReplyButton"
	err := c.SendButtons(context.Background(), "919876543210", "pick", []Button{{ID: "x", Title: long}})
	require.NoError(t, err)

	require.Len(t, got.Interactive.Action.Buttons, 1)
	assert.Len(t, got.Interactive.Action.Buttons[0].Reply.Title, maxButtonTitle)
}

func TestSendDocumentPayload(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	})

	err := c.SendDocument(context.Background(), "919876543210", "https://reports.novamed.example/P1001.pdf", "visit-report.pdf")
	require.NoError(t, err)

	assert.Equal(t, "document", got["type"])
	doc, ok := got["document"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "visit-report.pdf", doc["filename"])

	err = c.SendDocument(context.Background(), "919876543210", "", "x.pdf")
	assert.Error(t, err)
}

func TestRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{
		BaseURL:     srv.URL,
		AccessToken: "tok",
		PhoneID:     "12345",
		MaxRetries:  2,
		Backoff:     1,
	})
	require.NoError(t, err)

	require.NoError(t, c.SendText(context.Background(), "919876543210", "hello"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"(#131030) Recipient phone number not in allowed list","type":"OAuthException","code":131030}}`))
	})

	err := c.SendText(context.Background(), "919876543210", "hello")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var apiErr *apiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, 131030, apiErr.Code)
	assert.Contains(t, apiErr.Message, "131030")
}
