package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendsTokenAndDecodesInbox(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "/api/v1/notifications", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"items": [{"notification": {"id": "n1", "verb": "mention", "is_read": false},
			           "message": {"header": "bob has mentioned you in their post", "body": "Film night"}}],
			"page": 2, "page_size": 10, "total": 11, "has_next": false
		}`))
	}))
	defer server.Close()

	page, err := NewClient(server.URL, "secret", time.Second).Notifications(2, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "n1", page.Items[0].Notification.ID)
	assert.Equal(t, "mention", page.Items[0].Notification.Verb)
	assert.EqualValues(t, 11, page.Total)

	var out bytes.Buffer
	printInbox(&out, page)
	assert.Contains(t, out.String(), "bob has mentioned you in their post")
	assert.Contains(t, out.String(), "Film night")
}

func TestClientReturnsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code": "NOT_FOUND", "message": "notification not found"}`))
	}))
	defer server.Close()

	err := NewClient(server.URL, "secret", time.Second).MarkRead("missing")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "API error: notification not found", apiErr.Error())
}

func TestClientUpdatePreferencesOmitsUnsetPush(t *testing.T) {
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"email_verbs": ["mention"], "push_enabled": true}`))
	}))
	defer server.Close()

	prefs, err := NewClient(server.URL, "secret", time.Second).UpdatePreferences([]string{"mention"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"mention"}, prefs.EmailVerbs)
	assert.NotContains(t, body, "push_enabled")
	assert.Equal(t, []interface{}{"mention"}, body["email_verbs"])
}
