package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client talks to one community's API. The community is picked by the
// host of baseURL.
type Client struct {
	http *resty.Client
}

// NewClient creates an API client. An empty token sends no Authorization
// header.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "localhub-cli/0.1.0")
	if token != "" {
		http.SetAuthToken(token)
	}
	return &Client{http: http}
}

// APIError is the error body every endpoint returns
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error: status %d", e.Status)
	}
	if e.Field != "" {
		return fmt.Sprintf("API error: %s (%s)", e.Message, e.Field)
	}
	return "API error: " + e.Message
}

// Notification is one inbox entry
type Notification struct {
	ID          string    `json:"id"`
	ActorID     string    `json:"actor_id"`
	SubjectKind string    `json:"subject_kind"`
	SubjectID   string    `json:"subject_id"`
	Verb        string    `json:"verb"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

// InboxItem pairs a notification with its rendered text
type InboxItem struct {
	Notification Notification `json:"notification"`
	Message      struct {
		Header string `json:"header"`
		Body   string `json:"body"`
		URL    string `json:"url"`
	} `json:"message"`
}

// InboxPage is one page of the inbox
type InboxPage struct {
	Items    []InboxItem `json:"items"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Total    int64       `json:"total"`
	HasNext  bool        `json:"has_next"`
}

// Preferences are the user's delivery settings
type Preferences struct {
	EmailVerbs     []string `json:"email_verbs"`
	PushEnabled    bool     `json:"push_enabled"`
	AvailableVerbs []string `json:"available_verbs,omitempty"`
}

// Login exchanges credentials for a session token
func (c *Client) Login(email, password string) (string, error) {
	var result struct {
		Token string `json:"token"`
	}
	err := c.do(c.http.R().
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&result), resty.MethodPost, "/api/v1/auth/login")
	if err != nil {
		return "", err
	}
	return result.Token, nil
}

// Notifications fetches one page of the inbox
func (c *Client) Notifications(page, pageSize int) (*InboxPage, error) {
	var result InboxPage
	err := c.do(c.http.R().
		SetQueryParams(map[string]string{
			"page":      strconv.Itoa(page),
			"page_size": strconv.Itoa(pageSize),
		}).
		SetResult(&result), resty.MethodGet, "/api/v1/notifications")
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UnreadCount returns the badge count
func (c *Client) UnreadCount() (int64, error) {
	var result struct {
		Unread int64 `json:"unread"`
	}
	if err := c.do(c.http.R().SetResult(&result), resty.MethodGet, "/api/v1/notifications/unread-count"); err != nil {
		return 0, err
	}
	return result.Unread, nil
}

// MarkRead marks one notification read
func (c *Client) MarkRead(id string) error {
	return c.do(c.http.R().SetPathParam("id", id), resty.MethodPost, "/api/v1/notifications/{id}/read")
}

// MarkAllRead marks the whole inbox read and returns how many changed
func (c *Client) MarkAllRead() (int64, error) {
	var result struct {
		Marked int64 `json:"marked"`
	}
	if err := c.do(c.http.R().SetResult(&result), resty.MethodPost, "/api/v1/notifications/read"); err != nil {
		return 0, err
	}
	return result.Marked, nil
}

// Delete removes one notification
func (c *Client) Delete(id string) error {
	return c.do(c.http.R().SetPathParam("id", id), resty.MethodDelete, "/api/v1/notifications/{id}")
}

// DeleteAll empties the inbox and returns how many were removed
func (c *Client) DeleteAll() (int64, error) {
	var result struct {
		Deleted int64 `json:"deleted"`
	}
	if err := c.do(c.http.R().SetResult(&result), resty.MethodDelete, "/api/v1/notifications"); err != nil {
		return 0, err
	}
	return result.Deleted, nil
}

// Preferences fetches the delivery settings
func (c *Client) Preferences() (*Preferences, error) {
	var result Preferences
	if err := c.do(c.http.R().SetResult(&result), resty.MethodGet, "/api/v1/notifications/preferences"); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdatePreferences replaces the emailed verbs and optionally the push toggle
func (c *Client) UpdatePreferences(emailVerbs []string, pushEnabled *bool) (*Preferences, error) {
	body := map[string]interface{}{"email_verbs": emailVerbs}
	if pushEnabled != nil {
		body["push_enabled"] = *pushEnabled
	}
	var result Preferences
	if err := c.do(c.http.R().SetBody(body).SetResult(&result), resty.MethodPut, "/api/v1/notifications/preferences"); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) do(req *resty.Request, method, path string) error {
	apiErr := &APIError{}
	resp, err := req.SetError(apiErr).Execute(method, path)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	if resp.IsError() {
		apiErr.Status = resp.StatusCode()
		return apiErr
	}
	return nil
}
