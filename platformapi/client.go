// Package platformapi contains minimal helpers to interact with the e-learning platform
// REST API: user lookup and the chat store endpoints (rooms, participants, messages),
// using a bearer access token obtained from the platform's token endpoint.
package platformapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/johnyUofL/coursechat/telemetry"
)

// User identifies a platform account; only the fields the chat subsystem needs.
type User struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// DisplayName returns the user's full name, falling back to the username.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// Room is a chat room record as served by the store.
type Room struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	IsActive    bool      `json:"is_active"`
	IsPrivate   bool      `json:"is_private"`
}

// Participant associates a user with a room. The store embeds the full user
// and room objects in list responses.
type Participant struct {
	ID       int       `json:"id"`
	Room     Room      `json:"room"`
	User     User      `json:"user"`
	JoinedAt time.Time `json:"joined_at"`
}

// Message is an immutable chat message. IDs are server-assigned and strictly
// increasing within a room; they are the sole polling cursor.
type Message struct {
	ID        int       `json:"id"`
	Room      Room      `json:"room"`
	User      User      `json:"user"`
	Content   string    `json:"content"`
	SentAt    time.Time `json:"sent_at"`
	IsDeleted bool      `json:"is_deleted"`
}

// APIError carries the HTTP status and the store's error detail, when present.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("platform api: %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("platform api: %d", e.StatusCode)
}

// Client provides the methods the chat subsystem needs against the platform API.
type Client struct {
	BaseURL     string
	TokenSource *TokenSource
	HTTPClient  *http.Client
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// do performs an authenticated JSON request and decodes the response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	ctx, span := telemetry.StartSpan(ctx, "platformapi", method+" "+path,
		attribute.String("http.method", method),
		attribute.String("http.path", path),
	)
	defer span.End()

	tok, err := c.TokenSource.Get(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.BaseURL, "/")+path, rd)
	if err != nil {
		return err
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := c.http().Do(req)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var detail struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&detail); err == nil {
			apiErr.Detail = detail.Detail
		}
		telemetry.RecordError(span, apiErr)
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		telemetry.SetSpanSuccess(span)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	telemetry.SetSpanSuccess(span)
	return nil
}
