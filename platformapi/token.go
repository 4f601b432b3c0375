package platformapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrNotAuthenticated indicates the token source has no credentials to work with.
var ErrNotAuthenticated = errors.New("missing platform username/password")

// TokenSource obtains and caches a platform access token (SimpleJWT). It logs in with
// username/password against /api/token/ and refreshes the short-lived access token via
// /api/token/refresh/ until the refresh token itself is rejected, at which point it
// logs in again.
type TokenSource struct {
	BaseURL    string
	Username   string
	Password   string
	HTTPClient *http.Client

	mu           sync.RWMutex
	access       string
	refreshToken string
	expiresAt    time.Time
}

// Get returns a valid (fresh or cached) access token.
func (ts *TokenSource) Get(ctx context.Context) (string, error) {
	ts.mu.RLock()
	if ts.access != "" && time.Until(ts.expiresAt) > 30*time.Second { // expiry buffer
		tok := ts.access
		ts.mu.RUnlock()
		return tok, nil
	}
	ts.mu.RUnlock()
	return ts.renew(ctx)
}

func (ts *TokenSource) renew(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.access != "" && time.Until(ts.expiresAt) > 30*time.Second {
		return ts.access, nil
	}
	if ts.refreshToken != "" {
		if tok, err := ts.refresh(ctx); err == nil {
			return tok, nil
		} else {
			slog.Debug("platform token refresh failed, re-login", slog.Any("err", err))
			ts.refreshToken = ""
		}
	}
	return ts.login(ctx)
}

// login exchanges username/password for a fresh access/refresh token pair.
// Caller must hold ts.mu.
func (ts *TokenSource) login(ctx context.Context) (string, error) {
	if ts.Username == "" || ts.Password == "" {
		return "", ErrNotAuthenticated
	}
	body, _ := json.Marshal(map[string]string{
		"username": ts.Username,
		"password": ts.Password,
	})
	var out struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	if err := ts.post(ctx, "/api/token/", body, &out); err != nil {
		return "", fmt.Errorf("platform login: %w", err)
	}
	if out.Access == "" {
		return "", errors.New("empty access token in platform response")
	}
	ts.access = out.Access
	ts.refreshToken = out.Refresh
	ts.expiresAt = tokenExpiry(out.Access)
	return ts.access, nil
}

// refresh exchanges the cached refresh token for a new access token.
// Caller must hold ts.mu.
func (ts *TokenSource) refresh(ctx context.Context) (string, error) {
	body, _ := json.Marshal(map[string]string{"refresh": ts.refreshToken})
	var out struct {
		Access string `json:"access"`
	}
	if err := ts.post(ctx, "/api/token/refresh/", body, &out); err != nil {
		return "", err
	}
	if out.Access == "" {
		return "", errors.New("empty access token in refresh response")
	}
	ts.access = out.Access
	ts.expiresAt = tokenExpiry(out.Access)
	return ts.access, nil
}

func (ts *TokenSource) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(ts.BaseURL, "/")+path, strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	hc := ts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("token request failed: %s: %s", resp.Status, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// tokenExpiry extracts the exp claim from a JWT access token. The platform does not
// report a lifetime alongside the token, but the token itself carries one. Falls back
// to a conservative 60s lifetime when the claim cannot be read.
func tokenExpiry(token string) time.Time {
	parts := strings.Split(token, ".")
	if len(parts) == 3 {
		if payload, err := base64.RawURLEncoding.DecodeString(parts[1]); err == nil {
			var claims struct {
				Exp int64 `json:"exp"`
			}
			if err := json.Unmarshal(payload, &claims); err == nil && claims.Exp > 0 {
				return time.Unix(claims.Exp, 0)
			}
		}
	}
	return time.Now().Add(60 * time.Second)
}
