// Package client is the API consumer's side of the token lifecycle: it caches
// the access token, injects it into every request, and on a 401 performs
// exactly one refresh-and-retry before giving up.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"

	pkglog "github.com/iolowookere217/xdulist/pkg/log"
)

// ErrSessionExpired means the server explicitly rejected the refresh token.
// This is the only condition that clears cached credentials; transient
// failures never log the user out.
var ErrSessionExpired = errors.New("session expired, please log in again")

// ErrTransient wraps network errors and server-side 5xx during refresh. The
// caller may retry; credentials stay intact.
var ErrTransient = errors.New("transient refresh failure")

const refreshFailureLogThreshold = 3

type Client struct {
	baseURL string
	http    *http.Client
	logger  pkglog.Logger

	mu                  sync.Mutex
	accessToken         string
	refreshFailureCount int
}

// New builds a client with its own cookie jar; the refresh cookie never
// leaves the jar and the access token never enters it.
func New(baseURL string, logger pkglog.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Jar: jar},
		logger:  logger,
	}, nil
}

func (c *Client) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = token
}

// Login establishes a session: the access token is cached on the client and
// the refresh cookie lands in the jar.
func (c *Client) Login(ctx context.Context, email, password string) error {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed: %d", resp.StatusCode)
	}
	var out struct {
		Data struct {
			AccessToken string `json:"accessToken"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}
	c.SetAccessToken(out.Data.AccessToken)
	return nil
}

// Do sends the request with the cached bearer token. On a 401 it refreshes
// once and retries once; a second 401 comes back to the caller as-is.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	// A request whose body cannot be replayed cannot be retried.
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if err := c.Refresh(req.Context()); err != nil {
		return nil, err
	}
	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}
	return c.send(retry)
}

// Refresh exchanges the refresh cookie for a new access token. The expired
// access token is deliberately not attached.
func (c *Client) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/refresh", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return c.transientFailure(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var out struct {
			Data struct {
				AccessToken string `json:"accessToken"`
			} `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return err
		}
		c.mu.Lock()
		c.accessToken = out.Data.AccessToken
		c.refreshFailureCount = 0
		c.mu.Unlock()
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		// Explicit invalidity: the session is over.
		c.mu.Lock()
		c.accessToken = ""
		c.refreshFailureCount = 0
		c.mu.Unlock()
		return ErrSessionExpired
	case resp.StatusCode >= 500:
		return c.transientFailure(fmt.Errorf("refresh returned %d", resp.StatusCode))
	default:
		return c.transientFailure(fmt.Errorf("unexpected refresh status %d", resp.StatusCode))
	}
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	if token := c.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.http.Do(req)
}

// transientFailure keeps credentials and counts consecutive failures purely
// for a diagnostic log line at the threshold. Forcing logout on repeated
// transient failure is explicitly not done.
func (c *Client) transientFailure(cause error) error {
	c.mu.Lock()
	c.refreshFailureCount++
	count := c.refreshFailureCount
	c.mu.Unlock()
	if count >= refreshFailureLogThreshold {
		c.logger.Warn().Int("consecutive_failures", count).Err(cause).Msg("token refresh keeps failing; check connectivity")
	}
	return fmt.Errorf("%w: %v", ErrTransient, cause)
}
