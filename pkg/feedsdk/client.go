package feedsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// DefaultRefreshTimeout bounds a single refresh call. A refresh that takes
// longer is treated as failed so waiting requests are not stuck behind it.
const DefaultRefreshTimeout = 10 * time.Second

// Client is a client for the Ripple platform. It carries the base URL and
// the HTTP client whose cookie jar holds the HTTP-only refresh cookie; the
// access token lives on the Session, never in the jar.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// RefreshTimeout bounds each refresh call independently of the
	// caller's context. Defaults to DefaultRefreshTimeout.
	RefreshTimeout time.Duration
}

// NewClient creates a platform client with a fresh cookie jar.
func NewClient(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("feedsdk: creating cookie jar: %w", err)
	}

	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
		RefreshTimeout: DefaultRefreshTimeout,
	}, nil
}

// Register creates a new account. Registration does not log in; call
// Session.Login afterwards.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Principal, error) {
	resp, err := c.do(ctx, http.MethodPost, "/auth/register", mustJSON(req), "")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, parseAPIError(resp)
	}

	var principal Principal
	if err := decodeJSON(resp, &principal); err != nil {
		return nil, err
	}
	return &principal, nil
}

func (c *Client) url(path string) string {
	return c.BaseURL + path
}

// do performs one HTTP request. body may be nil; token, when non-empty,
// is sent as a bearer Authorization header.
func (c *Client) do(ctx context.Context, method, path string, body []byte, token string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return nil, fmt.Errorf("feedsdk: creating request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feedsdk: request failed: %w", err)
	}
	return resp, nil
}

// decodeJSON decodes a successful response body into target and closes it.
func decodeJSON(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("feedsdk: decoding response: %w", err)
	}
	return nil
}

func mustJSON(v any) []byte {
	// Marshalling the SDK's own request types cannot fail.
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
