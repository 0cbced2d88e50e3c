package feedsdk

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// State is the session lifecycle state.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateAuthenticated
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type refreshResult struct {
	token string
	err   error
}

// Session is an authenticated session with automatic token refresh.
//
// All fields behind mu form one invariant: state describes what token
// means. Exactly one goroutine performs a refresh at a time; the others
// queue as waiters and receive the outcome in arrival order.
type Session struct {
	client *Client

	mu        sync.Mutex
	state     State
	token     string
	principal Principal
	waiters   []chan refreshResult
}

// NewSession creates an unauthenticated session on the given client.
func NewSession(client *Client) *Session {
	return &Session{client: client}
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AccessToken returns the current access token, empty when not
// authenticated. Prefer Do, which handles refresh automatically.
func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Principal returns the identity established at login.
func (s *Session) Principal() Principal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.principal
}

// Login authenticates with email and password. On success the access
// token is held in memory and the refresh token lands in the client's
// cookie jar, set by the server as an HTTP-only cookie.
func (s *Session) Login(ctx context.Context, email, password string) error {
	s.mu.Lock()
	if s.state == StateAuthenticating || s.state == StateRefreshing {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("feedsdk: login not allowed while %s", state)
	}
	s.state = StateAuthenticating
	s.mu.Unlock()

	result, err := s.doLogin(ctx, email, password)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateUnauthenticated
		s.token = ""
		s.principal = Principal{}
		return err
	}

	s.state = StateAuthenticated
	s.token = result.AccessToken
	s.principal = result.Principal
	return nil
}

// Start resumes a previous session without credentials, the way a web
// client rehydrates on page load: one refresh call backed by whatever
// refresh cookie the client's jar holds. Success establishes an
// authenticated session; failure (no cookie, expired cookie) lands back
// in the unauthenticated state and the caller must Login.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateAuthenticated:
		s.mu.Unlock()
		return nil
	case StateAuthenticating, StateRefreshing:
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("feedsdk: start not allowed while %s", state)
	}
	s.state = StateAuthenticating
	s.mu.Unlock()

	token, err := s.doRefresh(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateUnauthenticated
		s.token = ""
		s.principal = Principal{}
		return fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}

	s.state = StateAuthenticated
	s.token = token
	s.principal = Principal{ID: tokenSubject(token)}
	return nil
}

func (s *Session) doLogin(ctx context.Context, email, password string) (*loginResponse, error) {
	body := mustJSON(loginRequest{Email: email, Password: password})

	resp, err := s.client.do(ctx, http.MethodPost, "/auth/login", body, "")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp)
	}

	var out loginResponse
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout ends the session. The server clears the refresh cookie; locally
// the token and principal are dropped regardless of the call's outcome.
func (s *Session) Logout(ctx context.Context) error {
	resp, err := s.client.do(ctx, http.MethodPost, "/auth/logout", nil, "")

	s.mu.Lock()
	s.state = StateUnauthenticated
	s.token = ""
	s.principal = Principal{}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return parseAPIError(resp)
	}
	return nil
}

// Do performs an authenticated request. body may be nil; it is a byte
// slice rather than a reader so the request can be replayed after a
// refresh. Any 401 triggers one refresh-and-retry cycle: the server may
// report an expired token, or a token invalidated by a key change, and
// either way a fresh token is the only possible remedy. A second 401
// means the refreshed token was not accepted either, which surfaces as
// ErrSessionExpired.
func (s *Session) Do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	token, err := s.currentToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.do(ctx, method, path, body, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	parseAPIError(resp) // drain and close the rejected response

	token, err = s.refreshedToken(ctx, token)
	if err != nil {
		return nil, err
	}

	resp, err = s.client.do(ctx, method, path, body, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		apiErr := parseAPIError(resp)
		return nil, fmt.Errorf("%w (retry rejected: %s)", ErrSessionExpired, apiErr.Code)
	}
	return resp, nil
}

// DoJSON performs an authenticated request with JSON in and out. in and
// out may each be nil. Non-2xx responses return *APIError.
func (s *Session) DoJSON(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		body = mustJSON(in)
	}

	resp, err := s.Do(ctx, method, path, body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp)
	}

	if out == nil {
		resp.Body.Close()
		return nil
	}
	return decodeJSON(resp, out)
}

// currentToken returns a token to attempt a request with. If a refresh is
// already in flight it waits for that refresh instead of using the stale
// token.
func (s *Session) currentToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	switch s.state {
	case StateAuthenticated:
		token := s.token
		s.mu.Unlock()
		return token, nil
	case StateRefreshing:
		return s.waitLocked(ctx)
	default:
		s.mu.Unlock()
		return "", ErrNotAuthenticated
	}
}

// refreshedToken returns a token newer than stale, refreshing if nobody
// else already has. The check-then-set on state is done under the mutex
// so exactly one caller becomes the refresher.
func (s *Session) refreshedToken(ctx context.Context, stale string) (string, error) {
	s.mu.Lock()
	switch {
	case s.state == StateAuthenticated && s.token != stale:
		// Another request already completed a refresh.
		token := s.token
		s.mu.Unlock()
		return token, nil
	case s.state == StateRefreshing:
		return s.waitLocked(ctx)
	case s.state != StateAuthenticated:
		s.mu.Unlock()
		return "", ErrNotAuthenticated
	}
	s.state = StateRefreshing
	s.mu.Unlock()

	token, err := s.doRefresh(ctx)

	s.mu.Lock()
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrSessionExpired, err)
		s.state = StateUnauthenticated
		s.token = ""
		s.principal = Principal{}
	} else {
		s.state = StateAuthenticated
		s.token = token
	}
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()

	// Deliver to waiters in arrival order. Channels are buffered, so a
	// waiter that gave up on its context does not block the rest.
	for _, w := range waiters {
		w <- refreshResult{token: token, err: err}
	}

	return token, err
}

// waitLocked queues the caller behind the in-flight refresh and releases
// the mutex. Called with s.mu held.
func (s *Session) waitLocked(ctx context.Context) (string, error) {
	w := make(chan refreshResult, 1)
	s.waiters = append(s.waiters, w)
	s.mu.Unlock()

	select {
	case res := <-w:
		return res.token, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// doRefresh calls the refresh endpoint. The refresh token travels in the
// cookie jar, no Authorization header is sent, and the call never recurses
// into Do: the refresh endpoint is exempt from the refresh-and-retry
// cycle. The call is bounded by the client's refresh timeout and detached
// from the initiating request's cancellation, since queued waiters depend
// on its outcome.
func (s *Session) doRefresh(ctx context.Context) (string, error) {
	timeout := s.client.RefreshTimeout
	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	resp, err := s.client.do(ctx, http.MethodPost, "/auth/refresh", nil, "")
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", parseAPIError(resp)
	}

	var out refreshResponse
	if err := decodeJSON(resp, &out); err != nil {
		return "", err
	}
	if out.NewAccessToken == "" {
		return "", fmt.Errorf("refresh response missing access token")
	}
	return out.NewAccessToken, nil
}

// tokenSubject extracts the sub claim from an access token without
// verifying it. The client holds no signing secret; the gateway verifies
// every token, this is only for displaying who is logged in.
func tokenSubject(raw string) string {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return ""
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return ""
	}
	var claims struct {
		Sub string `json:"sub"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return ""
	}
	return claims.Sub
}
