package feedsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Error codes the gateway and auth service emit. Any 401 drives the
// refresh cycle regardless of code; these are exposed so callers can
// match on APIError.Code.
const (
	ErrorCodeExpiredToken       = "expired_token"
	ErrorCodeInvalidToken       = "invalid_token"
	ErrorCodeNoToken            = "no_token"
	ErrorCodeInvalidCredentials = "invalid_credentials"
)

var (
	// ErrNotAuthenticated is returned by authenticated operations on a
	// session that has never logged in or has been logged out.
	ErrNotAuthenticated = errors.New("feedsdk: session not authenticated")

	// ErrSessionExpired is returned when the refresh token no longer
	// works, or when a request still fails with an expired token after a
	// successful refresh. The caller must log in again.
	ErrSessionExpired = errors.New("feedsdk: session expired, login required")
)

// APIError is a non-2xx response from the platform, carrying the wire
// error code and description.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// parseAPIError reads and closes the response body and returns a typed
// *APIError. Used only for responses already known to be failures.
func parseAPIError(resp *http.Response) *APIError {
	defer resp.Body.Close()

	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err == nil {
		_ = json.Unmarshal(body, apiErr)
	}
	if apiErr.Code == "" {
		apiErr.Code = "server_error"
		apiErr.Description = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	return apiErr
}
