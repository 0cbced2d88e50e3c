// Package feedsdk is the Go client for the Ripple platform. It talks to
// the gateway, keeps the access token in memory and the refresh token in
// an HTTP-only cookie jar, and transparently refreshes the session when
// the access token expires.
//
// Basic usage:
//
//	client, err := feedsdk.NewClient("https://api.ripple.example")
//	if err != nil { ... }
//
//	session := feedsdk.NewSession(client)
//	if err := session.Login(ctx, "alice", "hunter2"); err != nil { ... }
//
//	resp, err := session.Do(ctx, http.MethodGet, "/api/v1/feed", nil)
//
// A client that still holds a refresh cookie from an earlier run can
// resume without credentials via session.Start(ctx).
//
// Session is safe for concurrent use. When many requests hit an expired
// access token at once, exactly one refresh call is made; the rest wait
// for its outcome. Any 401 on a non-refresh endpoint triggers the
// refresh cycle; a request that is still rejected after one
// refresh-and-retry cycle fails with ErrSessionExpired rather than
// retrying again.
package feedsdk
