package httpx

import "context"

// Principal is the verified identity attached to a request after the auth
// guard has validated an access token. It lives only for the duration of
// one request and is never a default: absence means the request was not
// authenticated.
type Principal struct {
	SubjectID string
}

type principalKey struct{}

// WithPrincipal returns a context carrying the verified principal.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext retrieves the principal set by the auth guard.
// ok is false if the request never passed the guard.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
