package proxy

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/ripple-social/ripple/pkg/httpx"
	"github.com/ripple-social/ripple/pkg/jwtx"
	"github.com/ripple-social/ripple/pkg/slogx"
)

// Headers owned by the gateway. Inbound copies are always stripped so a
// client cannot impersonate another user by setting them directly; the
// gateway re-adds them only after verifying the access token.
const (
	UserIDHeader    = "X-User-Id"
	AssertionHeader = "X-Gateway-Assertion"
)

// Error codes returned when an upstream cannot serve the request.
const (
	ErrCodeUpstreamUnreachable = "upstream_unreachable"
	ErrCodeUpstreamTimeout     = "upstream_timeout"
	ErrCodeNoRoute             = "no_route"
)

// AssertionTTL bounds the validity of the signed gateway assertion. It only
// needs to survive one upstream hop.
const AssertionTTL = 30 * time.Second

// Options configures a gateway Handler.
type Options struct {
	// AccessVerifier validates bearer tokens on routes marked RequiresAuth.
	AccessVerifier *jwtx.Verifier

	// AssertionSigner, when set, stamps a short-lived signed assertion
	// alongside the plain identity header so upstreams can prove the
	// request passed through the gateway. Optional.
	AssertionSigner *jwtx.Signer

	// Transport overrides the outbound round tripper. Nil means
	// http.DefaultTransport.
	Transport http.RoundTripper

	Now func() time.Time
}

// Handler matches requests against the route table and forwards them to the
// owning upstream, running the auth guard first on protected routes.
type Handler struct {
	table    *Table
	handlers map[string]http.Handler
	now      func() time.Time
}

func NewHandler(routes []Route, opts Options) *Handler {
	h := &Handler{
		table:    NewTable(routes),
		handlers: make(map[string]http.Handler, len(routes)),
		now:      opts.Now,
	}
	if h.now == nil {
		h.now = time.Now
	}

	guard := httpx.AuthGuard(opts.AccessVerifier)

	for _, route := range h.table.Routes() {
		var handler http.Handler = h.newProxy(route, opts)
		if route.RequiresAuth {
			handler = guard(handler)
		}
		h.handlers[route.PathPrefix] = handler
	}

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route, ok := h.table.Match(r.URL.Path)
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, ErrCodeNoRoute, "no route for path")
		return
	}
	h.handlers[route.PathPrefix].ServeHTTP(w, r)
}

func (h *Handler) newProxy(route Route, opts Options) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Transport: opts.Transport,
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(route.Upstream)
			pr.SetXForwarded()
			pr.Out.Host = route.Upstream.Host

			// Never trust identity headers from the outside world.
			pr.Out.Header.Del(UserIDHeader)
			pr.Out.Header.Del(AssertionHeader)

			if !route.RequiresAuth {
				return
			}

			principal, ok := httpx.PrincipalFromContext(pr.In.Context())
			if !ok {
				// Guard runs before the proxy on protected routes, so
				// this only happens on a wiring mistake. Forward without
				// identity rather than invent one.
				return
			}

			pr.Out.Header.Set(UserIDHeader, principal.SubjectID)
			if opts.AssertionSigner != nil {
				assertion, err := opts.AssertionSigner.Sign(principal.SubjectID, h.now())
				if err == nil {
					pr.Out.Header.Set(AssertionHeader, assertion)
				}
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log := slogx.FromContext(r.Context())
			log.Error("upstream request failed",
				slog.String("upstream", route.Upstream.String()),
				slog.String("path", r.URL.Path),
				"err", err,
			)

			if isTimeout(err) {
				httpx.WriteError(w, http.StatusGatewayTimeout, ErrCodeUpstreamTimeout, "upstream timed out")
				return
			}
			httpx.WriteError(w, http.StatusBadGateway, ErrCodeUpstreamUnreachable, "upstream unreachable")
		},
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
