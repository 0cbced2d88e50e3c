// Package proxy implements the gateway's forwarding layer: a static route
// table matched by longest prefix, and a reverse proxy per route that
// injects the verified identity toward upstream services.
package proxy

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Route maps a URL path prefix to an upstream service. The table is
// immutable once the gateway is running.
type Route struct {
	PathPrefix   string
	Upstream     *url.URL
	RequiresAuth bool
}

// Table is an ordered set of routes matched by longest prefix.
type Table struct {
	routes []Route
}

func NewTable(routes []Route) *Table {
	sorted := make([]Route, len(routes))
	copy(sorted, routes)

	// Longest prefix first so Match can take the first hit.
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].PathPrefix) > len(sorted[j].PathPrefix)
	})

	return &Table{routes: sorted}
}

// Match returns the route with the longest prefix matching path. Prefixes
// match on segment boundaries: "/api/v1/auth" matches "/api/v1/auth" and
// "/api/v1/auth/login" but not "/api/v1/authx".
func (t *Table) Match(path string) (Route, bool) {
	for _, route := range t.routes {
		if path == route.PathPrefix || strings.HasPrefix(path, route.PathPrefix+"/") {
			return route, true
		}
	}
	return Route{}, false
}

// Routes returns the table contents in match order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// ParseRoutes parses a route table from its configuration form:
//
//	/api/v1/auth=http://auth:8081;/api/v1/users=http://users:8082,auth
//
// Entries are separated by ";". Each entry is prefix=upstreamURL with an
// optional ",auth" marker for routes that require authentication.
func ParseRoutes(spec string) ([]Route, error) {
	var routes []Route

	for _, entry := range strings.Split(spec, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		prefix, rest, found := strings.Cut(entry, "=")
		if !found {
			return nil, fmt.Errorf("proxy: route entry %q missing '='", entry)
		}

		prefix = strings.TrimSpace(prefix)
		if !strings.HasPrefix(prefix, "/") {
			return nil, fmt.Errorf("proxy: route prefix %q must start with '/'", prefix)
		}
		prefix = strings.TrimSuffix(prefix, "/")

		target := strings.TrimSpace(rest)
		requiresAuth := false
		if raw, flag, hasFlag := strings.Cut(target, ","); hasFlag {
			target = strings.TrimSpace(raw)
			switch strings.TrimSpace(flag) {
			case "auth":
				requiresAuth = true
			case "public", "":
			default:
				return nil, fmt.Errorf("proxy: unknown route flag %q in %q", flag, entry)
			}
		}

		upstream, err := url.Parse(target)
		if err != nil || upstream.Scheme == "" || upstream.Host == "" {
			return nil, fmt.Errorf("proxy: invalid upstream URL %q", target)
		}

		routes = append(routes, Route{
			PathPrefix:   prefix,
			Upstream:     upstream,
			RequiresAuth: requiresAuth,
		})
	}

	if len(routes) == 0 {
		return nil, fmt.Errorf("proxy: no routes configured")
	}

	return routes, nil
}
