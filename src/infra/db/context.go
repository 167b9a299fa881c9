package db

import (
	"context"
	"strings"
)

type scopeKey struct{}

// WithScope returns a copy of ctx carrying s.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFrom returns the scope attached to ctx by the connection middleware.
func ScopeFrom(ctx context.Context) (*Scope, error) {
	if s, ok := ctx.Value(scopeKey{}).(*Scope); ok && s != nil {
		return s, nil
	}
	return nil, ErrNoScope
}

// NameFromRoute returns the first segment of a route template, which names
// the database for per-database routes: "/basket/leagues/:id" -> "basket".
func NameFromRoute(fullPath string) string {
	p := strings.TrimPrefix(fullPath, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[:i]
	}
	if strings.HasPrefix(p, ":") || strings.HasPrefix(p, "*") {
		return ""
	}
	return p
}
