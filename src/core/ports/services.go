package ports

import (
	"context"
)

// DatabasePinger checks reachability of the configured databases.
type DatabasePinger interface {
	Names() []string
	Ping(ctx context.Context, name string) error
}
