// Package ports defines interfaces (ports) that connect core domain to infrastructure.
// These interfaces follow the ports and adapters (hexagonal) architecture pattern.
//
// Ports are defined here in the core layer, while implementations (adapters)
// live in src/infra/repo. This ensures the core has no dependency on infrastructure.
package ports

import (
	"context"

	"statapi/src/core/domain"
)

// LeagueRepository reads and links leagues. The database argument names the
// logical database; an empty name selects the database of the current route.
type LeagueRepository interface {
	List(ctx context.Context, database string) ([]domain.League, error)
	Get(ctx context.Context, database string, id int64) (*domain.League, error)
	ListWithoutExternalID(ctx context.Context, database string) ([]domain.League, error)
	SetExternalID(ctx context.Context, database string, id, externalID int64) error
}
