package usecase

import (
	"context"
	"log/slog"

	"statapi/src/core/domain"
	"statapi/src/core/ports"
)

// LeagueService handles league queries.
type LeagueService struct {
	repo      ports.LeagueRepository
	defaultDB string
	log       *slog.Logger
}

// NewLeagueService creates a LeagueService. defaultDB serves the routes that
// are not bound to a sport prefix.
func NewLeagueService(repo ports.LeagueRepository, defaultDB string, log *slog.Logger) *LeagueService {
	return &LeagueService{repo: repo, defaultDB: defaultDB, log: log}
}

// List returns every league of the route's database.
func (s *LeagueService) List(ctx context.Context) ([]domain.League, error) {
	return s.repo.List(ctx, "")
}

// Get returns one league of the route's database.
func (s *LeagueService) Get(ctx context.Context, id int64) (*domain.League, error) {
	if id <= 0 {
		return nil, domain.NewValidationError("league_id", "must be a positive integer")
	}
	return s.repo.Get(ctx, "", id)
}

// Unlinked returns the leagues of the default database that have no
// statistics provider id yet.
func (s *LeagueService) Unlinked(ctx context.Context) ([]domain.League, error) {
	if s.defaultDB == "" {
		return nil, domain.NewUnavailableError("no default database configured")
	}
	return s.repo.ListWithoutExternalID(ctx, s.defaultDB)
}

// Link sets the statistics provider id of a league in the route's database.
func (s *LeagueService) Link(ctx context.Context, id, externalID int64) (*domain.League, error) {
	if id <= 0 {
		return nil, domain.NewValidationError("league_id", "must be a positive integer")
	}
	if externalID <= 0 {
		return nil, domain.NewValidationError("external_id", "must be a positive integer")
	}

	if err := s.repo.SetExternalID(ctx, "", id, externalID); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "league linked", "league_id", id, "external_id", externalID)

	return s.repo.Get(ctx, "", id)
}
