package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"statapi/src/core/domain"
	"statapi/src/core/ports"
	"statapi/src/infra/db"
)

var _ ports.LeagueRepository = (*LeagueRepository)(nil)

// LeagueRepository reads leagues through the request's connection scope.
type LeagueRepository struct {
	log *slog.Logger
}

// NewLeagueRepository constructs a LeagueRepository.
func NewLeagueRepository(log *slog.Logger) *LeagueRepository {
	return &LeagueRepository{log: log}
}

const leagueColumns = `league_id, name, country, external_id`

func (r *LeagueRepository) List(ctx context.Context, database string) ([]domain.League, error) {
	const q = `
		SELECT ` + leagueColumns + `
		FROM leagues
		ORDER BY league_id
	`
	return r.selectLeagues(ctx, database, q)
}

func (r *LeagueRepository) ListWithoutExternalID(ctx context.Context, database string) ([]domain.League, error) {
	const q = `
		SELECT ` + leagueColumns + `
		FROM leagues
		WHERE external_id IS NULL
		ORDER BY league_id
	`
	return r.selectLeagues(ctx, database, q)
}

func (r *LeagueRepository) Get(ctx context.Context, database string, id int64) (*domain.League, error) {
	const q = `
		SELECT ` + leagueColumns + `
		FROM leagues
		WHERE league_id = $1
	`
	scope, err := db.ScopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := scope.SelectOne(ctx, database, q, id)
	if err != nil {
		return nil, mapError(err, "league")
	}
	l, err := leagueFromRecord(rec)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// SetExternalID moves externalID to the league, clearing it from any other
// league in the same transaction.
func (r *LeagueRepository) SetExternalID(ctx context.Context, database string, id, externalID int64) error {
	scope, err := db.ScopeFrom(ctx)
	if err != nil {
		return err
	}

	if _, err := scope.SelectOne(ctx, database, `SELECT league_id FROM leagues WHERE league_id = $1`, id); err != nil {
		return mapError(err, "league")
	}

	err = scope.ExecTx(ctx, database, []db.Statement{
		{
			Query: `
				UPDATE leagues
				SET external_id = NULL
				WHERE external_id = $1 AND league_id <> $2
			`,
			Args: []any{externalID, id},
		},
		{
			Query: `
				UPDATE leagues
				SET external_id = $1
				WHERE league_id = $2
			`,
			Args: []any{externalID, id},
		},
	})
	if err != nil {
		return mapError(err, "league")
	}

	r.log.DebugContext(ctx, "external id moved",
		"database", scope.Database(),
		"league_id", id,
		"external_id", externalID,
	)
	return nil
}

func (r *LeagueRepository) selectLeagues(ctx context.Context, database, q string) ([]domain.League, error) {
	scope, err := db.ScopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	recs, err := scope.SelectAll(ctx, database, q)
	if err != nil {
		return nil, mapError(err, "league")
	}

	leagues := make([]domain.League, 0, len(recs))
	for _, rec := range recs {
		l, err := leagueFromRecord(rec)
		if err != nil {
			return nil, err
		}
		leagues = append(leagues, l)
	}
	return leagues, nil
}

// mapError translates database failures into domain errors. Errors with no
// domain meaning are returned unchanged.
func mapError(err error, resource string) error {
	switch {
	case errors.Is(err, db.ErrNoRecord):
		return domain.NewNotFoundError(resource).WithCause(err)
	case errors.Is(err, db.ErrUnknownDatabase):
		return domain.NewNotFoundError("database").WithCause(err)
	case db.IsUniqueViolation(err):
		return domain.NewConflictError(resource + " already exists").WithCause(err)
	case db.IsUnavailable(err):
		return domain.NewUnavailableError("database").WithCause(err)
	default:
		return err
	}
}

func leagueFromRecord(rec db.Record) (domain.League, error) {
	id, err := toInt64(rec["league_id"])
	if err != nil {
		return domain.League{}, fmt.Errorf("league_id: %w", err)
	}
	l := domain.League{
		ID:      id,
		Name:    toString(rec["name"]),
		Country: toString(rec["country"]),
	}
	if v := rec["external_id"]; v != nil {
		ext, err := toInt64(v)
		if err != nil {
			return domain.League{}, fmt.Errorf("external_id: %w", err)
		}
		l.ExternalID = &ext
	}
	return l, nil
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case int:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case string:
		return strconv.ParseInt(x, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
