package repo

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"statapi/src/core/domain"
	"statapi/src/infra/config"
	"statapi/src/infra/db"
	"statapi/src/infra/logger"
)

const (
	listQuery     = "SELECT league_id, name, country, external_id FROM leagues ORDER BY league_id"
	unlinkedQuery = "SELECT league_id, name, country, external_id FROM leagues WHERE external_id IS NULL ORDER BY league_id"
	getQuery      = "SELECT league_id, name, country, external_id FROM leagues WHERE league_id = $1"
	existsQuery   = "SELECT league_id FROM leagues WHERE league_id = $1"
	clearQuery    = "UPDATE leagues SET external_id = NULL WHERE external_id = $1 AND league_id <> $2"
	setQuery      = "UPDATE leagues SET external_id = $1 WHERE league_id = $2"
)

var leagueCols = []string{"league_id", "name", "country", "external_id"}

// newScopedContext returns a context carrying a scope whose "basket"
// database is backed by sqlmock.
func newScopedContext(t *testing.T) (context.Context, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	open := func(context.Context, config.DatabaseParams) (*sql.DB, func(), error) {
		return sqlDB, func() { _ = sqlDB.Close() }, nil
	}
	reg := db.NewRegistry(config.Databases{"basket": {DBName: "basket"}}, logger.NewNope(), db.WithOpener(open))
	t.Cleanup(reg.Close)

	scope := reg.NewScope("basket")
	t.Cleanup(func() {
		require.NoError(t, scope.Close(context.Background()))
		require.NoError(t, mock.ExpectationsWereMet())
	})
	return db.WithScope(context.Background(), scope), mock
}

func TestLeagueRepository_List(t *testing.T) {
	t.Parallel()

	ctx, mock := newScopedContext(t)
	mock.ExpectQuery(listQuery).WillReturnRows(sqlmock.NewRows(leagueCols).
		AddRow(int64(1), "NBA", "USA", int64(900)).
		AddRow(int64(2), []byte("ACB"), "Spain", nil))

	leagues, err := NewLeagueRepository(logger.NewNope()).List(ctx, "")
	require.NoError(t, err)
	require.Len(t, leagues, 2)
	require.Equal(t, "NBA", leagues[0].Name)
	require.Equal(t, int64(900), *leagues[0].ExternalID)
	require.Equal(t, "ACB", leagues[1].Name)
	require.False(t, leagues[1].HasExternalID())
}

func TestLeagueRepository_ListWithoutExternalID(t *testing.T) {
	t.Parallel()

	ctx, mock := newScopedContext(t)
	mock.ExpectQuery(unlinkedQuery).WillReturnRows(sqlmock.NewRows(leagueCols).
		AddRow(int64(2), "ACB", "Spain", nil))

	leagues, err := NewLeagueRepository(logger.NewNope()).ListWithoutExternalID(ctx, "basket")
	require.NoError(t, err)
	require.Equal(t, []domain.League{{ID: 2, Name: "ACB", Country: "Spain"}}, leagues)
}

func TestLeagueRepository_GetNotFound(t *testing.T) {
	t.Parallel()

	ctx, mock := newScopedContext(t)
	mock.ExpectQuery(getQuery).WithArgs(7).WillReturnRows(sqlmock.NewRows(leagueCols))

	_, err := NewLeagueRepository(logger.NewNope()).Get(ctx, "", 7)
	require.True(t, domain.IsNotFound(err))
	require.ErrorIs(t, err, db.ErrNoRecord)
}

func TestLeagueRepository_UnknownDatabase(t *testing.T) {
	t.Parallel()

	ctx, _ := newScopedContext(t)

	_, err := NewLeagueRepository(logger.NewNope()).List(ctx, "cricket")
	require.True(t, domain.IsNotFound(err))
	require.ErrorIs(t, err, db.ErrUnknownDatabase)
}

func TestLeagueRepository_QueryFailureIsNotMapped(t *testing.T) {
	t.Parallel()

	ctx, mock := newScopedContext(t)
	boom := errors.New("syntax error at or near FROM")
	mock.ExpectQuery(listQuery).WillReturnError(boom)

	_, err := NewLeagueRepository(logger.NewNope()).List(ctx, "")
	require.ErrorIs(t, err, db.ErrQueryExecution)
	require.ErrorIs(t, err, boom)
	require.False(t, domain.IsNotFound(err))
}

func TestLeagueRepository_NoScope(t *testing.T) {
	t.Parallel()

	_, err := NewLeagueRepository(logger.NewNope()).List(context.Background(), "basket")
	require.ErrorIs(t, err, db.ErrNoScope)
}

func TestLeagueRepository_SetExternalID(t *testing.T) {
	t.Parallel()

	ctx, mock := newScopedContext(t)
	mock.ExpectQuery(existsQuery).WithArgs(2).WillReturnRows(sqlmock.NewRows([]string{"league_id"}).AddRow(int64(2)))
	mock.ExpectBegin()
	mock.ExpectExec(clearQuery).WithArgs(77, 2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(setQuery).WithArgs(77, 2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewLeagueRepository(logger.NewNope()).SetExternalID(ctx, "", 2, 77))
}

func TestLeagueRepository_SetExternalIDConflict(t *testing.T) {
	t.Parallel()

	ctx, mock := newScopedContext(t)
	mock.ExpectQuery(existsQuery).WithArgs(2).WillReturnRows(sqlmock.NewRows([]string{"league_id"}).AddRow(int64(2)))
	mock.ExpectBegin()
	mock.ExpectExec(clearQuery).WithArgs(77, 2).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(setQuery).WithArgs(77, 2).WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	err := NewLeagueRepository(logger.NewNope()).SetExternalID(ctx, "", 2, 77)
	require.True(t, domain.IsConflict(err))
	require.ErrorIs(t, err, db.ErrTransaction)
}

func TestLeagueRepository_SetExternalIDMissingLeague(t *testing.T) {
	t.Parallel()

	ctx, mock := newScopedContext(t)
	mock.ExpectQuery(existsQuery).WithArgs(5).WillReturnRows(sqlmock.NewRows([]string{"league_id"}))

	err := NewLeagueRepository(logger.NewNope()).SetExternalID(ctx, "", 5, 77)
	require.True(t, domain.IsNotFound(err))
}
