package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"statapi/src/infra/config"
	"statapi/src/infra/db"
	"statapi/src/infra/logger"
	"statapi/src/infra/metrics"
	"statapi/src/infra/repo"
)

const (
	listLeagues     = "SELECT league_id, name, country, external_id FROM leagues ORDER BY league_id"
	unlinkedLeagues = "SELECT league_id, name, country, external_id FROM leagues WHERE external_id IS NULL ORDER BY league_id"
)

var leagueCols = []string{"league_id", "name", "country", "external_id"}

type testServer struct {
	srv   *Server
	reg   *db.Registry
	mocks map[string]sqlmock.Sqlmock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	names := []string{"basket", "soccer"}
	dbs := make(config.Databases, len(names))
	sqlDBs := make(map[string]*sql.DB, len(names))
	mocks := make(map[string]sqlmock.Sqlmock, len(names))
	for _, name := range names {
		sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
		require.NoError(t, err)
		t.Cleanup(func() { _ = sqlDB.Close() })
		dbs[name] = config.DatabaseParams{DBName: name}
		sqlDBs[name] = sqlDB
		mocks[name] = mock
	}

	open := func(_ context.Context, p config.DatabaseParams) (*sql.DB, func(), error) {
		return sqlDBs[p.DBName], func() {}, nil
	}

	cfg := &config.Config{
		Server:   config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Database: config.DatabaseConfig{Databases: dbs, Default: "soccer"},
		Log:      config.LogConfig{Level: "info", Format: "plain", ServiceName: "statapi"},
	}

	log := logger.NewNope()
	reg := db.NewRegistry(dbs, log, db.WithOpener(open))
	t.Cleanup(reg.Close)

	srv := New(cfg, log, reg, metrics.New(reg), repo.NewLeagueRepository(log))
	return &testServer{srv: srv, reg: reg, mocks: mocks}
}

func (ts *testServer) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestIndex(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/", "/index"} {
		w := ts.get(path)
		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"data":"Welcome to statapi"}`, w.Body.String())
	}
}

func TestNotFound(t *testing.T) {
	ts := newTestServer(t)

	w := ts.get("/cricket/leagues")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), `"code":"NOT_FOUND"`)
}

func TestLeaguesUseRouteDatabase(t *testing.T) {
	ts := newTestServer(t)
	ts.mocks["basket"].ExpectQuery(listLeagues).WillReturnRows(sqlmock.NewRows(leagueCols).
		AddRow(int64(1), "NBA", "USA", int64(900)))

	w := ts.get("/basket/leagues")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"data":[{"league_id":1,"name":"NBA","country":"USA","external_id":900}]}`, w.Body.String())

	require.NoError(t, ts.mocks["basket"].ExpectationsWereMet())
	require.NoError(t, ts.mocks["soccer"].ExpectationsWereMet())
	require.Zero(t, ts.reg.Stats()["basket"].InUse)
	require.NotContains(t, ts.reg.Stats(), "soccer", "untouched databases get no pool")
}

func TestUnlinkedLeaguesUseDefaultDatabase(t *testing.T) {
	ts := newTestServer(t)
	ts.mocks["soccer"].ExpectQuery(unlinkedLeagues).WillReturnRows(sqlmock.NewRows(leagueCols).
		AddRow(int64(4), "Premier League", "England", nil))

	w := ts.get("/api/get_leagues_api_new/")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"data":[{"league_id":4,"name":"Premier League","country":"England","external_id":null}]}`, w.Body.String())
	require.NoError(t, ts.mocks["soccer"].ExpectationsWereMet())
	require.Zero(t, ts.reg.Stats()["soccer"].InUse)
}

func TestLeagueNotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.mocks["basket"].ExpectQuery("SELECT league_id, name, country, external_id FROM leagues WHERE league_id = $1").
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows(leagueCols))

	w := ts.get("/basket/leagues/99")
	require.Equal(t, http.StatusNotFound, w.Code)

	w = ts.get("/basket/leagues/abc")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLinkLeagueValidation(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPut, "/basket/leagues/2/external_id", strings.NewReader(`{"external_id":0}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), `"code":"VALIDATION_ERROR"`)
}

func TestQueryFailureIsGeneric(t *testing.T) {
	ts := newTestServer(t)
	ts.mocks["basket"].ExpectQuery(listLeagues).WillReturnError(errors.New("canceling statement due to statement timeout"))

	w := ts.get("/basket/leagues")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotContains(t, w.Body.String(), "statement")
	require.Zero(t, ts.reg.Stats()["basket"].InUse)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	w := ts.get("/health")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = ts.get("/health/detailed")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status     string                       `json:"status"`
		Components map[string]map[string]string `json:"components"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "ok", body.Status)
	require.Equal(t, "healthy", body.Components["database:basket"]["status"])
	require.Equal(t, "healthy", body.Components["database:soccer"]["status"])
}

func TestDetailedHealthBoundedByPingTimeout(t *testing.T) {
	// The server accepts connections but never answers.
	hang := func(ctx context.Context, _ config.DatabaseParams) (*sql.DB, func(), error) {
		<-ctx.Done()
		return nil, nil, ctx.Err()
	}

	dbs := config.Databases{"basket": {DBName: "basket"}}
	cfg := &config.Config{
		Server:   config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Database: config.DatabaseConfig{Databases: dbs, Default: "basket"},
		Log:      config.LogConfig{Level: "info", Format: "plain", ServiceName: "statapi"},
	}
	log := logger.NewNope()
	reg := db.NewRegistry(dbs, log, db.WithOpener(hang))
	t.Cleanup(reg.Close)
	srv := New(cfg, log, reg, metrics.New(reg), repo.NewLeagueRepository(log))

	start := time.Now()
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/detailed", nil))

	require.Less(t, time.Since(start), 4*time.Second)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Contains(t, w.Body.String(), `"database:basket":{"status":"unhealthy","message":"unreachable"}`)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.get("/health")

	w := ts.get("/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `statapi_http_requests_total{method="GET",path="/health",status="200"} 1`)
}
