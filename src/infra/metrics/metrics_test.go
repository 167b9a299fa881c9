package metrics

import (
	"database/sql"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type fakePools map[string]sql.DBStats

func (f fakePools) Stats() map[string]sql.DBStats { return f }

func TestRequestMetrics(t *testing.T) {
	t.Parallel()

	m := New(nil)

	done := m.RequestStarted("get")
	require.Equal(t, float64(1), testutil.ToFloat64(m.httpInFlight))

	done("/basket/leagues", http.StatusOK)
	require.Equal(t, float64(0), testutil.ToFloat64(m.httpInFlight))
	require.Equal(t, float64(1), testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/basket/leagues", "200")))

	m.RequestStarted("GET")("", http.StatusNotFound)
	require.Equal(t, float64(1), testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "unmatched", "404")))
}

func TestPoolCollector(t *testing.T) {
	t.Parallel()

	pools := fakePools{
		"basket": {MaxOpenConnections: 10, OpenConnections: 3, InUse: 2, Idle: 1, WaitCount: 5},
	}
	c := newPoolCollector(pools)

	expected := `
# HELP statapi_db_pool_in_use_connections Connections currently checked out.
# TYPE statapi_db_pool_in_use_connections gauge
statapi_db_pool_in_use_connections{database="basket"} 2
# HELP statapi_db_pool_wait_count_total Checkouts that had to wait for a free connection.
# TYPE statapi_db_pool_wait_count_total counter
statapi_db_pool_wait_count_total{database="basket"} 5
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"statapi_db_pool_in_use_connections",
		"statapi_db_pool_wait_count_total",
	))
}

func TestHandler(t *testing.T) {
	t.Parallel()

	m := New(fakePools{"soccer": {InUse: 1}})
	m.RequestStarted("GET")("/health", http.StatusOK)

	srv := httptest.NewServer(m.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `statapi_http_requests_total{method="GET",path="/health",status="200"} 1`)
	require.Contains(t, string(body), `statapi_db_pool_in_use_connections{database="soccer"} 1`)
	require.Contains(t, string(body), "go_goroutines")
}
