package logger

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"statapi/src/infra/config"
)

type seqRequest struct {
	apiKey      string
	contentType string
	events      []map[string]any
}

type fakeSeq struct {
	mu       sync.Mutex
	requests []seqRequest
	status   int
}

func (f *fakeSeq) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path != "/api/events/raw" || r.URL.RawQuery != "clef" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}

	req := seqRequest{
		apiKey:      r.Header.Get("X-Seq-ApiKey"),
		contentType: r.Header.Get("Content-Type"),
	}
	sc := bufio.NewScanner(r.Body)
	for sc.Scan() {
		var ev map[string]any
		if err := json.Unmarshal(sc.Bytes(), &ev); err == nil {
			req.events = append(req.events, ev)
		}
	}
	f.requests = append(f.requests, req)
	w.WriteHeader(http.StatusCreated)
}

func (f *fakeSeq) snapshot() []seqRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]seqRequest(nil), f.requests...)
}

func (f *fakeSeq) setStatus(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = code
}

func newTestSeq(t *testing.T, batchSize int, interval time.Duration) (*fakeSeq, *SeqHandler) {
	t.Helper()

	fake := &fakeSeq{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	h := NewSeqHandler(SeqOptions{
		ServerURL:     srv.URL + "/",
		APIKey:        "test-key",
		Level:         slog.LevelDebug,
		BatchSize:     batchSize,
		FlushInterval: interval,
		Properties:    map[string]any{PropAssemblyName: "statapi"},
		ErrorWriter:   io.Discard,
	})
	t.Cleanup(func() { _ = h.Close(context.Background()) })
	return fake, h
}

func TestSeqHandler_FlushesWhenBatchIsFull(t *testing.T) {
	t.Parallel()

	fake, h := newTestSeq(t, 2, time.Hour)
	log := slog.New(h)

	log.Info("first")
	log.Info("second")

	require.Eventually(t, func() bool { return len(fake.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)

	req := fake.snapshot()[0]
	require.Equal(t, "test-key", req.apiKey)
	require.Equal(t, "application/vnd.serilog.clef", req.contentType)
	require.Len(t, req.events, 2)
	require.Equal(t, "first", req.events[0]["@m"])
	require.Equal(t, "second", req.events[1]["@m"])
}

func TestSeqHandler_FlushesOnInterval(t *testing.T) {
	t.Parallel()

	fake, h := newTestSeq(t, 100, 20*time.Millisecond)
	slog.New(h).Warn("lonely event")

	require.Eventually(t, func() bool { return len(fake.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, "Warning", fake.snapshot()[0].events[0]["@l"])
}

func TestSeqHandler_EventProperties(t *testing.T) {
	t.Parallel()

	fake, h := newTestSeq(t, 100, time.Hour)
	log := slog.New(NewLogHandlerDecorator(h, RequestIDExtractor()))

	ctx := ContextWithRequestID(context.Background(), "req-42")
	log.With("component", "db", "@odd", "escaped").WithGroup("query").InfoContext(ctx, "request handled",
		"elapsed_time", 0.25,
		"error", errors.New("boom"),
	)
	require.NoError(t, h.Flush(context.Background()))

	reqs := fake.snapshot()
	require.Len(t, reqs, 1)
	ev := reqs[0].events[0]

	require.Equal(t, "request handled", ev["@m"])
	require.Equal(t, "Information", ev["@l"])
	require.NotEmpty(t, ev["@t"])
	require.Equal(t, "statapi", ev[PropAssemblyName])
	require.Equal(t, "req-42", ev[PropRequestID])
	require.Equal(t, "infra.logger.seq_test", ev[PropModule])
	require.Contains(t, ev[PropFunction], "TestSeqHandler_EventProperties")
	require.Greater(t, ev[PropLine], float64(0))
	require.Equal(t, "db", ev["component"])
	require.Equal(t, 0.25, ev["query.elapsed_time"])
	require.Equal(t, "escaped", ev["@@odd"])
	require.Equal(t, "boom", ev["query.error"])
}

func TestSeqHandler_StackBecomesException(t *testing.T) {
	t.Parallel()

	fake, h := newTestSeq(t, 100, time.Hour)
	slog.New(h).Error("panic recovered", "stack", "goroutine 1 [running]")
	require.NoError(t, h.Flush(context.Background()))

	ev := fake.snapshot()[0].events[0]
	require.Equal(t, "goroutine 1 [running]", ev["@x"])
	require.NotContains(t, ev, "stack")
	require.Equal(t, "Error", ev["@l"])
}

func TestSeqHandler_RetainsEventsWhileUnavailable(t *testing.T) {
	t.Parallel()

	fake, h := newTestSeq(t, 100, time.Hour)
	fake.setStatus(http.StatusServiceUnavailable)

	slog.New(h).Info("kept")
	require.Error(t, h.Flush(context.Background()))
	require.Empty(t, fake.snapshot())

	fake.setStatus(0)
	require.NoError(t, h.Flush(context.Background()))
	reqs := fake.snapshot()
	require.Len(t, reqs, 1)
	require.Equal(t, "kept", reqs[0].events[0]["@m"])
}

func TestSeqHandler_CloseDeliversPending(t *testing.T) {
	t.Parallel()

	fake, h := newTestSeq(t, 100, time.Hour)
	slog.New(h).Info("last words")

	require.NoError(t, h.Close(context.Background()))
	require.Len(t, fake.snapshot(), 1)
	require.NoError(t, h.Close(context.Background()), "close is idempotent")
}

func TestSeqHandler_LevelFilter(t *testing.T) {
	t.Parallel()

	h := NewSeqHandler(SeqOptions{ServerURL: "http://127.0.0.1:1", Level: slog.LevelWarn, ErrorWriter: io.Discard})
	t.Cleanup(func() { _ = h.Close(context.Background()) })

	require.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	require.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestSeqLevel(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Verbose", seqLevel(slog.LevelDebug-4))
	require.Equal(t, "Debug", seqLevel(slog.LevelDebug))
	require.Equal(t, "Information", seqLevel(slog.LevelInfo))
	require.Equal(t, "Warning", seqLevel(slog.LevelWarn))
	require.Equal(t, "Error", seqLevel(slog.LevelError))
	require.Equal(t, "Fatal", seqLevel(slog.LevelError+4))
}

func TestPlainHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(NewLogHandlerDecorator(
		newConsoleHandler(config.LogConfig{Level: "debug", Format: "plain"}, &buf),
		RequestIDExtractor(),
	))

	log.With("database", "basket").InfoContext(ContextWithRequestID(context.Background(), "abc"), "connection acquired")

	line := buf.String()
	require.Contains(t, line, "| INFO | abc | connection acquired | database=basket")
}

func TestCallerHelpers(t *testing.T) {
	t.Parallel()

	require.Equal(t, "infra.db.scope", moduleName("/root/module/src/infra/db/scope.go"))
	require.Equal(t, "main", moduleName("main.go"))
	require.Equal(t, "(*Scope).Conn", shortFunction("statapi/src/infra/db.(*Scope).Conn"))
	require.Equal(t, "run", shortFunction("main.run"))
	require.Equal(t, Caller{}, CallerOf(0))
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	require.Equal(t, slog.LevelDebug, ParseLevel("verbose"))
	require.Equal(t, slog.LevelInfo, ParseLevel("Information"))
	require.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	require.Equal(t, slog.LevelError, ParseLevel("ERROR"))
	require.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}
