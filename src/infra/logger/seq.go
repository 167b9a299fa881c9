package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	seqIngestPath   = "/api/events/raw?clef"
	seqContentType  = "application/vnd.serilog.clef"
	seqAPIKeyHeader = "X-Seq-ApiKey"
	seqSendTimeout  = 10 * time.Second

	// Events kept in memory while Seq is unreachable, in batches.
	seqBufferedBatches = 20
)

// Property names attached to every event.
const (
	PropAssemblyName = "AssemblyName"
	PropRequestID    = "current_request_id"
	PropModule       = "module_name"
	PropFunction     = "func_name"
	PropLine         = "lineno"
)

// SeqOptions configures a SeqHandler.
type SeqOptions struct {
	ServerURL     string
	APIKey        string
	Level         slog.Leveler
	BatchSize     int
	FlushInterval time.Duration

	// Properties are attached to every event (e.g. AssemblyName).
	Properties map[string]any

	// Client defaults to an http.Client with a 10s timeout.
	Client *http.Client

	// ErrorWriter receives delivery failures. Defaults to os.Stderr.
	ErrorWriter io.Writer
}

// SeqHandler is a slog.Handler that ships records to Seq as CLEF events.
// Records are buffered and posted when BatchSize events are pending or every
// FlushInterval, whichever comes first. Close flushes what is left.
type SeqHandler struct {
	sink   *seqSink
	level  slog.Leveler
	props  map[string]any
	attrs  []slog.Attr
	prefix string
}

// NewSeqHandler starts the background flusher and returns the handler.
func NewSeqHandler(opts SeqOptions) *SeqHandler {
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 10 * time.Second
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: seqSendTimeout}
	}
	if opts.ErrorWriter == nil {
		opts.ErrorWriter = os.Stderr
	}

	props := make(map[string]any, len(opts.Properties))
	for k, v := range opts.Properties {
		props[k] = v
	}

	return &SeqHandler{
		sink:  newSeqSink(opts),
		level: opts.Level,
		props: props,
	}
}

func (h *SeqHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	return lvl >= h.level.Level()
}

func (h *SeqHandler) Handle(_ context.Context, r slog.Record) error {
	ev := make(map[string]any, len(h.props)+len(h.attrs)+r.NumAttrs()+8)
	ev["@t"] = r.Time.UTC().Format(time.RFC3339Nano)
	ev["@m"] = r.Message
	ev["@l"] = seqLevel(r.Level)

	for k, v := range h.props {
		ev[k] = v
	}

	if c := CallerOf(r.PC); c.Line > 0 {
		ev[PropModule] = c.Module
		ev[PropFunction] = c.Function
		ev[PropLine] = c.Line
	}

	for _, a := range h.attrs {
		addSeqAttr(ev, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addSeqAttr(ev, h.prefix, a)
		return true
	})

	if stack, ok := ev["stack"].(string); ok {
		ev["@x"] = stack
		delete(ev, "stack")
	}

	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("seq: encode event: %w", err)
	}
	h.sink.enqueue(line)
	return nil
}

func (h *SeqHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		next.attrs = append(next.attrs, a)
	}
	return &next
}

func (h *SeqHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

// Flush posts every pending event now.
func (h *SeqHandler) Flush(ctx context.Context) error {
	return h.sink.flush(ctx)
}

// Close stops the background flusher after a final flush.
func (h *SeqHandler) Close(ctx context.Context) error {
	return h.sink.close(ctx)
}

func seqLevel(l slog.Level) string {
	switch {
	case l < slog.LevelDebug:
		return "Verbose"
	case l < slog.LevelInfo:
		return "Debug"
	case l < slog.LevelWarn:
		return "Information"
	case l < slog.LevelError:
		return "Warning"
	case l == slog.LevelError:
		return "Error"
	default:
		return "Fatal"
	}
}

func addSeqAttr(ev map[string]any, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, g := range a.Value.Group() {
			addSeqAttr(ev, p, g)
		}
		return
	}

	key := prefix + a.Key
	switch {
	case a.Key == requestIDAttr:
		key = PropRequestID
	case strings.HasPrefix(key, "@"):
		// CLEF reserves the @ prefix; user properties escape it by doubling.
		key = "@" + key
	}
	ev[key] = seqValue(a.Value)
}

func seqValue(v slog.Value) any {
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339Nano)
	case slog.KindAny:
		switch x := v.Any().(type) {
		case error:
			return x.Error()
		case json.Marshaler:
			return x
		case fmt.Stringer:
			return x.String()
		default:
			if _, err := json.Marshal(x); err != nil {
				return fmt.Sprintf("%+v", x)
			}
			return x
		}
	default:
		return v.Any()
	}
}

// seqSink buffers encoded events and posts them in batches.
type seqSink struct {
	endpoint  string
	apiKey    string
	client    *http.Client
	errOut    io.Writer
	batchSize int
	maxBuffer int
	interval  time.Duration

	mu      sync.Mutex
	pending [][]byte
	sendMu  sync.Mutex

	kick      chan struct{}
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newSeqSink(opts SeqOptions) *seqSink {
	s := &seqSink{
		endpoint:  strings.TrimRight(opts.ServerURL, "/") + seqIngestPath,
		apiKey:    opts.APIKey,
		client:    opts.Client,
		errOut:    opts.ErrorWriter,
		batchSize: opts.BatchSize,
		maxBuffer: opts.BatchSize * seqBufferedBatches,
		interval:  opts.FlushInterval,
		kick:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go s.run()
	return s
}

// enqueue appends an event, evicting the oldest when the buffer is full.
func (s *seqSink) enqueue(line []byte) {
	s.mu.Lock()
	if len(s.pending) >= s.maxBuffer {
		s.pending = s.pending[1:]
	}
	s.pending = append(s.pending, line)
	n := len(s.pending)
	s.mu.Unlock()

	if n >= s.batchSize {
		select {
		case s.kick <- struct{}{}:
		default:
		}
	}
}

func (s *seqSink) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			_ = s.flush(context.Background())
			return
		case <-ticker.C:
			_ = s.flush(context.Background())
		case <-s.kick:
			_ = s.flush(context.Background())
		}
	}
}

// flush drains the buffer batch by batch. On a failed post the batch is put
// back at the front and the error returned; the next tick retries.
func (s *seqSink) flush(ctx context.Context) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	for {
		s.mu.Lock()
		n := min(len(s.pending), s.batchSize)
		batch := s.pending[:n:n]
		s.pending = s.pending[n:]
		s.mu.Unlock()

		if len(batch) == 0 {
			return nil
		}

		if err := s.post(ctx, batch); err != nil {
			s.requeue(batch)
			fmt.Fprintf(s.errOut, "seq: failed to deliver %d event(s): %v\n", len(batch), err)
			return err
		}
	}
}

func (s *seqSink) requeue(batch [][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := make([][]byte, 0, len(batch)+len(s.pending))
	merged = append(merged, batch...)
	merged = append(merged, s.pending...)
	if over := len(merged) - s.maxBuffer; over > 0 {
		merged = merged[over:]
	}
	s.pending = merged
}

func (s *seqSink) post(ctx context.Context, batch [][]byte) error {
	body := bytes.Join(batch, []byte("\n"))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", seqContentType)
	if s.apiKey != "" {
		req.Header.Set(seqAPIKeyHeader, s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}

func (s *seqSink) close(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.stop) })
	select {
	case <-s.done:
		s.mu.Lock()
		left := len(s.pending)
		s.mu.Unlock()
		if left > 0 {
			return fmt.Errorf("seq: %d event(s) not delivered", left)
		}
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("seq: close interrupted"), ctx.Err())
	}
}
