package logging

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/irrelevantclub/toolkit-backend/internal/models"
	"github.com/irrelevantclub/toolkit-backend/internal/store"
)

const (
	sinkBatchSize     = 50
	sinkFlushInterval = 5 * time.Second
)

// SinkHandler batches ERROR+ records into the store's system log.
type SinkHandler struct {
	core  *sinkCore
	attrs []slog.Attr
}

type sinkCore struct {
	sink     store.LogSink
	fallback *slog.Logger

	mu     sync.Mutex
	buffer []models.SystemLog

	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
	loopDone chan struct{}
}

// NewSinkHandler starts the flush loop. Flush errors go to fallback so they
// never loop back into the sink.
func NewSinkHandler(sink store.LogSink, fallback slog.Handler) *SinkHandler {
	c := &sinkCore{
		sink:     sink,
		fallback: slog.New(fallback),
		buffer:   make([]models.SystemLog, 0, sinkBatchSize),
		ticker:   time.NewTicker(sinkFlushInterval),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	go c.loop()
	return &SinkHandler{core: c}
}

func (c *sinkCore) loop() {
	defer close(c.loopDone)
	for {
		select {
		case <-c.ticker.C:
			c.flush()
		case <-c.done:
			c.flush()
			return
		}
	}
}

func (c *sinkCore) flush() {
	c.mu.Lock()
	if len(c.buffer) == 0 {
		c.mu.Unlock()
		return
	}
	batch := c.buffer
	c.buffer = make([]models.SystemLog, 0, sinkBatchSize)
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.sink.WriteLogs(ctx, batch); err != nil {
		c.fallback.Error("failed to flush system logs", "error", err, "count", len(batch))
	}
}

// Stop flushes what is buffered and ends the flush loop.
func (h *SinkHandler) Stop() {
	h.core.stopOnce.Do(func() {
		h.core.ticker.Stop()
		close(h.core.done)
	})
	<-h.core.loopDone
}

func (h *SinkHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelError
}

func (h *SinkHandler) Handle(_ context.Context, record slog.Record) error {
	entry := models.SystemLog{
		ID:        uuid.NewString(),
		Timestamp: record.Time.UTC(),
		Level:     record.Level.String(),
		Message:   record.Message,
	}

	extra := make(map[string]any)
	apply := func(a slog.Attr) {
		switch a.Key {
		case "request_id":
			entry.RequestID = a.Value.String()
		case "user_id":
			entry.UserID = a.Value.String()
		case "action":
			entry.Action = a.Value.String()
		case "error":
			entry.Error = a.Value.String()
		default:
			extra[a.Key] = plainValue(a.Value)
		}
	}
	for _, a := range h.attrs {
		apply(a)
	}
	record.Attrs(func(a slog.Attr) bool {
		apply(a)
		return true
	})
	if len(extra) > 0 {
		entry.Extra = extra
	}

	h.core.mu.Lock()
	h.core.buffer = append(h.core.buffer, entry)
	full := len(h.core.buffer) >= sinkBatchSize
	h.core.mu.Unlock()

	if full {
		go h.core.flush()
	}
	return nil
}

func (h *SinkHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &SinkHandler{core: h.core, attrs: merged}
}

// WithGroup is flattened; system log rows have no nesting.
func (h *SinkHandler) WithGroup(string) slog.Handler {
	return h
}

// plainValue keeps scalar kinds and stringifies the rest so entries encode
// cleanly as JSON or BSON.
func plainValue(v slog.Value) any {
	v = v.Resolve()
	if v.Kind() == slog.KindAny || v.Kind() == slog.KindGroup {
		return v.String()
	}
	return v.Any()
}
