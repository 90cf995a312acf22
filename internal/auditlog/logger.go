package auditlog

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// batchFlushThreshold triggers an immediate write once this many entries
// are queued.
const batchFlushThreshold = 100

// Logger writes entries asynchronously in batches. Entries are queued on a
// buffered channel and written when the batch fills up or on every flush
// interval.
type Logger struct {
	store  LogStore
	config Config
	buffer chan *LogEntry
	done   chan struct{}
	wg     sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// NewLogger starts the background flush loop.
func NewLogger(store LogStore, cfg Config) *Logger {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}

	l := &Logger{
		store:  store,
		config: cfg,
		buffer: make(chan *LogEntry, cfg.BufferSize),
		done:   make(chan struct{}),
	}
	l.wg.Add(1)
	go l.flushLoop()
	return l
}

// Write queues entry without blocking. When the queue is full the entry is
// dropped with a warning.
func (l *Logger) Write(entry *LogEntry) {
	if entry == nil {
		return
	}
	select {
	case l.buffer <- entry:
	default:
		slog.Warn("audit log buffer full, dropping entry",
			"request_id", entry.RequestID,
			"path", entry.Path,
		)
	}
}

// Config returns the logger configuration
func (l *Logger) Config() Config {
	return l.config
}

// Close drains the queue, flushes the store and closes it. Safe to call
// multiple times.
func (l *Logger) Close() error {
	l.closeOnce.Do(func() {
		close(l.done)
		l.wg.Wait()
		l.closeErr = l.store.Close()
	})
	return l.closeErr
}

func (l *Logger) flushLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.FlushInterval)
	defer ticker.Stop()

	batch := make([]*LogEntry, 0, batchFlushThreshold)
	flush := func() {
		if len(batch) > 0 {
			l.writeBatch(batch)
			batch = make([]*LogEntry, 0, batchFlushThreshold)
		}
	}

	for {
		select {
		case entry := <-l.buffer:
			batch = append(batch, entry)
			if len(batch) >= batchFlushThreshold {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-l.done:
		drain:
			for {
				select {
				case entry := <-l.buffer:
					batch = append(batch, entry)
				default:
					break drain
				}
			}
			flush()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := l.store.Flush(ctx); err != nil {
				slog.Error("failed to flush audit log store", "error", err)
			}
			cancel()
			return
		}
	}
}

func (l *Logger) writeBatch(batch []*LogEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := l.store.WriteBatch(ctx, batch); err != nil {
		slog.Error("failed to write audit log batch", "error", err, "count", len(batch))
	}
}

// NoopLogger discards entries. Used when auditing is disabled.
type NoopLogger struct{}

func (NoopLogger) Write(*LogEntry) {}
func (NoopLogger) Config() Config  { return Config{} }
func (NoopLogger) Close() error    { return nil }

// LoggerInterface is implemented by Logger and NoopLogger.
type LoggerInterface interface {
	Write(entry *LogEntry)
	Config() Config
	Close() error
}
