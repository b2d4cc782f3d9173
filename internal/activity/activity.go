// Package activity records tenant-scoped mutations into activity_logs.
package activity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/event-management/pkg/logger"
	"go.uber.org/zap"
)

// Action represents the type of change being recorded
type Action string

const (
	ActionCreate      Action = "create"
	ActionUpdate      Action = "update"
	ActionDelete      Action = "delete"
	ActionRestore     Action = "restore"
	ActionForceDelete Action = "force_delete"
)

// Entry represents a single activity log row
type Entry struct {
	ID             string    `json:"id"`
	UserID         *int64    `json:"user_id,omitempty"`
	OrganizationID int64     `json:"organization_id"`
	EventID        *int64    `json:"event_id,omitempty"`
	Action         Action    `json:"action"`
	Description    string    `json:"description"`
	RequestID      string    `json:"request_id,omitempty"`
	StatusCode     int       `json:"status_code"`
	CreatedAt      time.Time `json:"created_at"`
}

// Sink persists a batch of entries
type Sink interface {
	Write(ctx context.Context, entries []*Entry) error
}

// PostgresSink writes entries with a single pgx batch per flush
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink creates a new PostgresSink
func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

const insertEntry = `
	INSERT INTO activity_logs (
		id, user_id, organization_id, event_id, action,
		description, request_id, status_code, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
`

func entryArgs(e *Entry) []any {
	return []any{
		e.ID, e.UserID, e.OrganizationID, e.EventID, string(e.Action),
		e.Description, e.RequestID, e.StatusCode, e.CreatedAt,
	}
}

// Write inserts entries in one round trip. A pipelined batch runs as one
// implicit transaction, so if it fails the rows are retried one by one and
// only the rows that fail on their own are lost.
func (s *PostgresSink) Write(ctx context.Context, entries []*Entry) error {
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(insertEntry, entryArgs(e)...)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err == nil {
		return nil
	}

	var errs []error
	for _, e := range entries {
		if _, err := s.pool.Exec(ctx, insertEntry, entryArgs(e)...); err != nil {
			errs = append(errs, fmt.Errorf("insert activity %s: %w", e.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Config holds configuration for the activity logger
type Config struct {
	// Sink stores flushed batches; nil discards them
	Sink Sink
	// BufferSize is the size of the async buffer (default: 1000)
	BufferSize int
	// FlushInterval is how often to flush the buffer (default: 5 seconds)
	FlushInterval time.Duration
	// BatchSize is the maximum number of entries per flush (default: 100)
	BatchSize int
	Logger    *logger.Logger
}

// Logger buffers entries and writes them from a background worker so
// recording never slows down a request
type Logger struct {
	config    Config
	log       *logger.Logger
	buffer    chan *Entry
	wg        sync.WaitGroup
	closeOnce sync.Once
	dropped   atomic.Uint64

	// For testing: collect entries instead of writing to the sink
	testMode    bool
	testEntries []*Entry
	testMu      sync.Mutex
}

// NewLogger creates a new activity logger and starts its worker
func NewLogger(config Config) *Logger {
	if config.BufferSize <= 0 {
		config.BufferSize = 1000
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = 5 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	log := config.Logger
	if log == nil {
		log = logger.NewNop()
	}

	l := &Logger{
		config: config,
		log:    log.Named("activity"),
		buffer: make(chan *Entry, config.BufferSize),
	}

	l.wg.Add(1)
	go l.worker()

	return l
}

// Log queues an entry without blocking; entries are dropped when the buffer is full
func (l *Logger) Log(entry *Entry) {
	select {
	case l.buffer <- entry:
	default:
		l.dropped.Add(1)
	}
}

// Dropped returns how many entries were discarded because the buffer was full
func (l *Logger) Dropped() uint64 {
	return l.dropped.Load()
}

// Close flushes pending entries and stops the worker
func (l *Logger) Close() error {
	l.closeOnce.Do(func() {
		close(l.buffer)
		l.wg.Wait()
	})
	return nil
}

// SetTestMode enables test mode which collects entries instead of writing them
func (l *Logger) SetTestMode(enabled bool) {
	l.testMu.Lock()
	defer l.testMu.Unlock()
	l.testMode = enabled
	if enabled {
		l.testEntries = make([]*Entry, 0)
	}
}

// TestEntries returns collected test entries (only in test mode)
func (l *Logger) TestEntries() []*Entry {
	l.testMu.Lock()
	defer l.testMu.Unlock()
	result := make([]*Entry, len(l.testEntries))
	copy(result, l.testEntries)
	return result
}

func (l *Logger) worker() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.FlushInterval)
	defer ticker.Stop()

	batch := make([]*Entry, 0, l.config.BatchSize)

	for {
		select {
		case entry, ok := <-l.buffer:
			if !ok {
				l.flush(batch)
				return
			}
			batch = append(batch, entry)
			if len(batch) >= l.config.BatchSize {
				l.flush(batch)
				batch = make([]*Entry, 0, l.config.BatchSize)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				l.flush(batch)
				batch = make([]*Entry, 0, l.config.BatchSize)
			}
		}
	}
}

func (l *Logger) flush(entries []*Entry) {
	if len(entries) == 0 {
		return
	}

	l.testMu.Lock()
	if l.testMode {
		l.testEntries = append(l.testEntries, entries...)
		l.testMu.Unlock()
		return
	}
	l.testMu.Unlock()

	if l.config.Sink == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := l.config.Sink.Write(ctx, entries); err != nil {
		l.log.Error("failed to write activity logs", zap.Int("count", len(entries)), zap.Error(err))
	}
}
