package archive

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/marketlane/chatlink/internal/metrics"
	"github.com/marketlane/chatlink/internal/model"
)

// DB is the database surface the archiver needs. *pgxpool.Pool satisfies it.
type DB interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Config contains batch settings for the archiver.
type Config struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: 5 * time.Second,
	}
}

// Stats holds archiver counters.
type Stats struct {
	Archived int64
	Dropped  int64
	Flushes  int64
	Errors   int64
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS chat_messages (
	id         BIGINT PRIMARY KEY,
	room_id    BIGINT NOT NULL,
	sender_id  BIGINT NOT NULL,
	body       TEXT NOT NULL,
	image_url  TEXT,
	sent_at    BIGINT NOT NULL
)`

// Archiver batch-writes confirmed messages into a local transcript table.
// Entirely optional: when disabled nothing in the session path touches it.
type Archiver struct {
	cfg    Config
	db     DB
	logger *slog.Logger

	in chan model.Message

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	archived atomic.Int64
	dropped  atomic.Int64
	flushes  atomic.Int64
	errors   atomic.Int64
}

// New creates an Archiver. Nothing runs until Start.
func New(cfg Config, db DB, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultConfig().FlushInterval
	}

	return &Archiver{
		cfg:    cfg,
		db:     db,
		logger: logger,
		in:     make(chan model.Message, cfg.BatchSize*4),
	}
}

// EnsureSchema creates the transcript table if missing.
func (a *Archiver) EnsureSchema(ctx context.Context) error {
	_, err := a.db.Exec(ctx, createTableSQL)
	return err
}

// Start launches the batch loop.
func (a *Archiver) Start(ctx context.Context) {
	a.ctx, a.cancel = context.WithCancel(ctx)
	a.wg.Add(1)
	go a.run()
	a.logger.Info("archiver started",
		"batch_size", a.cfg.BatchSize, "flush_interval", a.cfg.FlushInterval)
}

// Stop flushes any buffered rows and halts the loop.
func (a *Archiver) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
	a.logger.Info("archiver stopped", "archived", a.archived.Load())
}

// Record queues one confirmed message for archiving. Non-blocking: when the
// buffer is full the message is dropped and counted, not waited on. The
// session path never stalls on the archive.
func (a *Archiver) Record(msg model.Message) {
	select {
	case a.in <- msg:
	default:
		a.dropped.Add(1)
	}
}

// Stats returns a snapshot of the archiver counters.
func (a *Archiver) Stats() Stats {
	return Stats{
		Archived: a.archived.Load(),
		Dropped:  a.dropped.Load(),
		Flushes:  a.flushes.Load(),
		Errors:   a.errors.Load(),
	}
}

func (a *Archiver) run() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]model.Message, 0, a.cfg.BatchSize)

	for {
		select {
		case <-a.ctx.Done():
			// Drain whatever is already queued, then final flush
			for {
				select {
				case msg := <-a.in:
					batch = append(batch, msg)
				default:
					a.flush(batch)
					return
				}
			}

		case msg := <-a.in:
			batch = append(batch, msg)
			if len(batch) >= a.cfg.BatchSize {
				a.flush(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

func (a *Archiver) flush(batch []model.Message) {
	if len(batch) == 0 {
		return
	}

	// Independent deadline: the final flush runs after a.ctx is canceled
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rows := make([][]any, len(batch))
	for i, m := range batch {
		rows[i] = []any{m.ID, m.RoomID, m.SenderID, m.Text, m.ImageURL, m.Timestamp}
	}

	copied, err := a.db.CopyFrom(ctx,
		pgx.Identifier{"chat_messages"},
		[]string{"id", "room_id", "sender_id", "body", "image_url", "sent_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		a.errors.Add(1)
		a.logger.Error("archive flush failed", "rows", len(batch), "error", err)
		return
	}

	a.archived.Add(copied)
	a.flushes.Add(1)
	metrics.ArchivedMessages.Add(float64(copied))
	a.logger.Debug("archive flush", "rows", copied)
}
