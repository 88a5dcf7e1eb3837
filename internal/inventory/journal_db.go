package inventory

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	journalBuffer  = 256
	journalTimeout = 3 * time.Second
	pingTimeout    = 1 * time.Second
)

// Journal appends every ledger event to Postgres for external observers.
// Writes happen on a background goroutine so a slow database never stalls
// a ledger operation. The in-memory ledger stays authoritative; a failed
// or dropped write is logged, not retried. Emit after Close is safe and
// drops the event.
type Journal struct {
	db  *sql.DB
	log *zap.Logger

	mu     sync.RWMutex
	closed bool
	ch     chan Event
	done   chan struct{}
}

func NewJournal(db *sql.DB, log *zap.Logger) *Journal {
	if log == nil {
		log = zap.NewNop()
	}
	j := &Journal{
		db:   db,
		log:  log,
		ch:   make(chan Event, journalBuffer),
		done: make(chan struct{}),
	}
	go j.run()
	return j
}

func (j *Journal) Emit(e Event) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		j.log.Warn("journal closed, event dropped", zap.String("kind", e.Kind()))
		return
	}

	select {
	case j.ch <- e:
	default:
		j.log.Warn("journal buffer full, event dropped", zap.String("kind", e.Kind()))
	}
}

func (j *Journal) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return j.db.PingContext(ctx)
}

// Close stops accepting events and flushes what is buffered. Safe to
// call more than once.
func (j *Journal) Close() {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return
	}
	j.closed = true
	j.mu.Unlock()

	close(j.ch)
	<-j.done
}

func (j *Journal) run() {
	defer close(j.done)
	for e := range j.ch {
		j.write(e)
	}
}

func (j *Journal) write(e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		j.log.Error("journal marshal failed", zap.String("kind", e.Kind()), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO ledger_events (kind, payload)
		VALUES ($1, $2)
	`, e.Kind(), payload)
	if err != nil {
		j.log.Error("journal insert failed", zap.String("kind", e.Kind()), zap.Error(err))
	}
}
