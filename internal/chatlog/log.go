package chatlog

import (
	"log/slog"
	"sync"
	"time"

	"github.com/marketlane/chatlink/internal/model"
)

// Log maintains the ordered, duplicate-free message view for one room.
//
// Entries arrive from two directions: optimistic local sends (Pending, keyed
// by tempId) and server-confirmed events (Confirmed, keyed by id). A confirmed
// event whose tempId matches a pending entry replaces that entry in place, so
// the message keeps its original display position. Arrival order equals
// display order for the lifetime of one subscription.
type Log struct {
	logger *slog.Logger

	mu      sync.RWMutex
	entries []model.Message
	byTemp  map[string]int     // tempId to index, pending entries only
	byID    map[int64]struct{} // confirmed ids present
}

// New creates an empty log.
func New(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{
		logger: logger,
		byTemp: make(map[string]int),
		byID:   make(map[int64]struct{}),
	}
}

// Seed replaces the log contents with server-side history. Used to
// pre-populate a room before the live subscription attaches.
func (l *Log) Seed(history []model.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = make([]model.Message, 0, len(history))
	l.byTemp = make(map[string]int)
	l.byID = make(map[int64]struct{})

	for _, m := range history {
		if m.ID != 0 {
			if _, dup := l.byID[m.ID]; dup {
				continue
			}
			l.byID[m.ID] = struct{}{}
		}
		m.State = model.Confirmed
		l.entries = append(l.entries, m)
	}
}

// AppendPending records an optimistic local send before confirmation.
func (l *Log) AppendPending(msg model.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.byTemp[msg.TempID]; exists {
		l.logger.Warn("duplicate pending tempId, dropping", "temp_id", msg.TempID)
		return
	}

	msg.State = model.Pending
	msg.ID = 0
	l.byTemp[msg.TempID] = len(l.entries)
	l.entries = append(l.entries, msg)
}

// Confirm records a server-confirmed message.
//
// If the confirmed event echoes a tempId with a pending entry, that entry is
// upgraded in place: it gains the server id and Confirmed state but keeps its
// position. Otherwise a duplicate id is dropped and anything else is appended
// in arrival order.
func (l *Log) Confirm(msg model.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if msg.ID != 0 {
		if _, dup := l.byID[msg.ID]; dup {
			l.logger.Debug("duplicate confirmed id, dropping", "id", msg.ID)
			return
		}
	}

	if msg.TempID != "" {
		if idx, ok := l.byTemp[msg.TempID]; ok {
			entry := &l.entries[idx]
			entry.ID = msg.ID
			entry.Timestamp = msg.Timestamp
			entry.State = model.Confirmed
			// Identity switches from tempId to id
			delete(l.byTemp, msg.TempID)
			if msg.ID != 0 {
				l.byID[msg.ID] = struct{}{}
			}
			return
		}
	}

	msg.State = model.Confirmed
	if msg.ID != 0 {
		l.byID[msg.ID] = struct{}{}
	}
	l.entries = append(l.entries, msg)
}

// MarkFailed transitions pending entries sent before the cutoff to Failed.
// Returns the number of entries transitioned.
func (l *Log) MarkFailed(cutoff time.Time) int {
	cutoffMicros := cutoff.UnixMicro()

	l.mu.Lock()
	defer l.mu.Unlock()

	failed := 0
	for temp, idx := range l.byTemp {
		entry := &l.entries[idx]
		if entry.Timestamp < cutoffMicros {
			entry.State = model.Failed
			delete(l.byTemp, temp)
			failed++
		}
	}
	return failed
}

// Clear discards all entries. Called on every room switch so no history
// leaks between rooms.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = nil
	l.byTemp = make(map[string]int)
	l.byID = make(map[int64]struct{})
}

// Snapshot returns a copy of the current entries in display order.
func (l *Log) Snapshot() []model.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]model.Message, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
