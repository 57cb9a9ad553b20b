// Package nonce records request nonces so that a signed request is accepted
// at most once.
package nonce

import (
	"context"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("nonce")

// Store atomically checks and records nonces.
type Store interface {
	// CheckAndRecord records nonce as seen at now. It returns true if the
	// nonce had already been recorded. Concurrent calls with the same nonce
	// report false to at most one caller.
	CheckAndRecord(ctx context.Context, nonce string, now time.Time) (replayed bool, err error)
}

type Record struct {
	Nonce     string
	FirstSeen time.Time
}

// Memory is an in-process store. Records older than the horizon are evicted
// lazily while recording.
type Memory struct {
	mu        sync.Mutex
	horizon   time.Duration
	records   map[string]Record
	lastSweep time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory creates a store that forgets nonces after horizon. A horizon of
// zero or less keeps every nonce forever.
func NewMemory(horizon time.Duration) *Memory {
	return &Memory{
		horizon: horizon,
		records: map[string]Record{},
	}
}

func (m *Memory) CheckAndRecord(_ context.Context, nonce string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweep(now)
	if rec, ok := m.records[nonce]; ok && !m.expired(rec, now) {
		return true, nil
	}
	m.records[nonce] = Record{Nonce: nonce, FirstSeen: now}
	return false, nil
}

// Len is the number of records currently held.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *Memory) expired(rec Record, now time.Time) bool {
	return m.horizon > 0 && now.Sub(rec.FirstSeen) > m.horizon
}

func (m *Memory) sweep(now time.Time) {
	if m.horizon <= 0 || now.Sub(m.lastSweep) < m.horizon/2 {
		return
	}
	m.lastSweep = now
	before := len(m.records)
	for k, rec := range m.records {
		if m.expired(rec, now) {
			delete(m.records, k)
		}
	}
	if evicted := before - len(m.records); evicted > 0 {
		log.Debugf("evicted %d expired nonces", evicted)
	}
}
