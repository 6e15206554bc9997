package database

import (
	"context"
	"sync"

	"arbmon/internal/model"
)

// HistoryKey is the fixed name of the single durable record holding the full
// opportunity-history array.
const HistoryKey = "arbitrage_history_v1"

// Repository defines the standard interface for history persistence.
type Repository interface {
	LoadHistory(ctx context.Context) ([]model.HistoryEntry, error)
	SaveHistory(ctx context.Context, entries []model.HistoryEntry) error
}

// MemoryRepository keeps history in memory only. It backs the monitor when no
// database is configured; session history stays correct, durability is lost.
type MemoryRepository struct {
	mu      sync.Mutex
	entries []model.HistoryEntry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) LoadHistory(ctx context.Context) ([]model.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.HistoryEntry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *MemoryRepository) SaveHistory(ctx context.Context, entries []model.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make([]model.HistoryEntry, len(entries))
	copy(m.entries, entries)
	return nil
}
