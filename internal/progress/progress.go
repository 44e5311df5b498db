package progress

import (
	"context"
	"sync"

	"github.com/example/agriroute/internal/models"
)

// Store holds the driver-reported live trip progress per (freight,
// driver). A missing entry reads as an empty status; the effective-status
// resolver then falls back to the assignment row.
type Store interface {
	Set(ctx context.Context, p models.DriverTripProgress) error
	GetStatus(ctx context.Context, freightID, driverID string) (string, error)
}

// MemoryStore is the in-process Store for local runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]models.DriverTripProgress
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]models.DriverTripProgress)}
}

func entryKey(freightID, driverID string) string { return freightID + "|" + driverID }

func (m *MemoryStore) Set(ctx context.Context, p models.DriverTripProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entryKey(p.FreightID, p.DriverID)] = p
	return nil
}

func (m *MemoryStore) GetStatus(ctx context.Context, freightID, driverID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[entryKey(freightID, driverID)].Status, nil
}
