package storage

import (
	"errors"
	"sync"
	"time"

	"github.com/example/agriroute/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("storage: not found")

// Store defines persistence for freights, assignments and service
// requests. Implementations must archive a freight into its history
// table when it reaches a terminal completion.
type Store interface {
	SaveFreight(f *models.Freight) error
	GetFreight(id string) (*models.Freight, error)
	UpdateFreightStatus(id, status string) error
	ArchiveFreight(id string) error

	SaveAssignment(a *models.FreightAssignment) error
	GetAssignment(freightID, driverID string) (*models.FreightAssignment, error)
	UpdateAssignmentStatus(freightID, driverID, status string) error

	SaveServiceRequest(r *models.ServiceRequest) error
	GetServiceRequest(id string) (*models.ServiceRequest, error)
	UpdateServiceRequestStatus(id, status string) error
}

// MemoryStore is the in-process Store used for local runs and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	freights    map[string]*models.Freight
	archived    map[string]*models.Freight
	assignments map[string]*models.FreightAssignment
	requests    map[string]*models.ServiceRequest
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		freights:    make(map[string]*models.Freight),
		archived:    make(map[string]*models.Freight),
		assignments: make(map[string]*models.FreightAssignment),
		requests:    make(map[string]*models.ServiceRequest),
	}
}

func assignmentKey(freightID, driverID string) string { return freightID + "|" + driverID }

func (m *MemoryStore) SaveFreight(f *models.Freight) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *f
	m.freights[f.ID] = &cp
	return nil
}

func (m *MemoryStore) GetFreight(id string) (*models.Freight, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.freights[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *MemoryStore) UpdateFreightStatus(id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.freights[id]
	if !ok {
		return ErrNotFound
	}
	f.Status = status
	f.UpdatedAt = time.Now()
	return nil
}

// ArchiveFreight moves a terminally-completed freight into the immutable
// history set.
func (m *MemoryStore) ArchiveFreight(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.freights[id]
	if !ok {
		return ErrNotFound
	}
	m.archived[id] = f
	delete(m.freights, id)
	return nil
}

// GetArchived looks up a freight in the history set. Test helper.
func (m *MemoryStore) GetArchived(id string) (*models.Freight, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.archived[id]
	return f, ok
}

func (m *MemoryStore) SaveAssignment(a *models.FreightAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.assignments[assignmentKey(a.FreightID, a.DriverID)] = &cp
	return nil
}

func (m *MemoryStore) GetAssignment(freightID, driverID string) (*models.FreightAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assignments[assignmentKey(freightID, driverID)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryStore) UpdateAssignmentStatus(freightID, driverID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[assignmentKey(freightID, driverID)]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) SaveServiceRequest(r *models.ServiceRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.requests[r.ID] = &cp
	return nil
}

func (m *MemoryStore) GetServiceRequest(id string) (*models.ServiceRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) UpdateServiceRequestStatus(id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = status
	r.UpdatedAt = time.Now()
	return nil
}
