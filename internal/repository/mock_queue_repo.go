package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/VasquezCodes/CineMatch-sub000/internal/domain"
)

// MockQueueRepository is a hand-written, in-memory implementation of
// QueueRepository used in unit tests. No mock-generation library needed.
type MockQueueRepository struct {
	mu    sync.Mutex
	items map[string]*domain.QueueItem

	// Optional error overrides, set in tests to simulate failure paths.
	EnqueueBatchErr error
	ClaimErr        error
	DeleteErr       error

	// ClaimCalls records the limit passed to each ClaimPending call so tests
	// can assert the batch bound. EnqueueCalls records each batch's size.
	ClaimCalls   []int
	EnqueueCalls []int
}

func NewMockQueueRepository() *MockQueueRepository {
	return &MockQueueRepository{items: make(map[string]*domain.QueueItem)}
}

func (m *MockQueueRepository) EnqueueBatch(_ context.Context, items []*domain.QueueItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnqueueCalls = append(m.EnqueueCalls, len(items))
	if m.EnqueueBatchErr != nil {
		return m.EnqueueBatchErr
	}
	for _, item := range items {
		clone := *item
		m.items[item.ID] = &clone
	}
	return nil
}

func (m *MockQueueRepository) ClaimPending(_ context.Context, limit int) ([]*domain.QueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClaimCalls = append(m.ClaimCalls, limit)
	if m.ClaimErr != nil {
		return nil, m.ClaimErr
	}

	pending := make([]*domain.QueueItem, 0)
	for _, item := range m.items {
		if item.Status == domain.StatusPending {
			pending = append(pending, item)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}

	claimed := make([]*domain.QueueItem, len(pending))
	for i, item := range pending {
		item.Status = domain.StatusProcessing
		item.UpdatedAt = time.Now().UTC()
		clone := *item
		claimed[i] = &clone
	}
	return claimed, nil
}

func (m *MockQueueRepository) Delete(_ context.Context, id string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

func (m *MockQueueRepository) MarkFailed(_ context.Context, id, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.items[id]; ok {
		item.Status = domain.StatusFailed
		item.ErrorMessage = &errMsg
		item.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (m *MockQueueRepository) CountPending(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, item := range m.items {
		if item.Status == domain.StatusPending {
			n++
		}
	}
	return n, nil
}

func (m *MockQueueRepository) Snapshot(_ context.Context) (*domain.QueueSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var snap domain.QueueSnapshot
	for _, item := range m.items {
		switch item.Status {
		case domain.StatusPending:
			snap.Pending++
		case domain.StatusProcessing:
			snap.Processing++
		case domain.StatusFailed:
			snap.Failed++
		}
	}
	return &snap, nil
}

func (m *MockQueueRepository) ListByOwner(_ context.Context, ownerID string, limit int) ([]*domain.QueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.QueueItem
	for _, item := range m.items {
		if item.OwnerID == ownerID {
			clone := *item
			result = append(result, &clone)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Get returns the stored item, or nil if absent. Test helper.
func (m *MockQueueRepository) Get(id string) *domain.QueueItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil
	}
	clone := *item
	return &clone
}

// Len returns the number of stored items regardless of status. Test helper.
func (m *MockQueueRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
