// Package store persists resources created through the gateway. Access
// control is never decided here; that is OpenFGA's job.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/hiershare/hiershare/internal/models"
)

// ErrNotFound is returned when a resource does not exist.
var ErrNotFound = errors.New("resource not found")

// ErrAlreadyExists is returned when creating a resource with a key that is
// already stored.
var ErrAlreadyExists = errors.New("resource already exists")

// ResourceStore persists resources keyed by service/type/org/name.
type ResourceStore interface {
	Create(ctx context.Context, resource models.Resource) error
	Get(ctx context.Context, key models.ResourceKey) (models.Resource, error)
	Update(ctx context.Context, resource models.Resource) error
	Delete(ctx context.Context, key models.ResourceKey) error
	Ping(ctx context.Context) error
	Close()
}

// MemoryStore is an in-memory ResourceStore used when no database is
// configured, e.g. for demos and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	resources map[models.ResourceKey]models.Resource
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		resources: make(map[models.ResourceKey]models.Resource),
	}
}

func (m *MemoryStore) Create(ctx context.Context, resource models.Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.resources[resource.ResourceKey]; ok {
		return ErrAlreadyExists
	}
	m.resources[resource.ResourceKey] = resource
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, key models.ResourceKey) (models.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	resource, ok := m.resources[key]
	if !ok {
		return models.Resource{}, ErrNotFound
	}
	return resource, nil
}

func (m *MemoryStore) Update(ctx context.Context, resource models.Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.resources[resource.ResourceKey]; !ok {
		return ErrNotFound
	}
	m.resources[resource.ResourceKey] = resource
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key models.ResourceKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.resources[key]; !ok {
		return ErrNotFound
	}
	delete(m.resources, key)
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryStore) Close() {}
