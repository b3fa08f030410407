package objectstore

import (
	"context"
	"fmt"
	"io"
	"sync"
)

const memoryScheme = "memory://"

// InMemory keeps objects in a map. Used when no bucket is configured and in tests.
type InMemory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewInMemory() *InMemory {
	return &InMemory{objects: make(map[string][]byte)}
}

func (m *InMemory) Upload(_ context.Context, obj Object) (string, error) {
	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return "", fmt.Errorf("read object body: %w", err)
	}
	url := memoryScheme + objectKey(obj)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[url] = data
	return url, nil
}

func (m *InMemory) Delete(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, url)
	return nil
}

// Has reports whether url is stored.
func (m *InMemory) Has(url string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[url]
	return ok
}

// Len returns the number of stored objects.
func (m *InMemory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
