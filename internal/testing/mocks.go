package testing

import (
	"sync"
	"time"
)

// MockRecorder counts cache and load events for assertions
type MockRecorder struct {
	mu         sync.Mutex
	hits       map[string]int
	misses     map[string]int
	loads      map[string]int
	loadErrors map[string]int
}

// NewMockRecorder creates an empty recorder
func NewMockRecorder() *MockRecorder {
	return &MockRecorder{
		hits:       make(map[string]int),
		misses:     make(map[string]int),
		loads:      make(map[string]int),
		loadErrors: make(map[string]int),
	}
}

// CacheHit records a hit for table in tier
func (m *MockRecorder) CacheHit(table, tier string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits[table+"/"+tier]++
}

// CacheMiss records a miss for table
func (m *MockRecorder) CacheMiss(table string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.misses[table]++
}

// ObserveLoad records a parse of table
func (m *MockRecorder) ObserveLoad(table string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.loadErrors[table]++
		return
	}
	m.loads[table]++
}

// Hits returns the hit count for table in tier
func (m *MockRecorder) Hits(table, tier string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits[table+"/"+tier]
}

// Misses returns the miss count for table
func (m *MockRecorder) Misses(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.misses[table]
}

// Loads returns the number of successful parses of table
func (m *MockRecorder) Loads(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads[table]
}

// LoadErrors returns the number of failed parses of table
func (m *MockRecorder) LoadErrors(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadErrors[table]
}
