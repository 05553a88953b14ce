// Package mock provides in-memory implementations of database interfaces for testing.
package mock

import (
	"context"
	"sync"

	"github.com/fahry-ali/hadirku-deploy/internal/database"
	"github.com/fahry-ali/hadirku-deploy/internal/matcher"
)

// MockEmbeddingStore is an in-memory implementation of database.EmbeddingWriter.
// Insertion order is preserved across overwrites, matching the PostgreSQL
// repository's seq semantics.
type MockEmbeddingStore struct {
	mu    sync.RWMutex
	order []int64
	byID  map[int64]database.StoredEmbedding

	// Error injection
	LoadError error
	HasError  error
	SaveError error
}

// NewMockEmbeddingStore creates a new mock embedding store.
func NewMockEmbeddingStore() *MockEmbeddingStore {
	return &MockEmbeddingStore{byID: make(map[int64]database.StoredEmbedding)}
}

// LoadReferenceSet returns a snapshot of all stored embeddings in insertion order.
func (m *MockEmbeddingStore) LoadReferenceSet(ctx context.Context) (matcher.ReferenceSet, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var refs matcher.ReferenceSet
	for _, id := range m.order {
		emb := m.byID[id]
		refs = append(refs, matcher.Reference{
			Identity: emb.Identity,
			Name:     emb.Name,
			Vector:   emb.Vector,
			Backend:  emb.Backend,
			Dim:      emb.Dim,
		})
	}
	return refs, nil
}

// HasEmbedding checks whether an identity has a registered face.
func (m *MockEmbeddingStore) HasEmbedding(ctx context.Context, identity int64) (bool, error) {
	if m.HasError != nil {
		return false, m.HasError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byID[identity]
	return ok, nil
}

// SaveEmbedding stores an embedding with overwrite semantics.
func (m *MockEmbeddingStore) SaveEmbedding(ctx context.Context, emb database.StoredEmbedding) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[emb.Identity]; !ok {
		m.order = append(m.order, emb.Identity)
	}
	m.byID[emb.Identity] = emb
	return nil
}

// Count returns the number of stored embeddings.
func (m *MockEmbeddingStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// Get returns the stored embedding for an identity, if present.
func (m *MockEmbeddingStore) Get(identity int64) (database.StoredEmbedding, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	emb, ok := m.byID[identity]
	return emb, ok
}

type recordKey struct {
	identity int64
	courseID int64
	day      string
}

// MockAttendanceStore is an in-memory implementation of database.AttendanceWriter.
// Inserts enforce the (identity, course, day) unique constraint the way the
// real store does, returning database.ErrDuplicate.
type MockAttendanceStore struct {
	mu      sync.RWMutex
	nextID  int64
	records []database.AttendanceRecord
	keys    map[recordKey]bool

	// Error injection
	ExistsError error
	InsertError error
	ListError   error
}

// NewMockAttendanceStore creates a new mock attendance store.
func NewMockAttendanceStore() *MockAttendanceStore {
	return &MockAttendanceStore{keys: make(map[recordKey]bool)}
}

// RecordExists checks for an existing record.
func (m *MockAttendanceStore) RecordExists(ctx context.Context, identity, courseID int64, day string) (bool, error) {
	if m.ExistsError != nil {
		return false, m.ExistsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.keys[recordKey{identity, courseID, day}], nil
}

// InsertRecord persists a record, enforcing the unique constraint.
func (m *MockAttendanceStore) InsertRecord(ctx context.Context, rec *database.AttendanceRecord) error {
	if m.InsertError != nil {
		return m.InsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := recordKey{rec.Identity, rec.CourseID, rec.Day}
	if m.keys[key] {
		return database.ErrDuplicate
	}
	m.nextID++
	rec.ID = m.nextID
	m.keys[key] = true
	m.records = append(m.records, *rec)
	return nil
}

// ListByIdentity returns an identity's records, newest last insertion first.
func (m *MockAttendanceStore) ListByIdentity(ctx context.Context, identity int64) ([]database.AttendanceRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.AttendanceRecord
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].Identity == identity {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}

// Records returns a copy of everything inserted so far.
func (m *MockAttendanceStore) Records() []database.AttendanceRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.AttendanceRecord, len(m.records))
	copy(out, m.records)
	return out
}

// MockCourseReader is an in-memory implementation of database.CourseReader.
type MockCourseReader struct {
	Courses   []database.Course
	ListError error
}

// ListCourses returns the configured course list.
func (m *MockCourseReader) ListCourses(ctx context.Context) ([]database.Course, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	return m.Courses, nil
}
