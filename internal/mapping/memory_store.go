package mapping

import "context"

// MemoryStore is an in-memory Store used by tests.
type MemoryStore struct {
	records map[string]*Record
}

func NewMemoryStore(records ...*Record) *MemoryStore {
	m := &MemoryStore{records: make(map[string]*Record, len(records))}
	for _, r := range records {
		m.records[r.MappingID] = r
	}
	return m
}

func (m *MemoryStore) Get(_ context.Context, mappingID string) (*Record, error) {
	r, ok := m.records[mappingID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}
