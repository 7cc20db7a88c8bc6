package geo

import (
	"context"
	"sort"
	"sync"

	"github.com/nearhelp/nearhelp-api/schema"
)

type pointKey struct {
	kind Kind
	id   string
}

// MemoryIndex is an Index kept in process memory
type MemoryIndex struct {
	sync.RWMutex
	points map[pointKey]schema.Location
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		points: make(map[pointKey]schema.Location),
	}
}

func (m *MemoryIndex) Put(ctx context.Context, kind Kind, id string, loc schema.Location) error {
	if !kind.Valid() {
		return ErrInvalidKind
	}
	if err := schema.ValidateLocation(loc); err != nil {
		return err
	}

	m.Lock()
	defer m.Unlock()
	m.points[pointKey{kind, id}] = loc
	return nil
}

func (m *MemoryIndex) Remove(ctx context.Context, kind Kind, id string) error {
	m.Lock()
	defer m.Unlock()
	delete(m.points, pointKey{kind, id})
	return nil
}

func (m *MemoryIndex) Nearby(ctx context.Context, q Query) ([]Hit, error) {
	if err := ValidateQuery(q); err != nil {
		return nil, err
	}

	m.RLock()
	candidates := make([]Hit, 0)
	for k, loc := range m.points {
		if k.kind != q.Kind {
			continue
		}
		candidates = append(candidates, Hit{ID: k.id, Location: loc})
	}
	m.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ID < candidates[j].ID
	})

	return collect(q, candidates), nil
}
