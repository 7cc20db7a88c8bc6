package geo

import (
	"context"
	"sort"

	"github.com/nearhelp/nearhelp-api/consts"
	"github.com/nearhelp/nearhelp-api/fault"
	"github.com/nearhelp/nearhelp-api/schema"
)

var (
	ErrInvalidMaxDistance = fault.Newf(fault.InvalidInput, "max distance must be within (0, %d] meters", consts.MAX_QUERY_DISTANCE)
	ErrInvalidKind        = fault.New(fault.InvalidInput, "unknown index kind")
)

// Kind separates the entities kept in the same index
type Kind string

const (
	KindVolunteer Kind = "volunteer"
	KindRequest   Kind = "request"
)

func (k Kind) Valid() bool {
	return k == KindVolunteer || k == KindRequest
}

// Hit is a single proximity query result
type Hit struct {
	ID       string
	Location schema.Location
	Distance float64
}

// Filter decides whether a hit is kept. It runs before Limit is applied.
type Filter func(Hit) bool

type Query struct {
	Kind        Kind
	Center      schema.Location
	MaxDistance float64
	// Limit caps the number of hits, zero means no cap
	Limit  int
	Filter Filter
}

// Index - proximity index over volunteer and request locations
type Index interface {
	Put(ctx context.Context, kind Kind, id string, loc schema.Location) error
	Remove(ctx context.Context, kind Kind, id string) error
	// Nearby returns hits ordered by ascending distance, never farther
	// than the query max distance.
	Nearby(ctx context.Context, q Query) ([]Hit, error)
}

// ValidateQuery rejects bad coordinates and unbounded distances before an
// index is queried
func ValidateQuery(q Query) error {
	if !q.Kind.Valid() {
		return ErrInvalidKind
	}
	if err := schema.ValidateLocation(q.Center); err != nil {
		return err
	}
	if q.MaxDistance <= 0 || q.MaxDistance > consts.MAX_QUERY_DISTANCE {
		return ErrInvalidMaxDistance
	}
	if q.Limit < 0 {
		return fault.New(fault.InvalidInput, "limit must not be negative")
	}
	return nil
}

// collect measures every candidate with Haversine, keeps those within
// range that pass the filter and sorts them nearest first. Ties keep
// their input order.
func collect(q Query, candidates []Hit) []Hit {
	hits := make([]Hit, 0, len(candidates))
	for _, h := range candidates {
		h.Distance = Haversine(q.Center, h.Location)
		if h.Distance > q.MaxDistance {
			continue
		}
		hits = append(hits, h)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})

	result := make([]Hit, 0, len(hits))
	for _, h := range hits {
		if q.Filter != nil && !q.Filter(h) {
			continue
		}
		result = append(result, h)
		if q.Limit > 0 && len(result) == q.Limit {
			break
		}
	}
	return result
}
