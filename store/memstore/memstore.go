// Package memstore keeps requests and users in process memory. It backs the
// tests and the `memory` store driver.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/nearhelp/nearhelp-api/schema"
	"github.com/nearhelp/nearhelp-api/store"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	requestLock sync.Mutex
	requests    map[string]*schema.Request

	userLock sync.RWMutex
	users    map[string]*schema.User

	now func() time.Time
}

func New() *Store {
	return &Store{
		requests: make(map[string]*schema.Request),
		users:    make(map[string]*schema.User),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Ping() error {
	return nil
}

func copyRequest(r *schema.Request) schema.Request {
	c := *r
	c.NotifiedVolunteers = append(pq.StringArray{}, r.NotifiedVolunteers...)
	if r.AssignedVolunteer != nil {
		v := *r.AssignedVolunteer
		c.AssignedVolunteer = &v
	}
	if r.Rating != nil {
		v := *r.Rating
		c.Rating = &v
	}
	if r.Feedback != nil {
		v := *r.Feedback
		c.Feedback = &v
	}
	return c
}

func (s *Store) CreateRequest(ctx context.Context, r *schema.Request) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.NotifiedVolunteers == nil {
		r.NotifiedVolunteers = pq.StringArray{}
	}
	if err := schema.ValidateRequest(r); err != nil {
		return err
	}

	s.requestLock.Lock()
	defer s.requestLock.Unlock()

	if _, ok := s.requests[r.ID]; ok {
		return store.ErrRequestExists
	}

	now := s.now()
	r.CreatedAt = now
	r.UpdatedAt = now

	c := copyRequest(r)
	s.requests[r.ID] = &c
	return nil
}

func (s *Store) GetRequest(ctx context.Context, id string) (*schema.Request, error) {
	s.requestLock.Lock()
	defer s.requestLock.Unlock()

	r, ok := s.requests[id]
	if !ok {
		return nil, store.ErrRequestNotFound
	}
	c := copyRequest(r)
	return &c, nil
}

func (s *Store) GetRequests(ctx context.Context, ids []string) ([]schema.Request, error) {
	s.requestLock.Lock()
	defer s.requestLock.Unlock()

	seen := make(map[string]bool, len(ids))
	result := make([]schema.Request, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if r, ok := s.requests[id]; ok {
			result = append(result, copyRequest(r))
		}
	}
	return result, nil
}

// Transition checks and writes under the same lock, which gives the same
// guarantee as a conditional UPDATE
func (s *Store) Transition(ctx context.Context, id string, from, to schema.Status, patch store.Patch) (*schema.Request, error) {
	s.requestLock.Lock()
	defer s.requestLock.Unlock()

	r, ok := s.requests[id]
	if !ok {
		return nil, store.ErrRequestNotFound
	}
	if r.Status != from {
		return nil, store.ErrStatusMismatch
	}

	next := copyRequest(r)
	next.Status = to
	if patch.ClearAssignee {
		next.AssignedVolunteer = nil
	} else if patch.AssignedVolunteer != nil {
		v := *patch.AssignedVolunteer
		next.AssignedVolunteer = &v
	}
	if patch.ClearOutcome {
		next.Rating = nil
		next.Feedback = nil
	} else {
		if patch.Rating != nil {
			v := *patch.Rating
			next.Rating = &v
		}
		if patch.Feedback != nil {
			v := *patch.Feedback
			next.Feedback = &v
		}
	}
	next.UpdatedAt = s.now()

	s.requests[id] = &next
	c := copyRequest(&next)
	return &c, nil
}

func (s *Store) AddNotifiedVolunteers(ctx context.Context, id string, volunteerIDs []string) error {
	s.requestLock.Lock()
	defer s.requestLock.Unlock()

	r, ok := s.requests[id]
	if !ok {
		return store.ErrRequestNotFound
	}

	set := make(map[string]bool, len(r.NotifiedVolunteers)+len(volunteerIDs))
	for _, v := range r.NotifiedVolunteers {
		set[v] = true
	}
	for _, v := range volunteerIDs {
		set[v] = true
	}

	merged := make(pq.StringArray, 0, len(set))
	for v := range set {
		merged = append(merged, v)
	}
	sort.Strings(merged)
	r.NotifiedVolunteers = merged
	return nil
}

func matchRequest(r *schema.Request, f store.RequestFilter) bool {
	if f.Owner != "" && r.Owner != f.Owner {
		return false
	}
	if f.Assignee != "" && !r.IsAssignee(f.Assignee) {
		return false
	}
	if f.NotifiedVolunteer != "" && !r.WasNotified(f.NotifiedVolunteer) {
		return false
	}
	if len(f.Statuses) > 0 {
		for _, st := range f.Statuses {
			if r.Status == st {
				return true
			}
		}
		return false
	}
	return true
}

func (s *Store) ListRequests(ctx context.Context, filter store.RequestFilter, page, limit int) ([]schema.Request, int, error) {
	page, limit = store.NormalizePage(page, limit)

	s.requestLock.Lock()
	matched := make([]schema.Request, 0)
	for _, r := range s.requests {
		if matchRequest(r, filter) {
			matched = append(matched, copyRequest(r))
		}
	}
	s.requestLock.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	return paginate(matched, page, limit), len(matched), nil
}

func paginate(requests []schema.Request, page, limit int) []schema.Request {
	start := (page - 1) * limit
	if start >= len(requests) {
		return []schema.Request{}
	}
	end := start + limit
	if end > len(requests) {
		end = len(requests)
	}
	return requests[start:end]
}

func (s *Store) CountByStatus(ctx context.Context) (map[schema.Status]int64, error) {
	s.requestLock.Lock()
	defer s.requestLock.Unlock()

	counts := make(map[schema.Status]int64, len(schema.AllStatuses))
	for _, st := range schema.AllStatuses {
		counts[st] = 0
	}
	for _, r := range s.requests {
		counts[r.Status]++
	}
	return counts, nil
}
