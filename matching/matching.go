package matching

import (
	"context"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/nearhelp/nearhelp-api/consts"
	"github.com/nearhelp/nearhelp-api/geo"
	"github.com/nearhelp/nearhelp-api/schema"
	"github.com/nearhelp/nearhelp-api/store"
)

const logPrefix = "matching"

// Options bounds a proximity search. Zero values fall back to the service
// defaults.
type Options struct {
	MaxDistance float64
	Limit       int
	// Exclude lists entity ids never returned
	Exclude []string
}

// Config holds the service defaults
type Config struct {
	CandidateDistance float64
	CandidateLimit    int
	BrowseDistance    float64
	BrowseLimit       int
}

func (c Config) withDefaults() Config {
	if c.CandidateDistance <= 0 {
		c.CandidateDistance = consts.MATCHING_DISTANCE_RANGE
	}
	if c.CandidateLimit <= 0 {
		c.CandidateLimit = consts.CANDIDATE_LIMIT
	}
	if c.BrowseDistance <= 0 {
		c.BrowseDistance = consts.BROWSE_DISTANCE_RANGE
	}
	if c.BrowseLimit <= 0 {
		c.BrowseLimit = consts.CANDIDATE_LIMIT
	}
	return c
}

type Candidate struct {
	User     schema.User `json:"user"`
	Distance float64     `json:"distance"`
}

type RankedRequest struct {
	Request  schema.Request `json:"request"`
	Distance float64        `json:"distance"`
}

// Service finds volunteers near a request and pending requests near a
// volunteer with the same distance function
type Service struct {
	users    store.UserStore
	requests store.RequestStore
	index    geo.Index
	config   Config
}

func NewService(users store.UserStore, requests store.RequestStore, index geo.Index, config Config) *Service {
	return &Service{
		users:    users,
		requests: requests,
		index:    index,
		config:   config.withDefaults(),
	}
}

func excludeFilter(ids []string) geo.Filter {
	if len(ids) == 0 {
		return nil
	}
	excluded := make(map[string]bool, len(ids))
	for _, id := range ids {
		excluded[id] = true
	}
	return func(h geo.Hit) bool {
		return !excluded[h.ID]
	}
}

// FindCandidateVolunteers returns active volunteers with a known location
// around loc, nearest first. The index only narrows the search. Every hit
// is checked against the stored user and measured again from the stored
// location, so a stale index entry can never widen the result.
func (s *Service) FindCandidateVolunteers(ctx context.Context, loc schema.Location, opts Options) ([]Candidate, error) {
	if opts.MaxDistance == 0 {
		opts.MaxDistance = s.config.CandidateDistance
	}
	if opts.Limit <= 0 {
		opts.Limit = s.config.CandidateLimit
	}

	hits, err := s.index.Nearby(ctx, geo.Query{
		Kind:        geo.KindVolunteer,
		Center:      loc,
		MaxDistance: opts.MaxDistance,
		Filter:      excludeFilter(opts.Exclude),
	})
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(hits))
	if len(hits) == 0 {
		return candidates, nil
	}

	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
	}

	users, err := s.users.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, u := range users {
		if !u.IsAvailableVolunteer() {
			continue
		}
		d := geo.Haversine(loc, *u.LastLocation())
		if d > opts.MaxDistance {
			continue
		}
		candidates = append(candidates, Candidate{User: u, Distance: d})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})
	if len(candidates) > opts.Limit {
		candidates = candidates[:opts.Limit]
	}

	log.WithField("prefix", logPrefix).Debugf("found %d candidate volunteers from %d index hits", len(candidates), len(hits))
	return candidates, nil
}

// RankOpenRequests returns pending requests around a volunteer, nearest
// first
func (s *Service) RankOpenRequests(ctx context.Context, loc schema.Location, opts Options) ([]RankedRequest, error) {
	if opts.MaxDistance == 0 {
		opts.MaxDistance = s.config.BrowseDistance
	}
	if opts.Limit <= 0 {
		opts.Limit = s.config.BrowseLimit
	}

	hits, err := s.index.Nearby(ctx, geo.Query{
		Kind:        geo.KindRequest,
		Center:      loc,
		MaxDistance: opts.MaxDistance,
		Filter:      excludeFilter(opts.Exclude),
	})
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedRequest, 0, len(hits))
	if len(hits) == 0 {
		return ranked, nil
	}

	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
	}

	requests, err := s.requests.GetRequests(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, r := range requests {
		if r.Status != schema.StatusPending {
			continue
		}
		d := geo.Haversine(loc, r.Location)
		if d > opts.MaxDistance {
			continue
		}
		ranked = append(ranked, RankedRequest{Request: r, Distance: d})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Distance < ranked[j].Distance
	})
	if len(ranked) > opts.Limit {
		ranked = ranked[:opts.Limit]
	}

	return ranked, nil
}

// UpdateVolunteerLocation stores the last known location of a user and
// keeps the volunteer index in line with it
func (s *Service) UpdateVolunteerLocation(ctx context.Context, userID string, loc schema.Location) (*schema.User, error) {
	if err := schema.ValidateLocation(loc); err != nil {
		return nil, err
	}

	u, err := s.users.UpdateUserLocation(ctx, userID, loc)
	if err != nil {
		return nil, err
	}

	if err := s.SyncVolunteer(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// DeactivateUser soft deletes a user and drops it from matching
func (s *Service) DeactivateUser(ctx context.Context, userID string) (*schema.User, error) {
	u, err := s.users.DeactivateUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.index.Remove(ctx, geo.KindVolunteer, u.ID); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"prefix": logPrefix, "user_id": u.ID}).Info("user deactivated")
	return u, nil
}

// SyncVolunteer puts an available volunteer into the index and removes
// any other volunteer from it
func (s *Service) SyncVolunteer(ctx context.Context, u *schema.User) error {
	if u.IsAvailableVolunteer() {
		return s.index.Put(ctx, geo.KindVolunteer, u.ID, *u.LastLocation())
	}
	if u.Role == schema.RoleVolunteer {
		return s.index.Remove(ctx, geo.KindVolunteer, u.ID)
	}
	return nil
}

// TrackRequest keeps a request in the request index while it is pending
func (s *Service) TrackRequest(ctx context.Context, r *schema.Request) error {
	if r.Status == schema.StatusPending {
		return s.index.Put(ctx, geo.KindRequest, r.ID, r.Location)
	}
	return s.index.Remove(ctx, geo.KindRequest, r.ID)
}
