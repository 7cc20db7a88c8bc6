package memstore

import (
	"context"
	"sort"

	"github.com/nearhelp/nearhelp-api/fault"
	"github.com/nearhelp/nearhelp-api/schema"
	"github.com/nearhelp/nearhelp-api/store"
)

func copyUser(u *schema.User) schema.User {
	c := *u
	if u.Location != nil {
		c.Location = &schema.GeoJSON{
			Type:        u.Location.Type,
			Coordinates: append([]float64{}, u.Location.Coordinates...),
		}
	}
	if u.LocationUpdatedAt != nil {
		t := *u.LocationUpdatedAt
		c.LocationUpdatedAt = &t
	}
	return c
}

func (s *Store) CreateUser(ctx context.Context, u *schema.User) error {
	if u.ID == "" {
		return fault.New(fault.InvalidInput, "user id is required")
	}
	if !u.Role.Valid() {
		return schema.ErrInvalidRole
	}

	s.userLock.Lock()
	defer s.userLock.Unlock()

	if _, ok := s.users[u.ID]; ok {
		return store.ErrUserExists
	}
	if u.Email != "" {
		for _, existing := range s.users {
			if existing.Email == u.Email {
				return store.ErrUserExists
			}
		}
	}

	now := s.now()
	u.CreatedAt = now
	u.UpdatedAt = now

	c := copyUser(u)
	s.users[u.ID] = &c
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*schema.User, error) {
	s.userLock.RLock()
	defer s.userLock.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	c := copyUser(u)
	return &c, nil
}

func (s *Store) GetUsers(ctx context.Context, ids []string) ([]schema.User, error) {
	s.userLock.RLock()
	defer s.userLock.RUnlock()

	seen := make(map[string]bool, len(ids))
	result := make([]schema.User, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if u, ok := s.users[id]; ok {
			result = append(result, copyUser(u))
		}
	}
	return result, nil
}

func (s *Store) update(id string, fn func(u *schema.User)) (*schema.User, error) {
	s.userLock.Lock()
	defer s.userLock.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	fn(u)
	u.UpdatedAt = s.now()

	c := copyUser(u)
	return &c, nil
}

func (s *Store) UpdateUserLocation(ctx context.Context, id string, loc schema.Location) (*schema.User, error) {
	if err := schema.ValidateLocation(loc); err != nil {
		return nil, err
	}

	return s.update(id, func(u *schema.User) {
		now := s.now()
		u.Location = schema.NewGeoPoint(loc)
		u.LocationUpdatedAt = &now
	})
}

func (s *Store) UpdateDeviceToken(ctx context.Context, id, token string) error {
	_, err := s.update(id, func(u *schema.User) {
		u.DeviceToken = token
	})
	return err
}

func (s *Store) DeactivateUser(ctx context.Context, id string) (*schema.User, error) {
	return s.update(id, func(u *schema.User) {
		u.Active = false
	})
}

func (s *Store) ListUsers(ctx context.Context, role schema.Role, page, limit int) ([]schema.User, int, error) {
	page, limit = store.NormalizePage(page, limit)

	s.userLock.RLock()
	matched := make([]schema.User, 0)
	for _, u := range s.users {
		if role == "" || u.Role == role {
			matched = append(matched, copyUser(u))
		}
	}
	s.userLock.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	start := (page - 1) * limit
	if start >= len(matched) {
		return []schema.User{}, len(matched), nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], len(matched), nil
}
