package store

import (
	"context"

	"github.com/jinzhu/gorm"

	"github.com/nearhelp/nearhelp-api/consts"
	"github.com/nearhelp/nearhelp-api/fault"
	"github.com/nearhelp/nearhelp-api/schema"
)

var (
	ErrRequestNotFound = fault.New(fault.NotFound, "request not found")
	ErrUserNotFound    = fault.New(fault.NotFound, "user not found")
	ErrUserExists      = fault.New(fault.Conflict, "user already exists")
	ErrRequestExists   = fault.New(fault.Conflict, "request already exists")
	// ErrStatusMismatch is returned when a conditional transition finds the
	// request in another status than expected
	ErrStatusMismatch = fault.New(fault.Conflict, "request status has changed")
)

// Patch describes the fields changed together with a status transition
type Patch struct {
	AssignedVolunteer *string
	ClearAssignee     bool
	Rating            *int
	Feedback          *string
	ClearOutcome      bool
}

// RequestFilter narrows a request listing. Empty fields are ignored.
type RequestFilter struct {
	Owner             string
	Assignee          string
	NotifiedVolunteer string
	Statuses          []schema.Status
}

// RequestStore keeps assistance requests and their lifecycle state
type RequestStore interface {
	CreateRequest(ctx context.Context, r *schema.Request) error
	GetRequest(ctx context.Context, id string) (*schema.Request, error)
	// GetRequests returns the known requests in the order of ids
	GetRequests(ctx context.Context, ids []string) ([]schema.Request, error)

	// Transition moves a request from one status to another in a single
	// conditional update. It fails with ErrStatusMismatch when the request
	// is no longer in the from status.
	Transition(ctx context.Context, id string, from, to schema.Status, patch Patch) (*schema.Request, error)

	// AddNotifiedVolunteers unions volunteer ids into the notified set
	AddNotifiedVolunteers(ctx context.Context, id string, volunteerIDs []string) error

	ListRequests(ctx context.Context, filter RequestFilter, page, limit int) ([]schema.Request, int, error)
	CountByStatus(ctx context.Context) (map[schema.Status]int64, error)
}

// UserStore keeps user accounts with their last location and push endpoint
type UserStore interface {
	CreateUser(ctx context.Context, u *schema.User) error
	GetUser(ctx context.Context, id string) (*schema.User, error)
	GetUsers(ctx context.Context, ids []string) ([]schema.User, error)
	UpdateUserLocation(ctx context.Context, id string, loc schema.Location) (*schema.User, error)
	UpdateDeviceToken(ctx context.Context, id, token string) error
	DeactivateUser(ctx context.Context, id string) (*schema.User, error)
	ListUsers(ctx context.Context, role schema.Role, page, limit int) ([]schema.User, int, error)
}

// Store - nearhelp main datastore
type Store interface {
	Pinger
	RequestStore
	UserStore
}

var _ Store = (*NearhelpStore)(nil)

// NearhelpStore is an implementation of Store. Requests are kept in
// postgres and users in mongodb.
type NearhelpStore struct {
	ormDB *gorm.DB
	MongoStore
}

func NewNearhelpStore(ormDB *gorm.DB, mongo MongoStore) *NearhelpStore {
	return &NearhelpStore{
		ormDB:      ormDB,
		MongoStore: mongo,
	}
}

// Ping is to check the storage health status
func (s *NearhelpStore) Ping() error {
	if err := s.ormDB.DB().Ping(); err != nil {
		return fault.Wrap(fault.Unavailable, err, "postgres unavailable")
	}
	return s.MongoStore.Ping()
}

// NormalizePage returns a 1-based page and a bounded page size
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = consts.DEFAULT_PAGE_SIZE
	}
	if limit > consts.MAX_PAGE_SIZE {
		limit = consts.MAX_PAGE_SIZE
	}
	return page, limit
}
