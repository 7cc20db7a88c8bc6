package lifecycle

import (
	"context"

	"github.com/nearhelp/nearhelp-api/matching"
	"github.com/nearhelp/nearhelp-api/schema"
	"github.com/nearhelp/nearhelp-api/store"
)

// Page is a page of requests with the total number of matches
type Page struct {
	Requests []schema.Request `json:"requests"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
}

// Tasks splits the requests of a volunteer by progress
type Tasks struct {
	Ongoing   []schema.Request `json:"ongoing"`
	Completed []schema.Request `json:"completed"`
}

func (e *Engine) list(ctx context.Context, filter store.RequestFilter, page, limit int) (*Page, error) {
	page, limit = store.NormalizePage(page, limit)

	requests, total, err := e.requests.ListRequests(ctx, filter, page, limit)
	if err != nil {
		return nil, err
	}

	return &Page{
		Requests: requests,
		Total:    total,
		Page:     page,
		Limit:    limit,
	}, nil
}

// ListOwned returns the requests raised by the caller, newest first
func (e *Engine) ListOwned(ctx context.Context, caller Caller, page, limit int) (*Page, error) {
	if _, err := e.authorize(ctx, caller, schema.RoleRequester, schema.RoleAdmin); err != nil {
		return nil, err
	}

	return e.list(ctx, store.RequestFilter{Owner: caller.ID}, page, limit)
}

// ListNotified returns the pending requests the caller was alerted to
func (e *Engine) ListNotified(ctx context.Context, caller Caller, page, limit int) (*Page, error) {
	if _, err := e.authorize(ctx, caller, schema.RoleVolunteer); err != nil {
		return nil, err
	}

	return e.list(ctx, store.RequestFilter{
		NotifiedVolunteer: caller.ID,
		Statuses:          []schema.Status{schema.StatusPending},
	}, page, limit)
}

// ListTasks returns the requests assigned to the calling volunteer
func (e *Engine) ListTasks(ctx context.Context, caller Caller, page, limit int) (*Tasks, error) {
	if _, err := e.authorize(ctx, caller, schema.RoleVolunteer); err != nil {
		return nil, err
	}

	ongoing, err := e.list(ctx, store.RequestFilter{
		Assignee: caller.ID,
		Statuses: []schema.Status{schema.StatusAttended},
	}, page, limit)
	if err != nil {
		return nil, err
	}

	completed, err := e.list(ctx, store.RequestFilter{
		Assignee: caller.ID,
		Statuses: []schema.Status{schema.StatusFinished},
	}, page, limit)
	if err != nil {
		return nil, err
	}

	return &Tasks{
		Ongoing:   ongoing.Requests,
		Completed: completed.Requests,
	}, nil
}

// ListAll returns every request for an admin, optionally of one status
func (e *Engine) ListAll(ctx context.Context, caller Caller, status schema.Status, page, limit int) (*Page, error) {
	if status != "" && !status.Valid() {
		return nil, schema.ErrInvalidStatus
	}

	if _, err := e.authorize(ctx, caller, schema.RoleAdmin); err != nil {
		return nil, err
	}

	filter := store.RequestFilter{}
	if status != "" {
		filter.Statuses = []schema.Status{status}
	}
	return e.list(ctx, filter, page, limit)
}

// Nearby ranks pending requests around a volunteer. Without an explicit
// point the last reported location of the caller is used.
func (e *Engine) Nearby(ctx context.Context, caller Caller, loc *schema.Location, opts matching.Options) ([]matching.RankedRequest, error) {
	u, err := e.authorize(ctx, caller, schema.RoleVolunteer, schema.RoleAdmin)
	if err != nil {
		return nil, err
	}

	if loc == nil {
		loc = u.LastLocation()
	}
	if loc == nil {
		return nil, ErrLocationRequired
	}

	return e.matcher.RankOpenRequests(ctx, *loc, opts)
}

// PreviewCandidates shows an admin which volunteers a request at loc
// would reach
func (e *Engine) PreviewCandidates(ctx context.Context, caller Caller, loc schema.Location, opts matching.Options) ([]matching.Candidate, error) {
	if _, err := e.authorize(ctx, caller, schema.RoleAdmin); err != nil {
		return nil, err
	}

	return e.matcher.FindCandidateVolunteers(ctx, loc, opts)
}

// UserPage is a page of users with the total number of matches
type UserPage struct {
	Users []schema.User `json:"users"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// ListUsers returns the users for an admin, optionally of one role
func (e *Engine) ListUsers(ctx context.Context, caller Caller, role schema.Role, page, limit int) (*UserPage, error) {
	if role != "" && !role.Valid() {
		return nil, schema.ErrInvalidRole
	}

	if _, err := e.authorize(ctx, caller, schema.RoleAdmin); err != nil {
		return nil, err
	}

	page, limit = store.NormalizePage(page, limit)
	users, total, err := e.users.ListUsers(ctx, role, page, limit)
	if err != nil {
		return nil, err
	}

	return &UserPage{
		Users: users,
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}

// DeactivateUser lets an admin soft delete a user. Requests owned or
// attended by the user are kept as they are.
func (e *Engine) DeactivateUser(ctx context.Context, caller Caller, userID string) (*schema.User, error) {
	if _, err := e.authorize(ctx, caller, schema.RoleAdmin); err != nil {
		return nil, err
	}

	return e.matcher.DeactivateUser(ctx, userID)
}
