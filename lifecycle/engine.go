package lifecycle

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"

	"github.com/nearhelp/nearhelp-api/background"
	"github.com/nearhelp/nearhelp-api/fault"
	"github.com/nearhelp/nearhelp-api/geo"
	"github.com/nearhelp/nearhelp-api/matching"
	"github.com/nearhelp/nearhelp-api/schema"
	"github.com/nearhelp/nearhelp-api/store"
)

const logPrefix = "lifecycle"

// Caller is the verified identity behind an operation
type Caller struct {
	ID   string
	Role schema.Role
}

func (c Caller) IsAdmin() bool {
	return c.Role == schema.RoleAdmin
}

type CreateParams struct {
	Category    schema.Category
	Description string
	Location    schema.Location
}

type FinishParams struct {
	Rating   *int
	Feedback *string
}

// Engine enforces the request state machine. Every transition is a
// conditional update on the request store, so concurrent callers are
// serialized per request without any lock in this process.
type Engine struct {
	requests store.RequestStore
	users    store.UserStore
	matcher  *matching.Service
	trigger  background.Trigger
	resolver geo.LocationResolver
}

// NewEngine returns an engine. The resolver is optional.
func NewEngine(requests store.RequestStore, users store.UserStore, matcher *matching.Service, trigger background.Trigger, resolver geo.LocationResolver) *Engine {
	return &Engine{
		requests: requests,
		users:    users,
		matcher:  matcher,
		trigger:  trigger,
		resolver: resolver,
	}
}

func logger(requestID string) *log.Entry {
	return log.WithFields(log.Fields{
		"prefix":     logPrefix,
		"request_id": requestID,
	})
}

// authorize checks that the caller exists, is active and holds one of roles
func (e *Engine) authorize(ctx context.Context, caller Caller, roles ...schema.Role) (*schema.User, error) {
	if caller.ID == "" {
		return nil, ErrUnknownCaller
	}

	allowed := len(roles) == 0
	for _, r := range roles {
		if caller.Role == r {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, ErrRoleNotAllowed
	}

	u, err := e.users.GetUser(ctx, caller.ID)
	if err != nil {
		if fault.Is(err, fault.NotFound) {
			return nil, ErrUnknownCaller
		}
		return nil, err
	}
	if !u.Active {
		return nil, ErrInactiveCaller
	}
	if u.Role != caller.Role {
		return nil, ErrRoleNotAllowed
	}
	return u, nil
}

// track keeps the request index in line with a stored request. The store
// is the source of truth, so index failures are only logged.
func (e *Engine) track(ctx context.Context, r *schema.Request) {
	if err := e.matcher.TrackRequest(ctx, r); err != nil {
		logger(r.ID).Errorf("track request with error: %s", err)
	}
}

func (e *Engine) notifyStatus(r *schema.Request) {
	if err := e.trigger.NotifyStatusChange(r.ID, r.Status); err != nil {
		logger(r.ID).Warnf("trigger status notification with error: %s", err)
	}
}

// Create validates and persists a new pending request, then starts the
// notification fan-out without waiting for it
func (e *Engine) Create(ctx context.Context, caller Caller, params CreateParams) (*schema.Request, error) {
	params.Description = strings.TrimSpace(params.Description)
	if err := schema.ValidateNewRequest(params.Category, params.Description, params.Location); err != nil {
		return nil, err
	}

	if _, err := e.authorize(ctx, caller, schema.RoleRequester, schema.RoleAdmin); err != nil {
		return nil, err
	}

	if params.Location.Address == "" && e.resolver != nil {
		address, err := e.resolver.ResolveAddress(ctx, params.Location)
		if err != nil {
			log.WithField("prefix", logPrefix).Debugf("resolve address with error: %s", err)
		} else {
			params.Location.Address = address
		}
	}

	r := &schema.Request{
		ID:                 uuid.New().String(),
		Owner:              caller.ID,
		Category:           params.Category,
		Description:        params.Description,
		Location:           params.Location,
		Status:             schema.StatusPending,
		NotifiedVolunteers: pq.StringArray{},
	}

	if err := e.requests.CreateRequest(ctx, r); err != nil {
		return nil, err
	}
	logger(r.ID).WithField("owner", r.Owner).Info("request created")

	e.track(ctx, r)

	if err := e.trigger.BroadcastNewRequest(r.ID); err != nil {
		logger(r.ID).Warnf("trigger new request broadcast with error: %s", err)
	}

	return r, nil
}

// Attend assigns the calling volunteer to a pending request. Only one of
// concurrent callers wins, the others get a Conflict.
func (e *Engine) Attend(ctx context.Context, caller Caller, requestID string) (*schema.Request, error) {
	if _, err := e.authorize(ctx, caller, schema.RoleVolunteer); err != nil {
		return nil, err
	}

	r, err := e.requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if r.IsOwner(caller.ID) {
		return nil, ErrOwnRequest
	}

	if !r.Status.CanTransitionTo(schema.StatusAttended) {
		if r.Status.Terminal() {
			return nil, ErrRequestClosed
		}
		return nil, ErrAlreadyAttended
	}

	volunteer := caller.ID
	updated, err := e.requests.Transition(ctx, r.ID, r.Status, schema.StatusAttended, store.Patch{
		AssignedVolunteer: &volunteer,
	})
	if err != nil {
		if err == store.ErrStatusMismatch {
			logger(r.ID).WithField("volunteer", volunteer).Info("lost the race to attend")
		}
		return nil, err
	}
	logger(r.ID).WithField("volunteer", volunteer).Info("request attended")

	e.track(ctx, updated)
	e.notifyStatus(updated)

	return updated, nil
}

// Cancel closes a pending request on behalf of its owner or an admin
func (e *Engine) Cancel(ctx context.Context, caller Caller, requestID string) (*schema.Request, error) {
	if _, err := e.authorize(ctx, caller); err != nil {
		return nil, err
	}

	r, err := e.requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if !r.IsOwner(caller.ID) && !caller.IsAdmin() {
		return nil, ErrNotOwner
	}

	if !r.Status.CanTransitionTo(schema.StatusCancelled) {
		return nil, ErrNotPending
	}

	updated, err := e.requests.Transition(ctx, r.ID, r.Status, schema.StatusCancelled, store.Patch{})
	if err != nil {
		return nil, err
	}
	logger(r.ID).WithField("caller", caller.ID).Info("request cancelled")

	e.track(ctx, updated)
	e.notifyStatus(updated)

	return updated, nil
}

// Finish closes an attended request and keeps the optional rating and
// feedback given by the requester
func (e *Engine) Finish(ctx context.Context, caller Caller, requestID string, params FinishParams) (*schema.Request, error) {
	if params.Feedback != nil {
		feedback := strings.TrimSpace(*params.Feedback)
		if feedback == "" {
			params.Feedback = nil
		} else {
			params.Feedback = &feedback
		}
	}
	if err := schema.ValidateRating(params.Rating); err != nil {
		return nil, err
	}
	if err := schema.ValidateFeedback(params.Feedback); err != nil {
		return nil, err
	}

	if _, err := e.authorize(ctx, caller); err != nil {
		return nil, err
	}

	r, err := e.requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if !r.IsOwner(caller.ID) && !caller.IsAdmin() {
		return nil, ErrNotOwner
	}

	if !r.Status.CanTransitionTo(schema.StatusFinished) {
		return nil, ErrNotAttended
	}

	updated, err := e.requests.Transition(ctx, r.ID, r.Status, schema.StatusFinished, store.Patch{
		Rating:   params.Rating,
		Feedback: params.Feedback,
	})
	if err != nil {
		return nil, err
	}
	logger(r.ID).WithField("caller", caller.ID).Info("request finished")

	e.notifyStatus(updated)

	return updated, nil
}

// AdminSetStatus moves a request to any status of the enum. The assignee
// invariant still holds: pending and cancelled drop the assignee, attended
// and finished keep the current one or take volunteerID.
func (e *Engine) AdminSetStatus(ctx context.Context, caller Caller, requestID string, status schema.Status, volunteerID string) (*schema.Request, error) {
	if !status.Valid() {
		return nil, schema.ErrInvalidStatus
	}

	if _, err := e.authorize(ctx, caller, schema.RoleAdmin); err != nil {
		return nil, err
	}

	r, err := e.requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	var patch store.Patch
	if status.HasAssignee() {
		switch {
		case volunteerID != "":
			v, err := e.users.GetUser(ctx, volunteerID)
			if err != nil {
				if fault.Is(err, fault.NotFound) {
					return nil, ErrUnknownVolunteer
				}
				return nil, err
			}
			if v.Role != schema.RoleVolunteer {
				return nil, ErrUnknownVolunteer
			}
			patch.AssignedVolunteer = &volunteerID
		case r.AssignedVolunteer != nil:
			patch.AssignedVolunteer = r.AssignedVolunteer
		default:
			return nil, ErrVolunteerMissing
		}
		if status == schema.StatusAttended {
			patch.ClearOutcome = true
		}
	} else {
		patch.ClearAssignee = true
		patch.ClearOutcome = true
	}

	updated, err := e.requests.Transition(ctx, r.ID, r.Status, status, patch)
	if err != nil {
		return nil, err
	}

	logger(r.ID).WithFields(log.Fields{
		"admin": caller.ID,
		"from":  r.Status,
		"to":    status,
	}).Info("request status overridden")

	e.track(ctx, updated)

	return updated, nil
}

// Get returns a request to anyone involved in it. Volunteers may also read
// any request that is still pending.
func (e *Engine) Get(ctx context.Context, caller Caller, requestID string) (*schema.Request, error) {
	if _, err := e.authorize(ctx, caller); err != nil {
		return nil, err
	}

	r, err := e.requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	switch {
	case caller.IsAdmin(), r.IsOwner(caller.ID), r.IsAssignee(caller.ID), r.WasNotified(caller.ID):
		return r, nil
	case caller.Role == schema.RoleVolunteer && r.Status == schema.StatusPending:
		return r, nil
	}

	return nil, ErrNoAccess
}
