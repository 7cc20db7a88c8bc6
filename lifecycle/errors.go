package lifecycle

import "github.com/nearhelp/nearhelp-api/fault"

var (
	ErrUnknownCaller    = fault.New(fault.Forbidden, "caller is not a registered user")
	ErrInactiveCaller   = fault.New(fault.Forbidden, "caller has been deactivated")
	ErrRoleNotAllowed   = fault.New(fault.Forbidden, "operation is not allowed for this role")
	ErrNotOwner         = fault.New(fault.Forbidden, "only the owner or an admin can do this")
	ErrOwnRequest       = fault.New(fault.Forbidden, "cannot attend your own request")
	ErrNoAccess         = fault.New(fault.Forbidden, "no access to this request")
	ErrAlreadyAttended  = fault.New(fault.Conflict, "request has already been attended")
	ErrRequestClosed    = fault.New(fault.InvalidState, "request is already closed")
	ErrNotPending       = fault.New(fault.InvalidState, "request is not pending")
	ErrNotAttended      = fault.New(fault.InvalidState, "request has not been attended")
	ErrVolunteerMissing = fault.New(fault.InvalidInput, "a volunteer is required for this status")
	ErrUnknownVolunteer = fault.New(fault.InvalidInput, "volunteer does not exist")
	ErrLocationRequired = fault.New(fault.InvalidInput, "location is required")
)
