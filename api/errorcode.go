package api

import (
	"errors"
	"net/http"

	"github.com/nearhelp/nearhelp-api/fault"
	"github.com/nearhelp/nearhelp-api/lifecycle"
	"github.com/nearhelp/nearhelp-api/store"
)

var (
	errorMessageMap = map[int64]string{
		999:  "internal server error",
		1001: "invalid authorization format",
		1003: "invalid token",

		1006: "invalid value of client version",
		1007: "API for this client version has been discontinued",

		1010: "invalid parameters",
		1011: "cannot parse request",

		1100: store.ErrUserExists.Error(),
		1101: store.ErrUserNotFound.Error(),
		1102: lifecycle.ErrInactiveCaller.Error(),
		1103: lifecycle.ErrRoleNotAllowed.Error(),
		1104: lifecycle.ErrLocationRequired.Error(),

		1200: store.ErrRequestNotFound.Error(),
		1201: store.ErrStatusMismatch.Error(),
		1202: lifecycle.ErrAlreadyAttended.Error(),
		1203: lifecycle.ErrNotOwner.Error(),
		1204: lifecycle.ErrNoAccess.Error(),
		1205: "request is in a wrong status for this operation",

		1300: "service temporarily unavailable",
		1301: "resource not found",
		1302: "operation not allowed",
		1303: "conflicting update",
	}

	errorInternalServer             = errorJSON(999)
	errorInvalidAuthorizationFormat = errorJSON(1001)
	errorInvalidToken               = errorJSON(1003)
	errorInvalidClientVersion       = errorJSON(1006)
	errorUnsupportedClientVersion   = errorJSON(1007)

	errorInvalidParameters  = errorJSON(1010)
	errorCannotParseRequest = errorJSON(1011)

	errorUserTaken       = errorJSON(1100)
	errorUserNotFound    = errorJSON(1101)
	errorUserInactive    = errorJSON(1102)
	errorRoleNotAllowed  = errorJSON(1103)
	errorUnknownLocation = errorJSON(1104)

	errorRequestNotFound = errorJSON(1200)
	errorStatusChanged   = errorJSON(1201)
	errorAlreadyAttended = errorJSON(1202)
	errorNotOwner        = errorJSON(1203)
	errorNoAccess        = errorJSON(1204)
	errorWrongStatus     = errorJSON(1205)

	errorServiceUnavailable = errorJSON(1300)
	errorNotFound           = errorJSON(1301)
	errorForbidden          = errorJSON(1302)
	errorConflict           = errorJSON(1303)
)

// ErrorResponse is the body of every failed call
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    int64  `json:"code"`
	Message string `json:"msg"`
}

// errorJSON converts an error code to a standardized error object
func errorJSON(code int64) ErrorResponse {
	var message string
	if msg, ok := errorMessageMap[code]; ok {
		message = msg
	} else {
		message = "unknown"
	}

	return ErrorResponse{
		Code:    code,
		Message: message,
	}
}

// withMessage keeps the code of e but reports the message of err
func withMessage(e ErrorResponse, err error) ErrorResponse {
	e.Message = fault.Message(err)
	return e
}

// sentinelErrors binds the errors with a dedicated code
var sentinelErrors = map[error]ErrorResponse{
	store.ErrUserExists:           errorUserTaken,
	store.ErrUserNotFound:         errorUserNotFound,
	store.ErrRequestNotFound:      errorRequestNotFound,
	store.ErrStatusMismatch:       errorStatusChanged,
	lifecycle.ErrInactiveCaller:   errorUserInactive,
	lifecycle.ErrRoleNotAllowed:   errorRoleNotAllowed,
	lifecycle.ErrLocationRequired: errorUnknownLocation,
	lifecycle.ErrAlreadyAttended:  errorAlreadyAttended,
	lifecycle.ErrNotOwner:         errorNotOwner,
	lifecycle.ErrOwnRequest:       withMessage(errorNoAccess, lifecycle.ErrOwnRequest),
	lifecycle.ErrNoAccess:         errorNoAccess,
}

// kindErrors holds the fallback body and status of every error kind
var kindErrors = map[fault.Kind]struct {
	status int
	body   ErrorResponse
}{
	fault.InvalidInput: {http.StatusBadRequest, errorInvalidParameters},
	fault.NotFound:     {http.StatusNotFound, errorNotFound},
	fault.Forbidden:    {http.StatusForbidden, errorForbidden},
	fault.Conflict:     {http.StatusConflict, errorConflict},
	fault.InvalidState: {http.StatusUnprocessableEntity, errorWrongStatus},
}

// errorResponse maps an error returned by the core to a status code and body
func errorResponse(err error) (int, ErrorResponse) {
	if errors.Is(err, lifecycle.ErrUnknownCaller) {
		return http.StatusUnauthorized, errorUserNotFound
	}

	kind := fault.KindOf(err)
	switch kind {
	case fault.Unavailable:
		return http.StatusServiceUnavailable, errorServiceUnavailable
	case fault.Internal:
		return http.StatusInternalServerError, errorInternalServer
	}

	fallback, ok := kindErrors[kind]
	if !ok {
		return http.StatusInternalServerError, errorInternalServer
	}

	for sentinel, body := range sentinelErrors {
		if errors.Is(err, sentinel) {
			return fallback.status, body
		}
	}

	return fallback.status, withMessage(fallback.body, err)
}
