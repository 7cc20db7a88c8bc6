package schema

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/nearhelp/nearhelp-api/consts"
	"github.com/nearhelp/nearhelp-api/fault"
)

var (
	ErrInvalidCoordinates    = fault.New(fault.InvalidInput, "invalid coordinate values")
	ErrInvalidCategory       = fault.New(fault.InvalidInput, "unknown assistance category")
	ErrDescriptionRequired   = fault.New(fault.InvalidInput, "description is required for this category")
	ErrDescriptionTooLong    = fault.New(fault.InvalidInput, "description is too long")
	ErrInvalidRating         = fault.New(fault.InvalidInput, "rating must be an integer between 1 and 5")
	ErrFeedbackTooLong       = fault.New(fault.InvalidInput, "feedback is too long")
	ErrInvalidStatus         = fault.New(fault.InvalidInput, "invalid status")
	ErrInvalidRole           = fault.New(fault.InvalidInput, "invalid role")
	ErrAssigneeMismatch      = fault.New(fault.InvalidState, "assigned volunteer does not match status")
	ErrOutcomeBeforeFinished = fault.New(fault.InvalidState, "rating and feedback are only kept for finished requests")
)

// ValidateLocation checks that latitude lies in [-90, 90] and longitude
// in [-180, 180]
func ValidateLocation(loc Location) error {
	if math.IsNaN(loc.Latitude) || math.IsNaN(loc.Longitude) {
		return ErrInvalidCoordinates
	}
	if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}

// ValidateNewRequest checks the client supplied part of a new request
func ValidateNewRequest(category Category, description string, loc Location) error {
	if !category.Valid() {
		return ErrInvalidCategory
	}

	if category == CategoryOther && strings.TrimSpace(description) == "" {
		return ErrDescriptionRequired
	}

	if utf8.RuneCountInString(description) > consts.MAX_DESCRIPTION_LENGTH {
		return ErrDescriptionTooLong
	}

	return ValidateLocation(loc)
}

// ValidateRating accepts a missing rating or an integer in [1, 5]
func ValidateRating(rating *int) error {
	if rating == nil {
		return nil
	}
	if *rating < consts.MIN_RATING || *rating > consts.MAX_RATING {
		return ErrInvalidRating
	}
	return nil
}

func ValidateFeedback(feedback *string) error {
	if feedback == nil {
		return nil
	}
	if utf8.RuneCountInString(*feedback) > consts.MAX_FEEDBACK_LENGTH {
		return ErrFeedbackTooLong
	}
	return nil
}

// ValidateRequest checks the invariants a stored request must hold
// regardless of the backing store.
func ValidateRequest(r *Request) error {
	if !r.Status.Valid() {
		return ErrInvalidStatus
	}

	if err := ValidateNewRequest(r.Category, r.Description, r.Location); err != nil {
		return err
	}

	if r.Status.HasAssignee() != (r.AssignedVolunteer != nil) {
		return ErrAssigneeMismatch
	}

	if r.Status != StatusFinished && (r.Rating != nil || r.Feedback != nil) {
		return ErrOutcomeBeforeFinished
	}

	if err := ValidateRating(r.Rating); err != nil {
		return err
	}

	return ValidateFeedback(r.Feedback)
}
