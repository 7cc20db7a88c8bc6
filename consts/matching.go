package consts

// distances are in meters
const (
	MATCHING_DISTANCE_RANGE = 5000
	BROWSE_DISTANCE_RANGE   = 10000
	MAX_QUERY_DISTANCE      = 50000

	CANDIDATE_LIMIT = 20
)

// paging
const (
	DEFAULT_PAGE_SIZE = 10
	MAX_PAGE_SIZE     = 100
)

// free text limits in characters
const (
	MAX_DESCRIPTION_LENGTH = 1000
	MAX_FEEDBACK_LENGTH    = 1000
)

const (
	MIN_RATING = 1
	MAX_RATING = 5
)
