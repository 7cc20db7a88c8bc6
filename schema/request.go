package schema

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusAttended  Status = "attended"
	StatusFinished  Status = "finished"
	StatusCancelled Status = "cancelled"
)

// AllStatuses lists every status in lifecycle order
var AllStatuses = []Status{StatusPending, StatusAttended, StatusFinished, StatusCancelled}

// transitions holds the only edges reachable through normal operations
var transitions = map[Status][]Status{
	StatusPending:  {StatusAttended, StatusCancelled},
	StatusAttended: {StatusFinished},
}

func (s Status) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusCancelled
}

// HasAssignee reports whether a request in this status carries an
// assigned volunteer.
func (s Status) HasAssignee() bool {
	return s == StatusAttended || s == StatusFinished
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, n := range transitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

type Category string

const (
	CategoryNavigation     Category = "navigation"
	CategoryReading        Category = "reading"
	CategoryShopping       Category = "shopping"
	CategoryTransportation Category = "transportation"
	CategoryMedical        Category = "medical"
	CategoryOther          Category = "other"
)

var (
	categoryLock sync.RWMutex
	categories   = map[Category]bool{
		CategoryNavigation:     true,
		CategoryReading:        true,
		CategoryShopping:       true,
		CategoryTransportation: true,
		CategoryMedical:        true,
		CategoryOther:          true,
	}
)

// RegisterCategory adds an assistance category on top of the built-in ones
func RegisterCategory(c Category) {
	if c == "" {
		return
	}
	categoryLock.Lock()
	defer categoryLock.Unlock()
	categories[c] = true
}

// RegisterCategories registers the extra categories listed under the
// request.categories config key. Names are trimmed and lowercased.
func RegisterCategories(names []string) {
	for _, name := range names {
		RegisterCategory(Category(strings.ToLower(strings.TrimSpace(name))))
	}
}

func (c Category) Valid() bool {
	categoryLock.RLock()
	defer categoryLock.RUnlock()
	return categories[c]
}

// Categories returns the known categories sorted by name
func Categories() []Category {
	categoryLock.RLock()
	defer categoryLock.RUnlock()

	result := make([]Category, 0, len(categories))
	for c := range categories {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// Request is an assistance request raised by a requester
type Request struct {
	ID                 string         `json:"id" gorm:"type:uuid;primary_key" sql:"default:uuid_generate_v4()"`
	Owner              string         `json:"owner" gorm:"not null;index"`
	Category           Category       `json:"category" gorm:"not null"`
	Description        string         `json:"description"`
	Location           Location       `json:"location" gorm:"embedded;embedded_prefix:location_"`
	Status             Status         `json:"status" gorm:"not null;index" sql:"default:'pending'"`
	AssignedVolunteer  *string        `json:"assigned_volunteer" gorm:"index"`
	NotifiedVolunteers pq.StringArray `json:"-" gorm:"type:text[]"`
	Rating             *int           `json:"rating,omitempty"`
	Feedback           *string        `json:"feedback,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func (r *Request) IsOwner(userID string) bool {
	return r.Owner == userID
}

func (r *Request) IsAssignee(userID string) bool {
	return r.AssignedVolunteer != nil && *r.AssignedVolunteer == userID
}

func (r *Request) WasNotified(userID string) bool {
	for _, v := range r.NotifiedVolunteers {
		if v == userID {
			return true
		}
	}
	return false
}
