package schema

import (
	"encoding/json"
	"time"
)

const (
	UserCollection = "users"
)

type Role string

const (
	RoleRequester Role = "requester"
	RoleVolunteer Role = "volunteer"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleRequester, RoleVolunteer, RoleAdmin:
		return true
	}
	return false
}

// User is an account known to the matching core. Users are soft
// deactivated and never removed.
type User struct {
	ID                string     `json:"id" bson:"_id"`
	Role              Role       `json:"role" bson:"role"`
	Name              string     `json:"name" bson:"name"`
	Email             string     `json:"email,omitempty" bson:"email,omitempty"`
	Phone             string     `json:"phone,omitempty" bson:"phone,omitempty"`
	Location          *GeoJSON   `json:"-" bson:"location,omitempty"`
	LocationUpdatedAt *time.Time `json:"location_updated_at,omitempty" bson:"location_updated_at,omitempty"`
	DeviceToken       string     `json:"-" bson:"device_token,omitempty"`
	Language          string     `json:"language,omitempty" bson:"language,omitempty"`
	Active            bool       `json:"active" bson:"active"`
	CreatedAt         time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" bson:"updated_at"`
}

// LastLocation returns the last reported location of the user or nil
func (u *User) LastLocation() *Location {
	return u.Location.Location()
}

func (u *User) HasDeviceToken() bool {
	return u.DeviceToken != ""
}

// IsAvailableVolunteer reports whether the user may be matched to requests
func (u *User) IsAvailableVolunteer() bool {
	return u.Active && u.Role == RoleVolunteer && u.LastLocation() != nil
}

func (u User) MarshalJSON() ([]byte, error) {
	type plain User
	return json.Marshal(struct {
		plain
		Location       *Location `json:"location,omitempty"`
		HasDeviceToken bool      `json:"has_device_token"`
	}{
		plain:          plain(u),
		Location:       u.LastLocation(),
		HasDeviceToken: u.HasDeviceToken(),
	})
}
