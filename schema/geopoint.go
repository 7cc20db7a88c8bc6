package schema

import "time"

const (
	GeoPointCollection = "geo_points"
)

// GeoPoint is an entry of the proximity index
type GeoPoint struct {
	Kind      string    `bson:"kind"`
	RefID     string    `bson:"ref_id"`
	Location  *GeoJSON  `bson:"location"`
	UpdatedAt time.Time `bson:"updated_at"`
}
