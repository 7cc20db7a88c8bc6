package schema

const (
	GeoJSONPoint = "Point"
)

type Location struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
	Address   string  `json:"address,omitempty" bson:"address,omitempty"`
}

// GeoJSON - mongo location format, coordinates are [longitude, latitude]
type GeoJSON struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
}

// NewGeoPoint converts a location into a GeoJSON point
func NewGeoPoint(loc Location) *GeoJSON {
	return &GeoJSON{
		Type:        GeoJSONPoint,
		Coordinates: []float64{loc.Longitude, loc.Latitude},
	}
}

// Location converts a GeoJSON point back. It returns nil for a nil or
// malformed point.
func (g *GeoJSON) Location() *Location {
	if g == nil || len(g.Coordinates) < 2 {
		return nil
	}
	return &Location{
		Longitude: g.Coordinates[0],
		Latitude:  g.Coordinates[1],
	}
}
