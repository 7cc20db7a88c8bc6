package api

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nearhelp/nearhelp-api/schema"
)

// parseGeoPosition will parse latitude and longitude from the geo-position string
func parseGeoPosition(geoPosition string) (schema.Location, error) {
	positions := strings.Split(geoPosition, ";")

	if len(positions) != 2 {
		return schema.Location{}, fmt.Errorf("invalid geo-position value")
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(positions[0]), 64)
	if err != nil {
		return schema.Location{}, err
	}

	long, err := strconv.ParseFloat(strings.TrimSpace(positions[1]), 64)
	if err != nil {
		return schema.Location{}, err
	}

	loc := schema.Location{Latitude: lat, Longitude: long}
	if err := schema.ValidateLocation(loc); err != nil {
		return schema.Location{}, err
	}

	return loc, nil
}

// updateGeoPositionMiddleware is a middleware to store geo-position for every
// api requests from users
func (s *Server) updateGeoPositionMiddleware(c *gin.Context) {
	gp := c.GetHeader("Geo-Position")
	requester := c.GetString("requester")

	if gp != "" && requester != "" {
		if loc, err := parseGeoPosition(gp); err == nil {
			if _, err := s.matcher.UpdateVolunteerLocation(c, requester, loc); err != nil {
				c.Error(err)
			}
		} else {
			c.Error(err)
		}
	}
	c.Next()
}
