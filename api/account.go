package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nearhelp/nearhelp-api/schema"
)

type locationParams struct {
	Latitude  *float64 `json:"latitude" form:"latitude"`
	Longitude *float64 `json:"longitude" form:"longitude"`
	Address   string   `json:"address" form:"address"`
}

// location returns the location described by the params, or nil when no
// coordinates are given
func (p locationParams) location() (*schema.Location, error) {
	if p.Latitude == nil && p.Longitude == nil {
		return nil, nil
	}
	if p.Latitude == nil || p.Longitude == nil {
		return nil, schema.ErrInvalidCoordinates
	}

	loc := schema.Location{
		Latitude:  *p.Latitude,
		Longitude: *p.Longitude,
		Address:   strings.TrimSpace(p.Address),
	}
	if err := schema.ValidateLocation(loc); err != nil {
		return nil, err
	}
	return &loc, nil
}

// registerUser is called by the identity subsystem when an account is
// created on its side
func (s *Server) registerUser(c *gin.Context) {
	logger := log.WithField("api", "registerUser")

	var params struct {
		ID          string      `json:"id"`
		Role        schema.Role `json:"role" binding:"required"`
		Name        string      `json:"name"`
		Email       string      `json:"email"`
		Phone       string      `json:"phone"`
		Language    string      `json:"language"`
		DeviceToken string      `json:"device_token"`
		locationParams
	}

	if err := c.ShouldBindJSON(&params); err != nil {
		logger.WithError(err).Error(errorInvalidParameters.Message)
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters)
		return
	}

	if !params.Role.Valid() {
		abortWithError(c, schema.ErrInvalidRole)
		return
	}

	loc, err := params.location()
	if err != nil {
		abortWithError(c, err)
		return
	}

	if params.ID == "" {
		params.ID = uuid.New().String()
	}

	u := &schema.User{
		ID:          params.ID,
		Role:        params.Role,
		Name:        strings.TrimSpace(params.Name),
		Email:       strings.ToLower(strings.TrimSpace(params.Email)),
		Phone:       strings.TrimSpace(params.Phone),
		Language:    params.Language,
		DeviceToken: params.DeviceToken,
		Active:      true,
	}
	if loc != nil {
		now := time.Now().UTC()
		u.Location = schema.NewGeoPoint(*loc)
		u.LocationUpdatedAt = &now
	}

	if err := s.store.CreateUser(c, u); err != nil {
		abortWithError(c, err)
		return
	}

	if err := s.matcher.SyncVolunteer(c, u); err != nil {
		c.Error(err)
	}

	responseOK(c, gin.H{
		"result": u,
	})
}

// accountDetail is the API to query the profile of the caller
func (s *Server) accountDetail(c *gin.Context) {
	u, err := s.store.GetUser(c, c.GetString("requester"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	responseOK(c, gin.H{
		"result": u,
	})
}

// accountUpdateLocation is the API for a user to report where it is
func (s *Server) accountUpdateLocation(c *gin.Context) {
	var params locationParams

	if err := c.ShouldBindJSON(&params); err != nil {
		abortWithEncoding(c, http.StatusBadRequest, errorCannotParseRequest, err)
		return
	}

	loc, err := params.location()
	if err != nil {
		abortWithError(c, err)
		return
	}
	if loc == nil {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters)
		return
	}

	u, err := s.matcher.UpdateVolunteerLocation(c, c.GetString("requester"), *loc)
	if err != nil {
		abortWithError(c, err)
		return
	}

	responseOK(c, gin.H{
		"result": u,
	})
}

// accountUpdateDeviceToken registers the push endpoint of the caller
func (s *Server) accountUpdateDeviceToken(c *gin.Context) {
	var params struct {
		DeviceToken string `json:"device_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&params); err != nil {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters, err)
		return
	}

	if err := s.store.UpdateDeviceToken(c, c.GetString("requester"), params.DeviceToken); err != nil {
		abortWithError(c, err)
		return
	}

	responseOK(c, gin.H{"result": "OK"})
}
