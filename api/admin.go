package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nearhelp/nearhelp-api/consts"
	"github.com/nearhelp/nearhelp-api/matching"
	"github.com/nearhelp/nearhelp-api/schema"
)

func (s *Server) adminListRequests(c *gin.Context) {
	var params struct {
		pageParams
		Status schema.Status `form:"status"`
	}

	if err := c.ShouldBindQuery(&params); err != nil {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters, err)
		return
	}

	page, err := s.engine.ListAll(c, caller(c), params.Status, params.Page, params.Limit)
	if err != nil {
		abortWithError(c, err)
		return
	}

	responseOK(c, gin.H{
		"result": page,
	})
}

// adminSetStatus overrides the status of a request
func (s *Server) adminSetStatus(c *gin.Context) {
	var params struct {
		Status      schema.Status `json:"status" binding:"required"`
		VolunteerID string        `json:"volunteer_id"`
	}

	if err := c.ShouldBindJSON(&params); err != nil {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters, err)
		return
	}

	r, err := s.engine.AdminSetStatus(c, caller(c), c.Param("requestID"), params.Status, params.VolunteerID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	responseOK(c, gin.H{
		"result": r,
	})
}

// adminListUsers lists the users, optionally of one role
func (s *Server) adminListUsers(c *gin.Context) {
	var params struct {
		pageParams
		Role schema.Role `form:"role"`
	}

	if err := c.ShouldBindQuery(&params); err != nil {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters, err)
		return
	}

	page, err := s.engine.ListUsers(c, caller(c), params.Role, params.Page, params.Limit)
	if err != nil {
		abortWithError(c, err)
		return
	}

	responseOK(c, gin.H{
		"result": page,
	})
}

// adminDeactivateUser soft deletes a user. Its requests are kept.
func (s *Server) adminDeactivateUser(c *gin.Context) {
	u, err := s.engine.DeactivateUser(c, caller(c), c.Param("userID"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	responseOK(c, gin.H{
		"result": u,
	})
}

// adminPreviewCandidates shows the volunteers a request at a point would reach
func (s *Server) adminPreviewCandidates(c *gin.Context) {
	var params struct {
		locationParams
		MaxDistance float64 `form:"max_distance"`
		Limit       int     `form:"limit"`
	}

	if err := c.ShouldBindQuery(&params); err != nil {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters, err)
		return
	}

	if params.MaxDistance < 0 || params.MaxDistance > consts.MAX_QUERY_DISTANCE ||
		params.Limit < 0 || params.Limit > consts.MAX_PAGE_SIZE {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters)
		return
	}

	loc, err := params.location()
	if err != nil {
		abortWithError(c, err)
		return
	}
	if loc == nil {
		abortWithError(c, schema.ErrInvalidCoordinates)
		return
	}

	candidates, err := s.engine.PreviewCandidates(c, caller(c), *loc, matching.Options{
		MaxDistance: params.MaxDistance,
		Limit:       params.Limit,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	responseOK(c, gin.H{
		"result": candidates,
	})
}
