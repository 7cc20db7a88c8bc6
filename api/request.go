package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nearhelp/nearhelp-api/consts"
	"github.com/nearhelp/nearhelp-api/lifecycle"
	"github.com/nearhelp/nearhelp-api/matching"
	"github.com/nearhelp/nearhelp-api/schema"
)

type pageParams struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

// createRequest is the API for a requester to ask for help
func (s *Server) createRequest(c *gin.Context) {
	var params struct {
		Category    schema.Category `json:"category"`
		Description string          `json:"description"`
		locationParams
	}

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
		abortWithError(c, schema.ErrInvalidCoordinates)
		return
	}

	r, err := s.engine.Create(c, caller(c), lifecycle.CreateParams{
		Category:    params.Category,
		Description: params.Description,
		Location:    *loc,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	responseOK(c, gin.H{
		"result": r,
	})
}

// listOwnRequests returns the requests raised by the caller
func (s *Server) listOwnRequests(c *gin.Context) {
	var params pageParams
	if err := c.ShouldBindQuery(&params); err != nil {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters, err)
		return
	}

	page, err := s.engine.ListOwned(c, caller(c), params.Page, params.Limit)
	if err != nil {
		abortWithError(c, err)
		return
	}

	responseOK(c, gin.H{
		"result": page,
	})
}

// nearbyRequests ranks pending requests around the volunteer
func (s *Server) nearbyRequests(c *gin.Context) {
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

	requests, err := s.engine.Nearby(c, caller(c), loc, matching.Options{
		MaxDistance: params.MaxDistance,
		Limit:       params.Limit,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	responseOK(c, gin.H{
		"result": requests,
	})
}

// notifiedRequests returns the pending requests the volunteer was alerted to
func (s *Server) notifiedRequests(c *gin.Context) {
	var params pageParams
	if err := c.ShouldBindQuery(&params); err != nil {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters, err)
		return
	}

	page, err := s.engine.ListNotified(c, caller(c), params.Page, params.Limit)
	if err != nil {
		abortWithError(c, err)
		return
	}

	responseOK(c, gin.H{
		"result": page,
	})
}

func (s *Server) getRequest(c *gin.Context) {
	r, err := s.engine.Get(c, caller(c), c.Param("requestID"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	responseOK(c, gin.H{
		"result": r,
	})
}

// attendRequest is the API for a volunteer to take a pending request
func (s *Server) attendRequest(c *gin.Context) {
	r, err := s.engine.Attend(c, caller(c), c.Param("requestID"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	responseOK(c, gin.H{
		"result": r,
	})
}

func (s *Server) cancelRequest(c *gin.Context) {
	r, err := s.engine.Cancel(c, caller(c), c.Param("requestID"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	responseOK(c, gin.H{
		"result": r,
	})
}

// finishRequest closes an attended request with an optional rating
func (s *Server) finishRequest(c *gin.Context) {
	var params struct {
		Rating   *int    `json:"rating"`
		Feedback *string `json:"feedback"`
	}

	// the body is optional, an empty one decodes to io.EOF
	if err := c.ShouldBindJSON(&params); err != nil && err != io.EOF {
		abortWithEncoding(c, http.StatusBadRequest, errorCannotParseRequest, err)
		return
	}

	r, err := s.engine.Finish(c, caller(c), c.Param("requestID"), lifecycle.FinishParams{
		Rating:   params.Rating,
		Feedback: params.Feedback,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	responseOK(c, gin.H{
		"result": r,
	})
}

// listTasks returns the ongoing and completed requests of a volunteer
func (s *Server) listTasks(c *gin.Context) {
	var params pageParams
	if err := c.ShouldBindQuery(&params); err != nil {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters, err)
		return
	}

	tasks, err := s.engine.ListTasks(c, caller(c), params.Page, params.Limit)
	if err != nil {
		abortWithError(c, err)
		return
	}

	responseOK(c, gin.H{
		"result": tasks,
	})
}
