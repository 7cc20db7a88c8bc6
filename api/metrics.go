package api

import (
	"github.com/gin-gonic/gin"

	"github.com/nearhelp/nearhelp-api/schema"
)

// metricRequests reports the number of requests in every status
func (s *Server) metricRequests(c *gin.Context) {
	counts, err := s.store.CountByStatus(c)
	if err != nil {
		abortWithError(c, err)
		return
	}

	result := make(map[schema.Status]int64, len(schema.AllStatuses))
	var total int64
	for _, status := range schema.AllStatuses {
		result[status] = counts[status]
		total += counts[status]
	}

	responseOK(c, gin.H{
		"result": result,
		"total":  total,
	})
}
