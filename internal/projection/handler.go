package projection

import (
	"errors"
	"net/http"
	"time"

	httperr "github.com/aevon-lab/wmean/internal/core/errors"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all projection API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/weighted-mean/:principal_id", s.HandleQueryWeightedMean)
}

// HandleQueryWeightedMean handles GET /v1/weighted-mean/:principal_id
// Query parameters: rule, start, end, granularity
func (s *Service) HandleQueryWeightedMean(c *gin.Context) {
	var uri struct {
		PrincipalID string `uri:"principal_id" binding:"required"`
	}
	var query struct {
		Rule        string    `form:"rule" binding:"required"`
		Start       time.Time `form:"start" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
		End         time.Time `form:"end" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
		Granularity string    `form:"granularity"`
	}

	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid path parameters",
			Details:   err.Error(),
		})
		return
	}

	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return
	}

	req := WeightedMeanQueryRequest{
		PrincipalID: uri.PrincipalID,
		Rule:        query.Rule,
		Start:       query.Start,
		End:         query.End,
		Granularity: query.Granularity,
	}

	resp, err := s.QueryWeightedMean(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidQuery):
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidQueryError,
				Message:   "Invalid weighted mean query",
				Details:   err.Error(),
			})
		case errors.Is(err, ErrRuleNotFound):
			c.JSON(http.StatusNotFound, httperr.ErrorResponse{
				ErrorType: httperr.HttpRuleNotFoundError,
				Message:   "Unknown aggregation rule",
				Details:   err.Error(),
			})
		case errors.Is(err, ErrTooManyEvents):
			c.JSON(http.StatusUnprocessableEntity, httperr.ErrorResponse{
				ErrorType: httperr.HttpTooManyEventsError,
				Message:   "Range too large for a live fold; narrow it or use granularity=window",
				Details:   err.Error(),
			})
		default:
			c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
				ErrorType: httperr.HttpInternalError,
				Message:   "Failed to query weighted mean",
				Details:   err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}
