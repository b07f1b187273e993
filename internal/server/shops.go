package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/shopfinder/internal/chainscore"
	enforcementdomain "github.com/smallbiznis/shopfinder/internal/enforcement/domain"
	shopdomain "github.com/smallbiznis/shopfinder/internal/shop/domain"
)

const contextBrandDecisionKey = "brand_decision"

// CreateShop answers 201 for a listed shop and 202 for one held for review.
func (s *Server) CreateShop(c *gin.Context) {
	userID, err := userIDFromContext(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req shopdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.enforcer.SubmitShop(c.Request.Context(), enforcementdomain.SubmitRequest{
		UserID:  userID,
		Request: req,
	})
	if err != nil {
		var enfErr *enforcementdomain.Error
		if errors.As(err, &enfErr) && (enfErr.Kind == enforcementdomain.KindChainNotAllowed || enfErr.Kind == enforcementdomain.KindBrandBlocked) {
			c.Set(contextBrandDecisionKey, string(chainscore.DecisionBlock))
		}
		AbortWithError(c, err)
		return
	}

	if result.Decision != "" {
		c.Set(contextBrandDecisionKey, string(result.Decision))
	}
	status := http.StatusCreated
	if result.Status == enforcementdomain.SubmitQueued {
		status = http.StatusAccepted
	}
	c.JSON(status, gin.H{"data": result.Response()})
}
