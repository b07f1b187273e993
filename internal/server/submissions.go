package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	enforcementdomain "github.com/smallbiznis/shopfinder/internal/enforcement/domain"
	submissiondomain "github.com/smallbiznis/shopfinder/internal/submission/domain"
)

const defaultSubmissionListLimit = 50

type listSubmissionsQuery struct {
	Status string `form:"status"`
	Limit  string `form:"limit"`
}

type reviewSubmissionRequest struct {
	Decision string `json:"decision"`
	Note     string `json:"note"`
}

type reviewSubmissionResponse struct {
	Submission submissiondomain.Response `json:"submission"`
	ShopID     *string                   `json:"shop_id,omitempty"`
}

// ListSubmissions defaults to the pending queue.
func (s *Server) ListSubmissions(c *gin.Context) {
	var query listSubmissionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	rawStatus := strings.TrimSpace(query.Status)
	if rawStatus == "" {
		rawStatus = string(submissiondomain.StatusPending)
	}
	status, err := submissiondomain.ParseStatus(rawStatus)
	if err != nil {
		AbortWithError(c, newValidationError("status", "invalid_status", "invalid status"))
		return
	}
	limit, err := parseLimit(query.Limit, defaultSubmissionListLimit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	items, err := s.enforcer.ListSubmissions(c.Request.Context(), submissiondomain.ListFilter{
		Status: &status,
		Limit:  limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := make([]submissiondomain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, item.Response())
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ReviewSubmission(c *gin.Context) {
	reviewerID, err := userIDFromContext(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	id, err := parseOptionalSnowflakeID(c.Param("id"))
	if err != nil || id == nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid submission id"))
		return
	}

	var req reviewSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	decision, err := submissiondomain.ParseDecision(req.Decision)
	if err != nil {
		AbortWithError(c, newValidationError("decision", "invalid_decision", "decision must be approve or reject"))
		return
	}

	result, err := s.enforcer.ReviewSubmission(c.Request.Context(), enforcementdomain.ReviewRequest{
		SubmissionID: *id,
		Decision:     decision,
		ReviewerID:   reviewerID,
		Note:         req.Note,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := reviewSubmissionResponse{Submission: result.Submission.Response()}
	if result.ShopID != nil {
		shopID := result.ShopID.String()
		resp.ShopID = &shopID
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
