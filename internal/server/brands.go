package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	branddomain "github.com/smallbiznis/shopfinder/internal/brand/domain"
	enforcementdomain "github.com/smallbiznis/shopfinder/internal/enforcement/domain"
	shopdomain "github.com/smallbiznis/shopfinder/internal/shop/domain"
)

const (
	defaultBrandListLimit   = 50
	defaultBrandActionLimit = 20
)

type listBrandsQuery struct {
	Status string `form:"status"`
	Query  string `form:"q"`
	Limit  string `form:"limit"`
}

type updateBrandRequest struct {
	Status           string `json:"status"`
	Reason           string `json:"reason"`
	ApplyRetroactive bool   `json:"apply_retroactive"`
	DisplayName      string `json:"display_name"`
}

type brandDetailResponse struct {
	Brand   branddomain.Response         `json:"brand"`
	Actions []branddomain.ActionResponse `json:"actions"`
}

type updateBrandResponse struct {
	Brand         branddomain.Response        `json:"brand"`
	Action        *branddomain.ActionResponse `json:"action,omitempty"`
	AffectedShops int64                       `json:"affected_shops"`
}

func (s *Server) ListBrands(c *gin.Context) {
	var query listBrandsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	filter := branddomain.ListFilter{
		Search: strings.TrimSpace(query.Query),
		Limit:  defaultBrandListLimit,
	}
	if strings.TrimSpace(query.Status) != "" {
		status, err := branddomain.ParseStatus(query.Status)
		if err != nil {
			AbortWithError(c, newValidationError("status", "invalid_status", "invalid status"))
			return
		}
		filter.Status = &status
	}
	limit, err := parseLimit(query.Limit, defaultBrandListLimit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	filter.Limit = limit

	items, err := s.enforcer.ListBrands(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := make([]branddomain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, item.Response())
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetBrand(c *gin.Context) {
	actionLimit, err := parseLimit(c.Query("actions"), defaultBrandActionLimit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	detail, err := s.enforcer.GetBrand(c.Request.Context(), c.Param("brandKey"), actionLimit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := brandDetailResponse{
		Brand:   detail.Brand.Response(),
		Actions: make([]branddomain.ActionResponse, 0, len(detail.Actions)),
	}
	for _, action := range detail.Actions {
		resp.Actions = append(resp.Actions, action.Response())
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateBrand(c *gin.Context) {
	actorID, err := userIDFromContext(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateBrandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	status, err := branddomain.ParseStatus(req.Status)
	if err != nil {
		AbortWithError(c, newValidationError("status", "invalid_status", "status must be one of unknown, allowed, blocked, needs_review"))
		return
	}

	result, err := s.enforcer.SetBrandStatus(c.Request.Context(), enforcementdomain.SetBrandStatusRequest{
		BrandKey:         c.Param("brandKey"),
		DisplayName:      req.DisplayName,
		Status:           status,
		Reason:           req.Reason,
		ApplyRetroactive: req.ApplyRetroactive,
		ActorID:          actorID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := updateBrandResponse{
		Brand:         result.Brand.Response(),
		AffectedShops: result.AffectedShops,
	}
	if result.Action != nil {
		action := result.Action.Response()
		resp.Action = &action
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) PreviewBrandScore(c *gin.Context) {
	var req shopdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.enforcer.PreviewScore(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}
