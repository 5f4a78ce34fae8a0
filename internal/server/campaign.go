package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	campaigndomain "github.com/smallbiznis/blastwave/internal/campaign/domain"
)

type processCampaignResponse struct {
	Message string `json:"message"`
	campaigndomain.ProcessResult
}

func (s *Server) processCampaign(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrValidation)
		return
	}

	ctx := c.Request.Context()

	campaign, err := s.campaignSvc.Get(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	tenantID := campaign.TenantID.String()
	if !s.processLimiter.Allow(ctx, tenantID) {
		s.obsMetrics.RecordRateLimitDenied(ctx, tenantID, c.FullPath(), "token_bucket")
		AbortWithError(c, ErrRateLimited)
		return
	}

	result, err := s.campaignSvc.ProcessCampaign(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, processCampaignResponse{
		Message:       "batch processed",
		ProcessResult: *result,
	})
}
