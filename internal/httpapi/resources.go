package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"voicecall-platform/internal/calls"
	"voicecall-platform/internal/campaigns"
	"voicecall-platform/internal/prompts"
	"voicecall-platform/internal/reporting"
	"voicecall-platform/pkg/logger"
)

const defaultListLimit = 100

// --- Campaigns ---

type campaignView struct {
	campaigns.Campaign
	SuccessRate float64 `json:"success_rate"`
}

func viewOf(c campaigns.Campaign) campaignView {
	return campaignView{Campaign: c, SuccessRate: c.SuccessRate()}
}

func (h Handlers) ListCampaigns(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	list, err := h.Campaigns.List(c.Request.Context(), uid)
	if err != nil {
		internalError(c, "campaign list failed", err)
		return
	}
	out := make([]campaignView, 0, len(list))
	for _, cp := range list {
		out = append(out, viewOf(cp))
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": out})
}

// GetCampaign returns one campaign with its call logs, newest first.
func (h Handlers) GetCampaign(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id := c.Param("id")
	cp, err := h.Campaigns.Get(c.Request.Context(), uid, id)
	if err != nil {
		if errors.Is(err, campaigns.ErrNotFound) || errors.Is(err, campaigns.ErrInvalidArgument) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
			return
		}
		internalError(c, "campaign lookup failed", err)
		return
	}
	logs, err := h.CallLogs.List(c.Request.Context(), calls.ListFilter{UserID: uid, CampaignID: cp.ID})
	if err != nil {
		internalError(c, "call log list failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaign": viewOf(cp), "call_logs": logs})
}

// --- Call logs ---

func (h Handlers) ListCallLogs(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 1000"})
		return
	}
	logs, err := h.CallLogs.List(c.Request.Context(), calls.ListFilter{
		UserID:     uid,
		CampaignID: c.Query("campaign_id"),
		Status:     calls.Status(c.Query("status")),
		Limit:      limit,
	})
	if err != nil {
		internalError(c, "call log list failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"call_logs": logs})
}

// --- Prompts ---

func (h Handlers) ListPrompts(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	list, err := h.Prompts.List(c.Request.Context(), uid)
	if err != nil {
		internalError(c, "prompt list failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prompts": list})
}

func (h Handlers) CreatePrompt(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req prompts.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "prompt_name, first_message, system_prompt required"})
		return
	}
	p, err := h.Prompts.Create(c.Request.Context(), uid, req)
	if err != nil {
		if errors.Is(err, prompts.ErrInvalidArgument) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		internalError(c, "prompt create failed", err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// --- Dashboard ---

// DashboardStats accepts optional RFC 3339 from/to query parameters.
func (h Handlers) DashboardStats(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req reporting.StatsRequest
	if from, to := c.Query("from"), c.Query("to"); from != "" || to != "" {
		f, ferr := time.Parse(time.RFC3339, from)
		t, terr := time.Parse(time.RFC3339, to)
		if ferr != nil || terr != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from and to must both be RFC 3339 timestamps"})
			return
		}
		req.Range = reporting.TimeRange{From: f, To: t}
	}

	stats, err := h.Stats.DashboardStats(c.Request.Context(), uid, req)
	if err != nil {
		if errors.Is(err, reporting.ErrInvalidRequest) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid range"})
			return
		}
		internalError(c, "dashboard stats failed", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultListLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > calls.MaxListLimit {
		return 0, errors.New("limit out of range")
	}
	return n, nil
}

func internalError(c *gin.Context, msg string, err error) {
	logger.FromGin(c).Error(msg, slog.Any("err", err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": msg})
}
