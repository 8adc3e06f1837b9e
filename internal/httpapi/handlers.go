package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"voicecall-platform/internal/auth"
	"voicecall-platform/internal/calls"
	"voicecall-platform/internal/campaigns"
	"voicecall-platform/internal/dispatch"
	"voicecall-platform/internal/prompts"
	"voicecall-platform/internal/reporting"
	"voicecall-platform/pkg/logger"
)

// Services the handlers delegate to. Each is satisfied by the matching
// internal package's service type.

type BatchCaller interface {
	BatchCall(ctx context.Context, userID string, req dispatch.BatchRequest) (dispatch.BatchResult, error)
}

type CampaignReader interface {
	Get(ctx context.Context, userID, id string) (campaigns.Campaign, error)
	List(ctx context.Context, userID string) ([]campaigns.Campaign, error)
}

type CallLogReader interface {
	List(ctx context.Context, f calls.ListFilter) ([]calls.Entry, error)
}

type PromptService interface {
	List(ctx context.Context, userID string) ([]prompts.Prompt, error)
	Create(ctx context.Context, userID string, req prompts.CreateRequest) (prompts.Prompt, error)
}

type StatsReader interface {
	DashboardStats(ctx context.Context, userID string, req reporting.StatsRequest) (reporting.DashboardStats, error)
}

type LoginService interface {
	Login(ctx context.Context, username, password string) (auth.LoginResult, error)
	Logout(ctx context.Context, token string) error
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Batch     BatchCaller
	Campaigns CampaignReader
	CallLogs  CallLogReader
	Prompts   PromptService
	Stats     StatsReader
	Auth      LoginService

	// Health reports dependency readiness for /healthz.
	Health func(ctx context.Context) error
}

// --- Auth ---

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}
	res, err := h.Auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
			return
		}
		logger.FromGin(c).Error("login failed", slog.Any("err", err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) Logout(c *gin.Context) {
	tok, ok := auth.BearerToken(c.GetHeader("Authorization"))
	if !ok || h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}
	if err := h.Auth.Logout(c.Request.Context(), tok); err != nil {
		logger.FromGin(c).Error("logout failed", slog.Any("err", err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Health ---

func (h Handlers) Healthz(c *gin.Context) {
	if h.Health != nil {
		if err := h.Health(c.Request.Context()); err != nil {
			logger.FromGin(c).Warn("health check failed", slog.Any("err", err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// userID reads the principal injected by auth.RequireSession.
func userID(c *gin.Context) (string, bool) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil || strings.TrimSpace(uid) == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return "", false
	}
	return uid, true
}
