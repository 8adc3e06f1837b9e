package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"voicecall-platform/pkg/logger"
)

const maxBodyBytes = 1 << 20

// SignatureAudit records rejected deliveries.
type SignatureAudit interface {
	LogSignatureRejected(ctx context.Context, ip, reason string) error
}

// Handler is the gin entrypoint for POST /webhooks/vapi.
type Handler struct {
	router   *Router
	verifier Verifier
	audit    SignatureAudit
}

func NewHandler(router *Router, verifier Verifier, audit SignatureAudit) *Handler {
	return &Handler{router: router, verifier: verifier, audit: audit}
}

// Register mounts the webhook on rg with its CORS preflight.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.Use(CORS())
	rg.POST("/vapi", h.Receive)
	rg.OPTIONS("/vapi", func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

func (h *Handler) Receive(c *gin.Context) {
	log := logger.FromGin(c)

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"status": "ignored", "reason": "Invalid format"})
		return
	}

	if err := h.verifier.Verify(body, c.GetHeader(HeaderSignature)); err != nil {
		log.Warn("webhook signature rejected", slog.String("ip", c.ClientIP()), slog.Any("err", err))
		if h.audit != nil {
			if aerr := h.audit.LogSignatureRejected(c.Request.Context(), c.ClientIP(), err.Error()); aerr != nil {
				log.Warn("audit append failed", slog.Any("err", aerr))
			}
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "invalid signature"})
		return
	}

	resp := h.router.Route(c.Request.Context(), body)
	c.JSON(resp.Code, resp.Body)
}

// CORS answers preflight requests and sets permissive headers on every response.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
