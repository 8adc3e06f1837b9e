package webhook

import (
	"context"
	"log/slog"

	"voicecall-platform/pkg/logger"
)

const (
	ToolSendWhatsApp = "send_whatsapp_tool"
	ToolEndCall      = "end_call_tool"

	defaultWhatsAppMessageType = "testimonial_package"
)

// ToolResult pairs a tool name with the object returned to the platform.
type ToolResult struct {
	Tool   string         `json:"tool"`
	Result map[string]any `json:"result"`
}

type ToolResponse struct {
	Status         string       `json:"status"`
	ProcessedCalls int          `json:"processed_calls"`
	Results        []ToolResult `json:"results"`
}

// ToolHandler answers in-call tool invocations. WhatsApp delivery is
// acknowledged without a messaging integration.
type ToolHandler struct{}

func NewToolHandler() *ToolHandler { return &ToolHandler{} }

// Handle produces one result per invocation, in order. Unknown tools do not
// fail the batch.
func (h *ToolHandler) Handle(ctx context.Context, toolCalls []ToolCall) ToolResponse {
	log := logger.From(ctx)
	results := make([]ToolResult, 0, len(toolCalls))

	for _, tc := range toolCalls {
		name := tc.ToolName()
		args := tc.Args()

		switch name {
		case ToolSendWhatsApp:
			results = append(results, ToolResult{Tool: ToolSendWhatsApp, Result: h.sendWhatsApp(ctx, args)})
		case ToolEndCall:
			log.Info("end call tool triggered", slog.Any("arguments", args))
			results = append(results, ToolResult{Tool: ToolEndCall, Result: map[string]any{"success": true, "message": "Call ended"}})
		default:
			log.Warn("unknown tool call", slog.String("tool", name), slog.Any("arguments", args))
			results = append(results, ToolResult{Tool: name, Result: map[string]any{"error": "Unknown function"}})
		}
	}

	log.Info("tool calls processed", slog.Int("count", len(toolCalls)))
	return ToolResponse{Status: "success", ProcessedCalls: len(toolCalls), Results: results}
}

func (h *ToolHandler) sendWhatsApp(ctx context.Context, args map[string]any) map[string]any {
	phoneNumber, _ := args["phoneNumber"].(string)
	messageType, _ := args["messageType"].(string)
	if messageType == "" {
		messageType = defaultWhatsAppMessageType
	}
	if phoneNumber == "" {
		logger.From(ctx).Warn("whatsapp tool missing phone number")
		return map[string]any{"success": false, "error": "Phone number is required"}
	}

	logger.From(ctx).Info("whatsapp tool triggered",
		slog.String("phone_number", phoneNumber),
		slog.String("message_type", messageType),
	)
	return map[string]any{
		"success":      true,
		"message":      "WhatsApp processing completed",
		"phone_number": phoneNumber,
		"message_type": messageType,
	}
}
