package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"voicecall-platform/pkg/logger"
)

// Response is an HTTP status with a JSON body.
type Response struct {
	Code int
	Body any
}

// Router classifies a webhook body and hands it to the matching processor.
type Router struct {
	tools     *ToolHandler
	endOfCall *EndOfCallProcessor
}

func NewRouter(tools *ToolHandler, endOfCall *EndOfCallProcessor) *Router {
	return &Router{tools: tools, endOfCall: endOfCall}
}

// Route never returns an error; every outcome is expressed as a Response.
// A panic in a processor becomes a 500.
func (r *Router) Route(ctx context.Context, body []byte) (resp Response) {
	log := logger.From(ctx)
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("webhook processing panic", slog.Any("panic", rec))
			resp = errorResponse(http.StatusInternalServerError, fmt.Sprint(rec))
		}
	}()

	msg, raw, ok := ParseEnvelope(body)
	if !ok {
		log.Warn("invalid webhook format")
		return Response{Code: http.StatusBadRequest, Body: map[string]any{"status": "ignored", "reason": "Invalid format"}}
	}

	switch msg.Type {
	case TypeToolCalls, TypeFunctionCall:
		return Response{Code: http.StatusOK, Body: r.tools.Handle(ctx, msg.Calls())}

	case TypeEndOfCallReport:
		report, err := r.endOfCall.Process(ctx, msg, raw)
		switch {
		case errors.Is(err, ErrMissingPhone):
			return errorResponse(http.StatusBadRequest, "Missing customer_phone")
		case errors.Is(err, ErrUnattributed):
			return errorResponse(http.StatusBadRequest, "Could not resolve user_id")
		case err != nil:
			log.Error("end of call processing failed", slog.Any("err", err))
			return errorResponse(http.StatusInternalServerError, "Internal Server Error")
		}
		out := map[string]any{
			"status":            "success",
			"record_id":         report.RecordID,
			"evaluation_status": report.EvaluationStatus,
		}
		if report.Duplicate {
			out["duplicate"] = true
		}
		return Response{Code: http.StatusOK, Body: out}

	default:
		log.Info("webhook type ignored", slog.String("type", msg.Type))
		return Response{Code: http.StatusOK, Body: map[string]any{"status": "ignored"}}
	}
}

func errorResponse(code int, message string) Response {
	return Response{Code: code, Body: map[string]any{"status": "error", "message": message}}
}
