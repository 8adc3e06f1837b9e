package httpapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"voicecall-platform/internal/dispatch"
	"voicecall-platform/pkg/logger"
)

var validate = newValidator()

// newValidator reports field errors by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// BatchCall runs a batch campaign synchronously and returns its summary.
func (h Handlers) BatchCall(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req dispatch.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := validate.Struct(req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return
	}

	res, err := h.Batch.BatchCall(c.Request.Context(), uid, req)
	if err != nil {
		code := batchErrorStatus(err)
		if code >= http.StatusInternalServerError {
			logger.FromGin(c).Error("batch call failed", slog.Any("err", err))
		}
		c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// batchErrorStatus maps dispatch errors to HTTP codes. Business failures
// stay 500 so existing clients see the same contract.
func batchErrorStatus(err error) int {
	switch {
	case errors.Is(err, dispatch.ErrInvalidArgument), errors.Is(err, dispatch.ErrLimitOutOfRange),
		errors.Is(err, dispatch.ErrBatchTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, dispatch.ErrTooManyDispatches):
		return http.StatusTooManyRequests
	case errors.Is(err, dispatch.ErrDispatchUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "min", "max":
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		default:
			parts = append(parts, fe.Field()+" is invalid")
		}
	}
	return "validation failed: " + strings.Join(parts, ", ")
}
