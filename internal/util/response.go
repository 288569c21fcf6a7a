package util

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/qaforum/engagement/internal/errors"
	"github.com/qaforum/engagement/internal/logger"
	"go.uber.org/zap"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

// RespondWithError renders err with the status its code maps to.
// Unstructured errors are reported as INTERNAL_ERROR without leaking
// their text to the client.
func RespondWithError(c *gin.Context, err error) {
	var structured *apperrors.Error
	if !stderrors.As(err, &structured) {
		if stderrors.Is(err, context.Canceled) {
			// Client went away; nobody is listening for a body
			c.Status(499)
			return
		}
		structured = apperrors.Internal("internal server error", err)
	}

	status := structured.Status()
	requestID := c.GetString("request_id")
	if status >= http.StatusInternalServerError {
		logger.Log.Error("API error",
			zap.String("code", string(structured.Code)),
			zap.String("message", structured.Message),
			zap.Int("status", status),
			logger.WithRequestID(requestID),
			zap.Error(err),
		)
	} else {
		logger.Log.Warn("API error",
			zap.String("code", string(structured.Code)),
			zap.String("message", structured.Message),
			zap.String("field", structured.Field),
			logger.WithRequestID(requestID),
		)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Code:    string(structured.Code),
		Message: structured.Message,
		Field:   structured.Field,
	})
}

// RespondBadRequest sends a 422 for a malformed request parameter
func RespondBadRequest(c *gin.Context, field, message string) {
	RespondWithError(c, apperrors.Validation(field, message))
}
