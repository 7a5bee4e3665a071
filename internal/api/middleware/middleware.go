// Package middleware holds the gin middleware the webhook listener runs on
// every inbound request, grounded on the teacher's internal/rest/middleware
// (RequestIDMiddleware, ErrorHandler) and narrowed to what a payment-webhook
// surface actually needs — there is no auth/RBAC/tenant middleware here
// because this listener has exactly one caller class (payment providers),
// authenticated per-provider inside payments.Ingress.Verify, not at the
// transport layer.
package middleware

import (
	"context"

	ierr "github.com/vpnbroker/broker/internal/errors"
	"github.com/vpnbroker/broker/internal/logger"
	"github.com/vpnbroker/broker/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const headerRequestID = "X-Request-ID"

// RequestID stamps every request with a correlation id, mirroring the
// teacher's RequestIDMiddleware.
func RequestID(c *gin.Context) {
	requestID := c.GetHeader(headerRequestID)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	ctx := context.WithValue(c.Request.Context(), types.CtxRequestID, requestID)
	ctx = types.WithRequestContext(ctx, types.RequestContext{RequestID: requestID})
	c.Request = c.Request.WithContext(ctx)
	c.Header(headerRequestID, requestID)
	c.Next()
}

// RequestLogger logs every request at completion, matching the teacher's
// gin.Default() access-log behavior but through the broker's zap logger
// instead of gin's own stdout writer.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Infow("webhook request",
			"request_id", types.GetRequestID(c.Request.Context()),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
		)
	}
}

// ErrorHandler turns the last error gin.Context accumulated into the
// broker's standard ErrorResponse body, mirroring the teacher's
// ErrorHandler but against ierr's cockroachdb-backed hints directly
// instead of the teacher's cockroachdb/errors detail-payload decoding.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		c.JSON(ierr.HTTPStatusFromErr(err), ierr.ErrorResponse{
			Success: false,
			Error:   ierr.ErrorDetail{Display: ierr.DisplayMessage(err)},
		})
	}
}
