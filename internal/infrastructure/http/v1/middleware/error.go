package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"medseq/internal/core/apperror"
	coreseq "medseq/internal/core/sequence"
	"medseq/pkg/logger"
)

// ErrorHandler middleware transforms errors into consistent JSON responses.
// Hides internal errors from clients while logging full details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		// If response already written by handler, do not override it.
		if c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		appErr, ok := apperror.AsAppError(translate(err))
		if !ok {
			logger.Error(c.Request.Context(), "unhandled error", "error", err)
			c.JSON(apperror.GetHTTPStatus(err), gin.H{
				"code":    apperror.CodeInternal,
				"message": "Internal server error",
				"details": map[string]any{
					"request_id": c.GetString("request_id"),
				},
			})
			return
		}

		switch {
		case appErr.Err == nil:
		case apperror.IsNotFound(appErr):
			logger.Debug(c.Request.Context(), "request error",
				"code", appErr.Code,
				"cause", appErr.Err,
			)
		default:
			logger.Error(c.Request.Context(), "request error",
				"code", appErr.Code,
				"cause", appErr.Err,
			)
		}

		c.JSON(appErr.HTTPStatus, gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
			"details": appErr.Details,
		})
	}
}

// translate maps sequence errors onto API errors. Unknown errors pass through.
func translate(err error) error {
	if apperror.IsAppError(err) {
		return err
	}

	var allocErr *coreseq.AllocationFailedError
	if errors.As(err, &allocErr) {
		return apperror.NewAllocationFailed(allocErr.Counter, err).
			WithDetail("attempts", allocErr.Attempts)
	}

	var scanErr *coreseq.ScanFailedError
	if errors.As(err, &scanErr) {
		return apperror.NewScanFailed(scanErr.Collection, err)
	}

	switch {
	case errors.Is(err, coreseq.ErrInvalidInput):
		return apperror.NewValidation(err.Error())
	case errors.Is(err, coreseq.ErrCounterNotFound):
		return apperror.NewNotFound("counter", err.Error()).WithCause(err)
	case coreseq.IsTransient(err):
		return apperror.NewUnavailable("Counter store temporarily unavailable", err)
	}
	return err
}
