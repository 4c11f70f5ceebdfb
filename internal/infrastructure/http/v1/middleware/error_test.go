package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medseq/internal/core/apperror"
	coreseq "medseq/internal/core/sequence"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{
			name:   "allocation failed",
			err:    &coreseq.AllocationFailedError{Counter: "c", Attempts: 5, Err: errors.New("timeout")},
			code:   apperror.CodeAllocationFailed,
			status: http.StatusServiceUnavailable,
		},
		{
			name:   "wrapped scan failure",
			err:    fmt.Errorf("sync %q: %w", "c", &coreseq.ScanFailedError{Collection: "patients", Field: "patient_id", Err: errors.New("reset")}),
			code:   apperror.CodeScanFailed,
			status: http.StatusBadGateway,
		},
		{
			name:   "invalid input",
			err:    fmt.Errorf("%w: bad name", coreseq.ErrInvalidInput),
			code:   apperror.CodeValidation,
			status: http.StatusBadRequest,
		},
		{
			name:   "not found",
			err:    fmt.Errorf("%w: c", coreseq.ErrCounterNotFound),
			code:   apperror.CodeNotFound,
			status: http.StatusNotFound,
		},
		{
			name:   "transient outside allocation",
			err:    coreseq.NewTransient("list", "*", errors.New("timeout")),
			code:   apperror.CodeUnavailable,
			status: http.StatusServiceUnavailable,
		},
		{
			name:   "app error passes through",
			err:    apperror.NewForbidden("nope"),
			code:   apperror.CodeForbidden,
			status: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr, ok := apperror.AsAppError(translate(tt.err))
			if assert.True(t, ok) {
				assert.Equal(t, tt.code, appErr.Code)
				assert.Equal(t, tt.status, appErr.HTTPStatus)
			}
		})
	}
}

func TestTranslate_UnknownErrorUnchanged(t *testing.T) {
	err := errors.New("boom")
	assert.Same(t, err, translate(err))
}

func TestTranslate_NotFoundKeepsCause(t *testing.T) {
	err := fmt.Errorf("get %q: %w", "c", coreseq.ErrCounterNotFound)

	translated := translate(err)

	assert.True(t, apperror.IsNotFound(translated))
	assert.ErrorIs(t, translated, coreseq.ErrCounterNotFound)
}

func TestErrorHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/plain", func(c *gin.Context) { _ = c.Error(errors.New("boom")) })
	r.GET("/missing", func(c *gin.Context) {
		_ = c.Error(apperror.NewNotFound("counter", "c").WithCause(coreseq.ErrCounterNotFound))
	})

	tests := []struct {
		path   string
		status int
		code   string
	}{
		{"/plain", http.StatusInternalServerError, apperror.CodeInternal},
		{"/missing", http.StatusNotFound, apperror.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			require.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.code)
			assert.NotContains(t, rec.Body.String(), "boom")
		})
	}
}
