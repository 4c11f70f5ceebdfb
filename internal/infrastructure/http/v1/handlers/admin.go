package handlers

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"medseq/internal/core/apperror"
	coreseq "medseq/internal/core/sequence"
	"medseq/internal/infrastructure/http/v1/dto"
	"medseq/pkg/logger"
)

// AdminService is the maintenance side of sequence.Service.
type AdminService interface {
	ResetCounter(ctx context.Context, counterName string, value int64) (int64, error)
	SyncWithCollection(ctx context.Context, counterName, collection, field, prefix string) (int64, error)
	FixAllCountersWithMode(ctx context.Context, mode coreseq.ReconcileMode) []coreseq.Outcome
	ListCounters(ctx context.Context) ([]coreseq.Counter, error)
	GetCounter(ctx context.Context, counterName string) (*coreseq.Counter, error)
}

// AdminHandler serves counter maintenance for operators.
type AdminHandler struct {
	BaseHandler
	service AdminService
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(service AdminService) *AdminHandler {
	return &AdminHandler{service: service}
}

// List returns all counters.
// GET /api/v1/admin/counters
func (h *AdminHandler) List(c *gin.Context) {
	counters, err := h.service.ListCounters(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	items := dto.FromCounters(counters)
	h.OK(c, dto.ListCountersResponse{Items: items, Total: len(items)})
}

// Get returns one stored counter row.
// GET /api/v1/admin/counters/:name
func (h *AdminHandler) Get(c *gin.Context) {
	name := c.Param("name")
	counter, err := h.service.GetCounter(c.Request.Context(), name)
	if errors.Is(err, coreseq.ErrCounterNotFound) {
		h.Error(c, apperror.NewNotFound("counter", name).WithCause(err))
		return
	}
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromCounter(*counter))
}

// Reset overwrites a counter value.
// PUT /api/v1/admin/counters/:name
func (h *AdminHandler) Reset(c *gin.Context) {
	var req dto.ResetCounterRequest
	if !h.BindJSON(c, &req) {
		return
	}

	name := c.Param("name")
	value, err := h.service.ResetCounter(c.Request.Context(), name, *req.Value)
	if err != nil {
		h.Error(c, err)
		return
	}

	logger.Info(c.Request.Context(), "counter reset by operator", "counter", name, "value", value)
	h.OK(c, dto.CounterValueResponse{Name: name, Value: value})
}

// Sync reconciles one counter with a record collection.
// POST /api/v1/admin/counters/:name/sync
func (h *AdminHandler) Sync(c *gin.Context) {
	var req dto.SyncCounterRequest
	if !h.BindJSON(c, &req) {
		return
	}

	name := c.Param("name")
	value, err := h.service.SyncWithCollection(c.Request.Context(), name, req.Collection, req.Field, req.Prefix)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.CounterValueResponse{Name: name, Value: value})
}

// FixAll reconciles every registered mapping. Always 200; failures are reported per mapping.
// POST /api/v1/admin/counters/fix-all
func (h *AdminHandler) FixAll(c *gin.Context) {
	var req dto.FixAllRequest
	if !h.BindQuery(c, &req) {
		return
	}

	mode := req.ReconcileMode()
	outcomes := h.service.FixAllCountersWithMode(c.Request.Context(), mode)
	h.OK(c, dto.NewFixAllResponse(mode, outcomes))
}
