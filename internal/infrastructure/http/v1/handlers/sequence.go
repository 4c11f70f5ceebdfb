package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	coreseq "medseq/internal/core/sequence"
	"medseq/internal/infrastructure/http/v1/dto"
)

// SequenceService is the allocation side of sequence.Service.
type SequenceService interface {
	GetNextValue(ctx context.Context, counterName string, format coreseq.Format) (coreseq.Allocation, error)
	GetCurrentValue(ctx context.Context, counterName string) int64
}

// SequenceHandler serves identifier allocation.
type SequenceHandler struct {
	BaseHandler
	service SequenceService
}

// NewSequenceHandler creates a new sequence handler.
func NewSequenceHandler(service SequenceService) *SequenceHandler {
	return &SequenceHandler{service: service}
}

// Next allocates the next identifier.
// POST /api/v1/sequences/:name/next
func (h *SequenceHandler) Next(c *gin.Context) {
	var req dto.NextValueRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}

	name := c.Param("name")
	alloc, err := h.service.GetNextValue(c.Request.Context(), name, req.ToFormat())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromAllocation(name, alloc))
}

// Current returns the last issued value without consuming one.
// GET /api/v1/sequences/:name
func (h *SequenceHandler) Current(c *gin.Context) {
	name := c.Param("name")
	h.OK(c, dto.CounterValueResponse{
		Name:  name,
		Value: h.service.GetCurrentValue(c.Request.Context(), name),
	})
}
