// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"time"

	coreseq "medseq/internal/core/sequence"
)

// --- Request DTOs ---

// NextValueRequest is the body of POST /sequences/:name/next. The body is optional.
type NextValueRequest struct {
	Format  string `json:"format" binding:"max=32"`
	Padding *int   `json:"padding" binding:"omitempty,min=0,max=18"`
}

// ToFormat converts DTO to domain format. Padding defaults to coreseq.DefaultPadding.
func (r NextValueRequest) ToFormat() coreseq.Format {
	f := coreseq.DefaultFormat(r.Format)
	if r.Padding != nil {
		f.Padding = *r.Padding
	}
	return f
}

// ResetCounterRequest is the body of PUT /admin/counters/:name.
type ResetCounterRequest struct {
	Value *int64 `json:"value" binding:"required,min=0"`
}

// SyncCounterRequest is the body of POST /admin/counters/:name/sync.
type SyncCounterRequest struct {
	Collection string `json:"collection" binding:"required"`
	Field      string `json:"field" binding:"required"`
	Prefix     string `json:"prefix"`
}

// FixAllRequest holds query parameters of POST /admin/counters/fix-all.
type FixAllRequest struct {
	Mode string `form:"mode" binding:"omitempty,oneof=overwrite ratchet"`
}

// ReconcileMode converts the query value. Overwrite is the default.
func (r FixAllRequest) ReconcileMode() coreseq.ReconcileMode {
	if r.Mode == coreseq.ModeRatchet.String() {
		return coreseq.ModeRatchet
	}
	return coreseq.ModeOverwrite
}

// --- Response DTOs ---

// NextValueResponse carries a freshly allocated identifier.
type NextValueResponse struct {
	Name        string `json:"name"`
	Value       int64  `json:"value"`
	FormattedID string `json:"formatted_id"`
}

// FromAllocation creates response from domain allocation.
func FromAllocation(name string, a coreseq.Allocation) NextValueResponse {
	return NextValueResponse{Name: name, Value: a.Value, FormattedID: a.FormattedID}
}

// CounterValueResponse reports a counter value.
type CounterValueResponse struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// CounterResponse is a full counter row.
type CounterResponse struct {
	Name      string    `json:"name"`
	Value     int64     `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FromCounter converts a domain counter to a response.
func FromCounter(c coreseq.Counter) CounterResponse {
	return CounterResponse{
		Name:      c.Name,
		Value:     c.Value,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// FromCounters converts domain counters to responses.
func FromCounters(counters []coreseq.Counter) []CounterResponse {
	items := make([]CounterResponse, len(counters))
	for i, c := range counters {
		items[i] = FromCounter(c)
	}
	return items
}

// ListCountersResponse wraps the counter list.
type ListCountersResponse struct {
	Items []CounterResponse `json:"items"`
	Total int               `json:"total"`
}

// FixAllResponse is the per-mapping reconciliation report.
type FixAllResponse struct {
	Mode      string            `json:"mode"`
	Results   []coreseq.Outcome `json:"results"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}

// NewFixAllResponse tallies outcomes.
func NewFixAllResponse(mode coreseq.ReconcileMode, outcomes []coreseq.Outcome) FixAllResponse {
	resp := FixAllResponse{Mode: mode.String(), Results: outcomes}
	for _, o := range outcomes {
		if o.Status == coreseq.OutcomeSuccess {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}
	return resp
}
