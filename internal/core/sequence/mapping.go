package sequence

import (
	"time"
)

// Mapping binds a counter to the record collection it numbers.
type Mapping struct {
	// CounterName may contain the {year} placeholder.
	CounterName string `mapstructure:"counter" validate:"required"`
	Target      `mapstructure:",squash"`
}

// Resolve returns the mapping with its counter name expanded for the given instant.
func (m Mapping) Resolve(at time.Time) Mapping {
	m.CounterName = ScopeName(m.CounterName, at)
	return m
}

// DefaultMappings returns the registry for patient, appointment and supplier identifiers.
func DefaultMappings() []Mapping {
	return []Mapping{
		{
			CounterName: "patientId_" + yearPlaceholder,
			Target:      Target{Collection: "patients", Field: "patient_id", Prefix: "PAT"},
		},
		{
			CounterName: "appointmentId_" + yearPlaceholder,
			Target:      Target{Collection: "appointments", Field: "appointment_id", Prefix: "APT"},
		},
		{
			CounterName: "pharmacySupplier",
			Target:      Target{Collection: "pharmacy_suppliers", Field: "supplier_id", Prefix: "SUP"},
		},
	}
}

// OutcomeStatus is the result of reconciling one mapping.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailed  OutcomeStatus = "failed"
)

// Outcome reports the reconciliation result for one mapping.
type Outcome struct {
	CounterName string        `json:"counter_name"`
	Status      OutcomeStatus `json:"status"`
	SyncedTo    *int64        `json:"synced_to,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// ReconcileMode selects how a scanned maximum is written back.
type ReconcileMode int

const (
	// ModeOverwrite sets the counter to the scanned maximum, even if lower than the current value.
	ModeOverwrite ReconcileMode = iota
	// ModeRatchet sets the counter to max(current, scanned) and never moves it backward.
	ModeRatchet
)

func (m ReconcileMode) String() string {
	if m == ModeRatchet {
		return "ratchet"
	}
	return "overwrite"
}
