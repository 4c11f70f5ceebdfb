package sequence

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormat_Render(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		value  int64
		want   string
	}{
		{"prefixed padded", Format{Prefix: "PAT", Padding: 6}, 7, "PAT000007"},
		{"no prefix ignores padding", Format{Prefix: "", Padding: 6}, 42, "42"},
		{"wider than padding is not truncated", Format{Prefix: "PAT", Padding: 6}, 1234567, "PAT1234567"},
		{"exact width", Format{Prefix: "APT", Padding: 6}, 999999, "APT999999"},
		{"zero padding", Format{Prefix: "SUP", Padding: 0}, 15, "SUP15"},
		{"default format", DefaultFormat("APT"), 45, "APT000045"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.format.Render(tt.value))
		})
	}
}

func TestFormat_Validate(t *testing.T) {
	assert.NoError(t, Format{Padding: 0}.Validate())
	assert.NoError(t, DefaultFormat("PAT").Validate())

	err := Format{Prefix: "PAT", Padding: -1}.Validate()
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestScopeName(t *testing.T) {
	at := time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, "patientId_2025", ScopeName("patientId_{year}", at))
	assert.Equal(t, "pharmacySupplier", ScopeName("pharmacySupplier", at))
	assert.Equal(t, "appointmentId_2025", YearScoped("appointmentId", at))
}

func TestMapping_Resolve(t *testing.T) {
	at := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	mappings := DefaultMappings()

	got := make([]string, 0, len(mappings))
	for _, m := range mappings {
		got = append(got, m.Resolve(at).CounterName)
	}

	assert.Equal(t, []string{"patientId_2026", "appointmentId_2026", "pharmacySupplier"}, got)
	// the registry itself keeps the template
	assert.Equal(t, "patientId_{year}", mappings[0].CounterName)
}

func TestMatchesTemplate(t *testing.T) {
	tests := []struct {
		template string
		name     string
		want     bool
	}{
		{"patientId_{year}", "patientId_2025", true},
		{"patientId_{year}", "patientId_25", false},
		{"patientId_{year}", "patientId_2025x", false},
		{"patientId_{year}", "patientId_abcd", false},
		{"patientId_{year}", "labOrder_2025", false},
		{"pharmacySupplier", "pharmacySupplier", true},
		{"pharmacySupplier", "pharmacySupplier2", false},
		{"{year}-{year}", "2024-2025", true},
	}
	for _, tt := range tests {
		t.Run(tt.template+"/"+tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesTemplate(tt.template, tt.name))
		})
	}
}
