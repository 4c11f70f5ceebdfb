package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreseq "medseq/internal/core/sequence"
)

func TestCollections_Scan_Prefixed(t *testing.T) {
	c := NewCollections()
	c.Insert("patients",
		Document{"patient_id": "PAT000010"},
		Document{"patient_id": "PAT000250"},
		Document{"patient_id": "PAT000099"},
		Document{"patient_id": "legacy-7"},
		Document{"name": "no id"},
	)

	got, err := c.Scan(context.Background(), coreseq.Target{Collection: "patients", Field: "patient_id", Prefix: "PAT"})
	require.NoError(t, err)
	assert.Equal(t, int64(250), got)
}

func TestCollections_Scan_Empty(t *testing.T) {
	c := NewCollections()

	got, err := c.Scan(context.Background(), coreseq.Target{Collection: "patients", Field: "patient_id", Prefix: "PAT"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)
}

func TestCollections_Scan_Unprefixed(t *testing.T) {
	c := NewCollections()
	c.Insert("suppliers",
		Document{"code": 9},
		Document{"code": int64(120)},
		Document{"code": 33},
	)

	got, err := c.Scan(context.Background(), coreseq.Target{Collection: "suppliers", Field: "code"})
	require.NoError(t, err)
	assert.Equal(t, int64(120), got)
}

func TestCollections_Scan_UnprefixedUnparsable(t *testing.T) {
	c := NewCollections()
	c.Insert("suppliers", Document{"code": "n/a"})

	got, err := c.Scan(context.Background(), coreseq.Target{Collection: "suppliers", Field: "code"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)
}

func TestCollections_Scan_Failure(t *testing.T) {
	c := NewCollections()
	c.Fail("appointments", errors.New("connection refused"))

	_, err := c.Scan(context.Background(), coreseq.Target{Collection: "appointments", Field: "appointment_id", Prefix: "APT"})
	require.Error(t, err)
	assert.True(t, coreseq.IsScanFailed(err))

	c.Fail("appointments", nil)
	_, err = c.Scan(context.Background(), coreseq.Target{Collection: "appointments", Field: "appointment_id", Prefix: "APT"})
	assert.NoError(t, err)
}
