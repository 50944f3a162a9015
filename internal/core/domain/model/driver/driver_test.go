package driver_test

import (
	"testing"
	"time"

	"dispatch/internal/core/domain/model/driver"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var registered = time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

func TestNewDriver(t *testing.T) {
	t.Run("valid driver", func(t *testing.T) {
		id := kernel.NewUUID()

		d, err := driver.NewDriver(id, "  Ada Lovelace ", 4.8, registered, 1)

		require.NoError(t, err)
		require.NoError(t, d.Validate())
		assert.Equal(t, id, d.ID())
		assert.Equal(t, "Ada Lovelace", d.Name())
		assert.InDelta(t, 4.8, d.Rating(), 1e-9)
		assert.Equal(t, registered, d.RegisteredAt())
		assert.Equal(t, 1, d.ActiveAssignments())
		assert.False(t, d.IsAvailable())
	})

	tests := []struct {
		name    string
		id      kernel.UUID
		dname   string
		rating  float64
		regAt   time.Time
		active  int
		wantErr error
	}{
		{"nil id", kernel.UUID{}, "A", 4, registered, 0, kernel.ErrUUIDIsNotConstructed},
		{"blank name", kernel.NewUUID(), "   ", 4, registered, 0, errs.ErrValueIsRequired},
		{"rating too high", kernel.NewUUID(), "A", 5.1, registered, 0, errs.ErrValueIsOutOfRange},
		{"rating negative", kernel.NewUUID(), "A", -0.1, registered, 0, errs.ErrValueIsOutOfRange},
		{"zero registration", kernel.NewUUID(), "A", 4, time.Time{}, 0, errs.ErrValueIsRequired},
		{"negative workload", kernel.NewUUID(), "A", 4, registered, -1, errs.ErrValueIsInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := driver.NewDriver(tt.id, tt.dname, tt.rating, tt.regAt, tt.active)

			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, d)
		})
	}
}

func TestDriver_WithAssignment(t *testing.T) {
	d, err := driver.NewDriver(kernel.NewUUID(), "Grace", 4.5, registered, 0)
	require.NoError(t, err)
	require.True(t, d.IsAvailable())

	busier := d.WithAssignment()

	assert.Equal(t, 0, d.ActiveAssignments(), "original snapshot is untouched")
	assert.Equal(t, 1, busier.ActiveAssignments())
	assert.Equal(t, d.ID(), busier.ID())
}

func TestDriver_Validate_NotConstructed(t *testing.T) {
	var d driver.Driver
	require.ErrorIs(t, d.Validate(), driver.ErrDriverIsNotConstructed)
}
