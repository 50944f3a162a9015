package route_test

import (
	"testing"

	"dispatch/internal/core/domain/model/route"
	"dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, s := range []route.Status{route.PendingAssignment, route.Assigned, route.InProgress, route.Completed, route.Failed} {
		got, err := route.ParseStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := route.ParseStatus("cancelled")
	require.ErrorIs(t, err, errs.ErrValueIsInvalid)
}

func TestStatus_IsActive(t *testing.T) {
	assert.False(t, route.PendingAssignment.IsActive())
	assert.True(t, route.Assigned.IsActive())
	assert.True(t, route.InProgress.IsActive())
	assert.False(t, route.Completed.IsActive())
	assert.False(t, route.Failed.IsActive())
}

func TestStatus_Transitions(t *testing.T) {
	next, err := route.PendingAssignment.AssignDriver()
	require.NoError(t, err)
	assert.Equal(t, route.Assigned, next)

	_, err = route.Completed.AssignDriver()
	require.Error(t, err)

	next, err = route.Assigned.Start()
	require.NoError(t, err)
	assert.Equal(t, route.InProgress, next)

	_, err = route.PendingAssignment.Start()
	require.Error(t, err)

	next, err = route.InProgress.Complete()
	require.NoError(t, err)
	assert.Equal(t, route.Completed, next)

	_, err = route.Assigned.Complete()
	require.Error(t, err)

	next, err = route.PendingAssignment.Fail()
	require.NoError(t, err)
	assert.Equal(t, route.Failed, next)

	_, err = route.Completed.Fail()
	require.Error(t, err)
}

func TestStatus_ValidateCanHaveDriver(t *testing.T) {
	require.NoError(t, route.PendingAssignment.ValidateCanHaveDriver(false))
	require.Error(t, route.PendingAssignment.ValidateCanHaveDriver(true))
	require.NoError(t, route.Assigned.ValidateCanHaveDriver(true))
	require.Error(t, route.InProgress.ValidateCanHaveDriver(false))
	require.NoError(t, route.Failed.ValidateCanHaveDriver(false))
	require.NoError(t, route.Failed.ValidateCanHaveDriver(true))
}
