package commands_test

import (
	"testing"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/domain/model/kernel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAssignRouteDriverCommand_ValidInput(t *testing.T) {
	routeID := kernel.NewUUID()
	driverID := kernel.NewUUID()

	cmd, err := commands.NewAssignRouteDriverCommand(routeID, &driverID)

	require.NoError(t, err)
	assert.Equal(t, routeID, cmd.RouteID())
	require.NotNil(t, cmd.DriverID())
	assert.Equal(t, driverID, *cmd.DriverID())
}

func TestNewAssignRouteDriverCommand_WithoutDriver(t *testing.T) {
	cmd, err := commands.NewAssignRouteDriverCommand(kernel.NewUUID(), nil)

	require.NoError(t, err)
	assert.Nil(t, cmd.DriverID())
}

func TestNewAssignRouteDriverCommand_InvalidIDs(t *testing.T) {
	invalid := kernel.UUID{}

	_, err := commands.NewAssignRouteDriverCommand(invalid, &invalid)

	require.Error(t, err)
	assert.ErrorIs(t, err, kernel.ErrUUIDIsNotConstructed)
}
