package commands_test

import (
	"testing"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/domain/model/drop"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrchestrateDropsCommand_ValidInput(t *testing.T) {
	opts := services.Options{AssignDrivers: true}

	cmd, err := commands.NewOrchestrateDropsCommand(commands.ModeApply, " scheduler ", opts)

	require.NoError(t, err)
	require.NoError(t, cmd.Validate())
	assert.Equal(t, commands.ModeApply, cmd.Mode())
	assert.Equal(t, "scheduler", cmd.Trigger())
	assert.Equal(t, opts, cmd.Options())
	drops, inline := cmd.Drops()
	assert.Nil(t, drops)
	assert.False(t, inline)
}

func TestNewOrchestrateDropsCommand_InvalidInput(t *testing.T) {
	_, err := commands.NewOrchestrateDropsCommand(commands.ModeUnknown, "", services.Options{})

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrValueIsInvalid)
	assert.ErrorIs(t, err, errs.ErrValueIsRequired)
}

func TestNewPreviewDropsCommand(t *testing.T) {
	d := newDrop(t, 0, 0)

	cmd, err := commands.NewPreviewDropsCommand("api", []*drop.Drop{d}, services.Options{})

	require.NoError(t, err)
	assert.Equal(t, commands.ModePreview, cmd.Mode())
	drops, inline := cmd.Drops()
	assert.True(t, inline)
	assert.Equal(t, []*drop.Drop{d}, drops)
}

func TestOrchestrateDropsCommand_NotConstructed(t *testing.T) {
	cmd := commands.OrchestrateDropsCommand{}

	require.ErrorIs(t, cmd.Validate(), commands.ErrOrchestrateDropsCommandIsNotConstructed)
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "preview", commands.ModePreview.String())
	assert.Equal(t, "apply", commands.ModeApply.String())
	assert.Equal(t, "unknown", commands.Mode(42).String())
}
