package commands

import (
	"errors"
	"strings"

	"dispatch/internal/core/domain/model/drop"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

var ErrOrchestrateDropsCommandIsNotConstructed = errors.New(
	"OrchestrateDropsCommand must be created via NewOrchestrateDropsCommand or NewPreviewDropsCommand constructor",
)

// Mode selects whether an orchestration pass writes its routes.
type Mode int

const (
	ModeUnknown Mode = iota

	// ModePreview computes routes and returns them without touching storage.
	ModePreview

	// ModeApply persists every route and claims its drops.
	ModeApply
)

func (m Mode) String() string {
	switch m {
	case ModePreview:
		return "preview"
	case ModeApply:
		return "apply"
	default:
		return "unknown"
	}
}

// OrchestrateDropsCommand runs one orchestration pass over the pending pool,
// or over an inline list of drops for previews.
//
// Example:
//
//	cmd, err := NewOrchestrateDropsCommand(ModeApply, "scheduler", services.Options{AssignDrivers: true})
//	if err != nil {
//	    return err
//	}
//	result, err := handler.Handle(ctx, cmd)
//	if err != nil {
//	    return fmt.Errorf("orchestration failed: %w", err)
//	}
//	log.Printf("%d routes persisted", result.Persisted)
type OrchestrateDropsCommand struct { //nolint:recvcheck //using for validation
	mode    Mode
	trigger string
	options services.Options

	drops  []*drop.Drop
	inline bool

	guard guard.ConstructorGuard
}

// NewOrchestrateDropsCommand creates a pass over the live pending pool.
// trigger names the initiator ("scheduler", "manual", ...) for logs and metrics.
func NewOrchestrateDropsCommand(mode Mode, trigger string, options services.Options) (OrchestrateDropsCommand, error) {
	cmd := OrchestrateDropsCommand{
		options: options,
		guard:   guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setMode(mode),
		cmd.setTrigger(trigger),
	); err != nil {
		return OrchestrateDropsCommand{}, err
	}

	return cmd, nil
}

// NewPreviewDropsCommand creates a preview over caller-supplied drops. Nothing
// is loaded from or written to storage.
func NewPreviewDropsCommand(trigger string, drops []*drop.Drop, options services.Options) (OrchestrateDropsCommand, error) {
	cmd, err := NewOrchestrateDropsCommand(ModePreview, trigger, options)
	if err != nil {
		return OrchestrateDropsCommand{}, err
	}

	cmd.drops = append([]*drop.Drop(nil), drops...)
	cmd.inline = true
	return cmd, nil
}

// Validate ensures the command was created through a constructor.
func (c OrchestrateDropsCommand) Validate() error {
	return c.guard.Validate(ErrOrchestrateDropsCommandIsNotConstructed)
}

func (c OrchestrateDropsCommand) Mode() Mode {
	return c.mode
}

func (c OrchestrateDropsCommand) Trigger() string {
	return c.trigger
}

func (c OrchestrateDropsCommand) Options() services.Options {
	return c.options
}

// Drops returns the inline drops and whether they replace the live snapshot.
func (c OrchestrateDropsCommand) Drops() ([]*drop.Drop, bool) {
	return c.drops, c.inline
}

func (c *OrchestrateDropsCommand) setMode(mode Mode) error {
	if mode != ModePreview && mode != ModeApply {
		return errs.NewValueIsInvalidError("mode")
	}
	c.mode = mode
	return nil
}

func (c *OrchestrateDropsCommand) setTrigger(trigger string) error {
	trigger = strings.TrimSpace(trigger)
	if trigger == "" {
		return errs.NewValueIsRequiredError("trigger")
	}
	c.trigger = trigger
	return nil
}
