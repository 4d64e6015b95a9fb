package owner

import (
	"context"
	"sync/atomic"

	"chuck/internal/command"
)

// Module holds owner-only commands. It is hidden from suggestions.
type Module struct {
	owners      command.Owners
	maintenance *atomic.Bool
}

func New(owners command.Owners, maintenance *atomic.Bool) *Module {
	return &Module{owners: owners, maintenance: maintenance}
}

func (m *Module) Name() string {
	return "Owner"
}

func (m *Module) Commands() []*command.Command {
	return []*command.Command{
		{
			Name:        "maintenance",
			Aliases:     []string{"maint"},
			Description: "Toggles maintenance mode",
			Hidden:      true,
			Checks:      []command.Check{command.OwnerOnly(m.owners)},
			Handler:     m.toggleMaintenance,
		},
	}
}

func (m *Module) toggleMaintenance(_ context.Context, c *command.Context) error {
	on := !m.maintenance.Load()
	m.maintenance.Store(on)
	state := "off"
	if on {
		state = "on"
	}
	_, err := c.SendEmbed(c.Embed("", "Maintenance mode is now **"+state+"**."))
	return err
}
