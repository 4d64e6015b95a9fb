package meta

import (
	"context"
	"fmt"
	"time"

	"chuck/internal/command"
	"chuck/internal/utils"
)

type Module struct {
	started time.Time
	usage   *utils.RecentCounter
	latency func() time.Duration
	now     func() time.Time
}

// New returns the meta module. latency reports the gateway heartbeat latency.
func New(started time.Time, usage *utils.RecentCounter, latency func() time.Duration) *Module {
	return &Module{
		started: started,
		usage:   usage,
		latency: latency,
		now:     time.Now,
	}
}

func (m *Module) Name() string {
	return "Meta"
}

func (m *Module) Commands() []*command.Command {
	return []*command.Command{
		{
			Name:        "ping",
			Aliases:     []string{"latency"},
			Description: "Shows the gateway latency",
			Handler:     m.ping,
		},
		{
			Name:        "uptime",
			Description: "Shows how long the bot has been running",
			Handler:     m.uptime,
		},
	}
}

func (m *Module) ping(_ context.Context, c *command.Context) error {
	latency := m.latency().Round(time.Millisecond)
	_, err := c.SendEmbed(c.Embed("🏓 Pong!", fmt.Sprintf("Websocket: `%dms`", latency.Milliseconds())))
	return err
}

func (m *Module) uptime(_ context.Context, c *command.Context) error {
	now := m.now()
	up := now.Sub(m.started).Truncate(time.Second)
	description := fmt.Sprintf("I have been up for **%s**.", utils.PreciseDelta(up))
	if m.usage != nil {
		description += fmt.Sprintf("\nCommands in the last %s: **%d** (%d total)",
			utils.PreciseDelta(m.usage.Window()), m.usage.Count(now), m.usage.Total())
	}
	_, err := c.SendEmbed(c.Embed("Uptime", description))
	return err
}
