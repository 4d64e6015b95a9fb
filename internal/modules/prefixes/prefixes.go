package prefixes

import (
	"context"
	"errors"
	"fmt"

	"chuck/internal/command"
	"chuck/internal/prefix"

	"github.com/bwmarrin/discordgo"
)

// Cache is the part of *prefix.Cache the module uses.
type Cache interface {
	Prefix(ctx context.Context, guildID string) (string, error)
	Set(ctx context.Context, guildID, prefix string) error
}

type Module struct {
	cache Cache
}

func New(cache Cache) *Module {
	return &Module{cache: cache}
}

func (m *Module) Name() string {
	return "Prefixes"
}

func (m *Module) Commands() []*command.Command {
	return []*command.Command{
		{
			Name:        "prefix",
			Description: "Shows the prefix for this server",
			Handler:     m.show,
			Subcommands: []*command.Command{
				{
					Name:        "set",
					Aliases:     []string{"change"},
					Description: "Changes the prefix for this server",
					Params:      []command.Param{{Name: "prefix", Kind: command.KindRest}},
					GuildOnly:   true,
					Checks:      []command.Check{command.HasPermissions(discordgo.PermissionManageServer)},
					Handler:     m.set,
				},
			},
		},
	}
}

func (m *Module) show(ctx context.Context, c *command.Context) error {
	current, err := m.cache.Prefix(ctx, c.GuildID())
	if err != nil {
		return err
	}
	_, err = c.SendEmbed(c.Embed("", fmt.Sprintf("My prefix here is `%s`", current)))
	return err
}

func (m *Module) set(ctx context.Context, c *command.Context) error {
	next := c.Arg("prefix")
	if err := m.cache.Set(ctx, c.GuildID(), next); err != nil {
		if errors.Is(err, prefix.ErrInvalidPrefix) {
			return &command.BadArgumentError{
				Value: next,
				Err:   fmt.Errorf("Prefix must be between 1 and %d characters.", prefix.MaxLength),
			}
		}
		return err
	}
	_, err := c.SendEmbed(c.Embed("", fmt.Sprintf("Prefix changed to `%s`", next)))
	return err
}
