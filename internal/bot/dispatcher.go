package bot

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"chuck/internal/command"
	"chuck/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// PrefixResolver is implemented by *prefix.Cache.
type PrefixResolver interface {
	Prefix(ctx context.Context, guildID string) (string, error)
	Resolve(ctx context.Context, guildID, botID string) ([]string, error)
}

// ErrorHandler is implemented by *errhandler.Handler.
type ErrorHandler interface {
	Handle(ctx context.Context, c *command.Context, err error) string
}

type DispatcherOptions struct {
	Logger     *zap.Logger
	Registry   *command.Registry
	Prefixes   PrefixResolver
	Errors     ErrorHandler
	Owners     command.Owners
	EmbedColor int
	Usage      *utils.RecentCounter
	// GuildName resolves a guild id for the bare mention reply.
	GuildName func(guildID string) string
}

// Dispatcher turns gateway messages into command invocations.
type Dispatcher struct {
	logger     *zap.Logger
	registry   *command.Registry
	prefixes   PrefixResolver
	errors     ErrorHandler
	owners     command.Owners
	embedColor int
	usage      *utils.RecentCounter
	guildName  func(string) string
	now        func() time.Time
}

func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	d := &Dispatcher{
		logger:     opts.Logger,
		registry:   opts.Registry,
		prefixes:   opts.Prefixes,
		errors:     opts.Errors,
		owners:     opts.Owners,
		embedColor: opts.EmbedColor,
		usage:      opts.Usage,
		guildName:  opts.GuildName,
		now:        time.Now,
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if d.guildName == nil {
		d.guildName = func(guildID string) string { return guildID }
	}
	return d
}

// HandleMessage answers a message that is only a mention of the bot with the
// prefix for that guild, then processes the message as a command.
func (d *Dispatcher) HandleMessage(ctx context.Context, session command.Session, me *discordgo.User, msg *discordgo.Message) {
	if msg == nil || msg.Author == nil || msg.Author.Bot || me == nil {
		return
	}
	if isBareMention(msg.Content, me.ID) {
		d.replyPrefix(ctx, session, msg)
	}
	d.Process(ctx, session, me, msg)
}

// HandleEdit reprocesses an edited message so owners can fix a command
// without retyping it. Messages carrying embeds before or after the edit are
// ignored, as are edits whose previous version is unknown.
func (d *Dispatcher) HandleEdit(ctx context.Context, session command.Session, me *discordgo.User, before, after *discordgo.Message) {
	if before == nil || after == nil || before.Author == nil {
		return
	}
	if !d.owners.Contains(before.Author.ID) {
		return
	}
	if len(before.Embeds) > 0 || len(after.Embeds) > 0 {
		return
	}

	edited := *after
	if edited.Author == nil {
		edited.Author = before.Author
	}
	if edited.GuildID == "" {
		edited.GuildID = before.GuildID
	}
	d.Process(ctx, session, me, &edited)
}

// Process builds the invocation context, shows the typing indicator for valid
// commands and runs the command. Errors go to the command's own hooks first,
// then to the error handler.
func (d *Dispatcher) Process(ctx context.Context, session command.Session, me *discordgo.User, msg *discordgo.Message) {
	if msg.Author == nil || msg.Author.Bot {
		return
	}

	c, err := d.Context(ctx, session, me, msg)
	if err != nil {
		d.logger.Error("prefix lookup failed",
			zap.String("guild_id", msg.GuildID),
			zap.Error(err),
		)
		return
	}

	if c.Valid() {
		if err := c.Typing(); err != nil {
			d.logger.Debug("typing indicator failed", zap.String("channel_id", msg.ChannelID), zap.Error(err))
		}
		if d.usage != nil {
			d.usage.Record(d.now())
		}
	}

	err = d.registry.Invoke(ctx, c)
	if err == nil {
		return
	}
	if c.Command != nil {
		if c.Command.OnError != nil {
			c.Command.OnError(ctx, c, err)
		}
		if hook, ok := c.Command.Module().(command.ErrorHook); ok {
			hook.OnCommandError(ctx, c, err)
		}
	}
	d.errors.Handle(ctx, c, err)
}

// Context resolves the prefixes that apply to msg and builds its invocation
// context.
func (d *Dispatcher) Context(ctx context.Context, session command.Session, me *discordgo.User, msg *discordgo.Message) (*command.Context, error) {
	prefixes, err := d.prefixes.Resolve(ctx, msg.GuildID, me.ID)
	if err != nil {
		return nil, err
	}
	c := d.registry.NewContext(session, msg, me, prefixes)
	c.EmbedColor = d.embedColor
	return c, nil
}

func (d *Dispatcher) replyPrefix(ctx context.Context, session command.Session, msg *discordgo.Message) {
	current, err := d.prefixes.Prefix(ctx, msg.GuildID)
	if err != nil {
		d.logger.Error("prefix lookup failed",
			zap.String("guild_id", msg.GuildID),
			zap.Error(err),
		)
		return
	}

	reply := fmt.Sprintf("My prefix here is `%s`", current)
	if msg.GuildID != "" {
		reply = fmt.Sprintf("My prefix on `%s` is `%s`", d.guildName(msg.GuildID), current)
	}
	if _, err := session.ChannelMessageSend(msg.ChannelID, reply); err != nil {
		d.logger.Warn("prefix reply failed", zap.String("channel_id", msg.ChannelID), zap.Error(err))
	}
}

var mentionOnly = regexp.MustCompile(`^<@!?(\d+)>\s*$`)

func isBareMention(content, botID string) bool {
	match := mentionOnly.FindStringSubmatch(content)
	return match != nil && match[1] == botID
}
