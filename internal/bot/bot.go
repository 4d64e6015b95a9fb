package bot

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"chuck/internal/command"
	"chuck/internal/config"
	"chuck/internal/errhandler"
	"chuck/internal/imageapi"
	"chuck/internal/modules/animepics"
	"chuck/internal/modules/images"
	"chuck/internal/modules/meta"
	"chuck/internal/modules/owner"
	"chuck/internal/modules/prefixes"
	"chuck/internal/paste"
	"chuck/internal/prefix"
	"chuck/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Database is the connection pool the bot releases on shutdown.
type Database interface {
	Close()
}

type closer struct {
	name  string
	close func() error
}

type Bot struct {
	cfg         config.Config
	file        *config.File
	logger      *zap.Logger
	closers     []closer
	prefixes    *prefix.Cache
	http        *http.Client
	images      *imageapi.Client
	session     *discordgo.Session
	registry    *command.Registry
	dispatcher  *Dispatcher
	usage       *utils.RecentCounter
	owners      command.Owners
	maintenance atomic.Bool
	started     time.Time
}

// New wires the bot around an open database and a warmed prefix cache. The bot
// owns both from here on and releases them in Close. API keys are read from
// file on every use, falling back to the values loaded into cfg.
func New(cfg config.Config, file *config.File, logger *zap.Logger, db Database, cache *prefix.Cache) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	session.State.MaxMessageCount = 200

	timeout := time.Duration(cfg.HTTPTimeoutSeconds) * time.Second
	b := &Bot{
		cfg:      cfg,
		file:     file,
		logger:   logger,
		prefixes: cache,
		http:     &http.Client{Timeout: timeout},
		images:   imageapi.New(cfg.ImageAPIURL, file.Accessor("alex_api_key", cfg.AlexAPIKey), timeout),
		session:  session,
		registry: command.NewRegistry(),
		usage:    utils.NewRecentCounter(time.Hour),
		owners:   command.NewOwners(cfg.OwnerIDs...),
		started:  time.Now(),
	}
	b.maintenance.Store(cfg.Maintenance)

	b.closers = []closer{
		{"http", func() error { b.http.CloseIdleConnections(); return nil }},
		{"imageapi", func() error { b.images.Close(); return nil }},
	}
	if db != nil {
		b.closers = append(b.closers, closer{"database", func() error { db.Close(); return nil }})
	}
	b.closers = append(b.closers, closer{"session", session.Close})

	handler, err := b.errorHandler()
	if err != nil {
		return nil, err
	}
	b.dispatcher = NewDispatcher(DispatcherOptions{
		Logger:     logger,
		Registry:   b.registry,
		Prefixes:   cache,
		Errors:     handler,
		Owners:     b.owners,
		EmbedColor: cfg.EmbedColor,
		Usage:      b.usage,
		GuildName:  b.guildName,
	})

	return b, nil
}

func (b *Bot) errorHandler() (*errhandler.Handler, error) {
	opts := errhandler.Options{
		Logger:         b.logger,
		Uploader:       paste.New(b.http, b.cfg.PasteURL),
		SupportInvite:  b.cfg.SupportInvite,
		TracebackLimit: b.cfg.TracebackLimit,
	}
	if b.cfg.ErrorWebhookURL != "" {
		reporter, err := errhandler.NewWebhookReporter(b.session, b.cfg.ErrorWebhookURL)
		if err != nil {
			return nil, err
		}
		opts.Reporter = reporter
	} else {
		b.logger.Warn("error webhook not configured, unclassified errors are only logged")
	}
	return errhandler.New(opts), nil
}

// Modules returns the command modules in registration order.
func (b *Bot) Modules() []command.Module {
	return []command.Module{
		meta.New(b.started, b.usage, b.session.HeartbeatLatency),
		prefixes.New(b.prefixes),
		animepics.New(b.http, b.cfg.AnimePicsURL),
		images.New(b.images),
		owner.New(b.owners, &b.maintenance),
	}
}

// Start registers the modules, seals the registry and opens the gateway.
func (b *Bot) Start() error {
	b.registry.AddCheck(command.Maintenance(b.maintenance.Load, b.owners))
	b.registry.AddCheck(command.Blacklisted(command.Blacklist(b.cfg.Blacklist)))
	if err := b.registry.Register(b.Modules()...); err != nil {
		return err
	}
	b.registry.Seal()
	b.logger.Info("commands registered", zap.Int("names", len(b.registry.Names())))

	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onMessageUpdate)

	return b.session.Open()
}

// Close releases resources in order: outbound HTTP connections, the image API
// client, the database pool and finally the gateway session. A failing step is
// logged and the rest still run.
func (b *Bot) Close() {
	for _, c := range b.closers {
		if err := c.close(); err != nil {
			b.logger.Warn("close failed", zap.String("resource", c.name), zap.Error(err))
			continue
		}
		b.logger.Debug("resource closed", zap.String("resource", c.name))
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready",
		zap.String("user", event.User.String()),
		zap.Int("guilds", len(event.Guilds)),
	)
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	b.dispatcher.HandleMessage(context.Background(), session, session.State.User, msg.Message)
}

func (b *Bot) onMessageUpdate(session *discordgo.Session, msg *discordgo.MessageUpdate) {
	b.dispatcher.HandleEdit(context.Background(), session, session.State.User, msg.BeforeUpdate, msg.Message)
}

func (b *Bot) guildName(guildID string) string {
	if guild, err := b.session.State.Guild(guildID); err == nil && guild.Name != "" {
		return guild.Name
	}
	return guildID
}
