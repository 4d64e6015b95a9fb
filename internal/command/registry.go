package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

var ErrSealed = errors.New("registry is sealed")

// Registry holds the command tree. Modules are registered once at startup and
// the registry is sealed before the gateway connection opens; after that it
// is only read and safe for concurrent use.
type Registry struct {
	modules  []Module
	commands []*Command
	index    map[string]*Command
	checks   []Check
	names    []string
	sealed   bool
	now      func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		index: make(map[string]*Command),
		now:   time.Now,
	}
}

// AddCheck installs a check evaluated before every command's own checks.
func (r *Registry) AddCheck(check Check) {
	r.checks = append(r.checks, check)
}

// Register adds the modules in order. A name or alias that is already taken
// at the same level fails registration of that module.
func (r *Registry) Register(modules ...Module) error {
	if r.sealed {
		return ErrSealed
	}
	for _, module := range modules {
		for _, cmd := range module.Commands() {
			if err := r.claim(cmd); err != nil {
				return fmt.Errorf("module %s: %w", module.Name(), err)
			}
			if err := r.attach(module, nil, cmd); err != nil {
				return fmt.Errorf("module %s: %w", module.Name(), err)
			}
			r.commands = append(r.commands, cmd)
		}
		r.modules = append(r.modules, module)
	}
	return nil
}

func (r *Registry) claim(cmd *Command) error {
	keys := append([]string{cmd.Name}, cmd.Aliases...)
	for _, key := range keys {
		if _, taken := r.index[strings.ToLower(key)]; taken {
			return fmt.Errorf("command or alias %q is already registered", key)
		}
	}
	for _, key := range keys {
		r.index[strings.ToLower(key)] = cmd
	}
	return nil
}

func (r *Registry) attach(module Module, parent, cmd *Command) error {
	if cmd.Name == "" {
		return errors.New("command without a name")
	}
	cmd.module = module
	cmd.parent = parent
	if cmd.Cooldown != nil {
		cmd.buckets = newCooldownMapping(*cmd.Cooldown, r.now)
	}

	seen := make(map[string]struct{})
	for _, sub := range cmd.Subcommands {
		for _, key := range append([]string{sub.Name}, sub.Aliases...) {
			lower := strings.ToLower(key)
			if _, taken := seen[lower]; taken {
				return fmt.Errorf("subcommand %q of %s is already registered", key, cmd.QualifiedName())
			}
			seen[lower] = struct{}{}
		}
		if err := r.attach(module, cmd, sub); err != nil {
			return err
		}
	}
	return nil
}

// Seal snapshots every invocable name and alias, groups' subcommands
// included as "group sub" and "group alias", in registration order. Further
// registration fails.
func (r *Registry) Seal() {
	if r.sealed {
		return
	}
	for _, cmd := range r.commands {
		r.names = append(r.names, cmd.Name)
		r.names = append(r.names, cmd.Aliases...)
		if cmd.IsGroup() {
			r.names = append(r.names, subcommandNames(cmd)...)
		}
	}
	r.sealed = true
}

func subcommandNames(group *Command) []string {
	var names []string
	for _, sub := range group.Subcommands {
		qualified := sub.QualifiedName()
		names = append(names, qualified)
		for _, alias := range sub.Aliases {
			names = append(names, group.QualifiedName()+" "+alias)
		}
		if sub.IsGroup() {
			names = append(names, subcommandNames(sub)...)
		}
	}
	return names
}

func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (r *Registry) Modules() []Module {
	return r.modules
}

func (r *Registry) Commands() []*Command {
	return r.commands
}

// Get looks up a top-level command by name or alias, ignoring case.
func (r *Registry) Get(name string) *Command {
	return r.index[strings.ToLower(name)]
}

// Find resolves a space separated qualified name such as "prefix set".
func (r *Registry) Find(qualified string) *Command {
	parts := strings.Fields(qualified)
	if len(parts) == 0 {
		return nil
	}
	cmd := r.Get(parts[0])
	for _, part := range parts[1:] {
		if cmd == nil {
			return nil
		}
		cmd = cmd.subcommand(part)
	}
	return cmd
}

// NewContext matches the first applicable prefix and resolves the deepest
// command named by the message. A message without a matching prefix yields a
// context with an empty Prefix.
func (r *Registry) NewContext(session Session, msg *discordgo.Message, me *discordgo.User, prefixes []string) *Context {
	c := &Context{Session: session, Message: msg, Me: me, Registry: r}

	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(msg.Content, prefix) {
			c.Prefix = prefix
			break
		}
	}
	if c.Prefix == "" {
		return c
	}

	tokens, err := splitArgs(msg.Content[len(c.Prefix):])
	if err != nil {
		c.ParseErr = err
		tokens = strings.Fields(msg.Content[len(c.Prefix):])
	}
	if len(tokens) == 0 {
		return c
	}

	c.InvokedWith = tokens[0]
	cmd := r.Get(tokens[0])
	consumed := 1
	for cmd != nil && cmd.IsGroup() && consumed < len(tokens) {
		sub := cmd.subcommand(tokens[consumed])
		if sub == nil {
			break
		}
		cmd = sub
		c.InvokedWith = tokens[consumed]
		consumed++
	}
	c.Command = cmd
	c.Args = tokens[consumed:]
	return c
}

// CanRun reports whether the context passes every check of cmd, without
// touching cooldowns.
func (r *Registry) CanRun(ctx context.Context, c *Context, cmd *Command) bool {
	return r.checkAll(ctx, c, cmd) == nil
}

func (r *Registry) checkAll(ctx context.Context, c *Context, cmd *Command) error {
	for _, link := range cmd.lineage() {
		if link.Disabled {
			return &DisabledError{Command: link.QualifiedName()}
		}
	}
	for _, check := range r.checks {
		if err := check(ctx, c); err != nil {
			return err
		}
	}
	for _, link := range cmd.lineage() {
		if link.GuildOnly && c.GuildID() == "" {
			return &NoPrivateMessageError{Command: link.QualifiedName()}
		}
		for _, check := range link.Checks {
			if err := check(ctx, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// Invoke runs the context's command: checks, cooldown, argument conversion,
// then the handler. A context naming no command returns *NotFoundError unless
// nothing followed the prefix.
func (r *Registry) Invoke(ctx context.Context, c *Context) error {
	cmd := c.Command
	if cmd == nil {
		if c.Prefix == "" || c.InvokedWith == "" {
			return nil
		}
		return &NotFoundError{Name: c.InvokedWith}
	}

	if err := r.checkAll(ctx, c, cmd); err != nil {
		return err
	}
	if cmd.buckets != nil {
		if retry := cmd.buckets.update(c); retry > 0 {
			return &CooldownError{Command: cmd.QualifiedName(), Cooldown: cmd.buckets.cooldown, RetryAfter: retry}
		}
	}
	if c.ParseErr != nil {
		return &BadArgumentError{Err: c.ParseErr}
	}
	values, err := convertArgs(cmd.Params, c.Args)
	if err != nil {
		return err
	}
	c.values = values

	if cmd.Handler == nil {
		return nil
	}
	return cmd.call(ctx, c)
}
