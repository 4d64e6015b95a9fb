// Package command implements prefix commands: the command tree, per-command
// checks and cooldowns, argument conversion and the error types every
// failure is reported with.
package command

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
)

type Handler func(ctx context.Context, c *Context) error

// Check returns nil when the context may run the command. Failures are
// usually *CheckFailureError but any error is passed through unchanged.
type Check func(ctx context.Context, c *Context) error

// Module groups related commands, the unit the bot registers at startup.
type Module interface {
	Name() string
	Commands() []*Command
}

// ErrorHook is implemented by modules that handle their own command errors.
type ErrorHook interface {
	OnCommandError(ctx context.Context, c *Context, err error)
}

type Command struct {
	Name        string
	Aliases     []string
	Description string
	Params      []Param
	Checks      []Check
	Cooldown    *Cooldown
	GuildOnly   bool
	Disabled    bool
	Hidden      bool
	Subcommands []*Command
	Handler     Handler
	OnError     func(ctx context.Context, c *Context, err error)

	parent  *Command
	module  Module
	buckets *cooldownMapping
}

func (cmd *Command) QualifiedName() string {
	if cmd.parent == nil {
		return cmd.Name
	}
	return cmd.parent.QualifiedName() + " " + cmd.Name
}

func (cmd *Command) String() string {
	return cmd.QualifiedName()
}

func (cmd *Command) IsGroup() bool {
	return len(cmd.Subcommands) > 0
}

func (cmd *Command) Parent() *Command {
	return cmd.parent
}

func (cmd *Command) Module() Module {
	return cmd.module
}

// HasLocalErrorHandler reports whether the command or its module handles
// errors itself.
func (cmd *Command) HasLocalErrorHandler() bool {
	if cmd.OnError != nil {
		return true
	}
	_, ok := cmd.module.(ErrorHook)
	return ok
}

// ResetCooldown gives back the use consumed by the context's bucket.
func (cmd *Command) ResetCooldown(c *Context) {
	if cmd.buckets != nil {
		cmd.buckets.reset(c)
	}
}

func (cmd *Command) subcommand(name string) *Command {
	for _, sub := range cmd.Subcommands {
		if sub.matches(name) {
			return sub
		}
	}
	return nil
}

func (cmd *Command) matches(name string) bool {
	if strings.EqualFold(cmd.Name, name) {
		return true
	}
	for _, alias := range cmd.Aliases {
		if strings.EqualFold(alias, name) {
			return true
		}
	}
	return false
}

// lineage returns the command chain from the root group down to cmd.
func (cmd *Command) lineage() []*Command {
	var chain []*Command
	for cur := cmd; cur != nil; cur = cur.parent {
		chain = append([]*Command{cur}, chain...)
	}
	return chain
}

func (cmd *Command) call(ctx context.Context, c *Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &InvokeError{
				Command: cmd.QualifiedName(),
				Err:     fmt.Errorf("panic: %v", rec),
				Stack:   debug.Stack(),
			}
		}
	}()
	if err := cmd.Handler(ctx, c); err != nil {
		return &InvokeError{Command: cmd.QualifiedName(), Err: err}
	}
	return nil
}
