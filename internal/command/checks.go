package command

import (
	"context"
	"fmt"
)

// Owners is the set of user ids allowed past owner-only checks and
// maintenance mode.
type Owners map[string]struct{}

func NewOwners(ids ...string) Owners {
	owners := make(Owners, len(ids))
	for _, id := range ids {
		owners[id] = struct{}{}
	}
	return owners
}

func (o Owners) Contains(id string) bool {
	_, ok := o[id]
	return ok
}

// Blacklist maps user ids to the reason they were blacklisted.
type Blacklist map[string]string

func (b Blacklist) Reason(userID string) (string, bool) {
	reason, ok := b[userID]
	return reason, ok
}

// Maintenance fails every command with ErrMaintenance while active returns
// true, except for owners.
func Maintenance(active func() bool, owners Owners) Check {
	return func(_ context.Context, c *Context) error {
		if active() && !owners.Contains(c.AuthorID()) {
			return ErrMaintenance
		}
		return nil
	}
}

func Blacklisted(blacklist Blacklist) Check {
	return func(_ context.Context, c *Context) error {
		if reason, ok := blacklist.Reason(c.AuthorID()); ok {
			return &BlacklistedError{UserID: c.AuthorID(), Reason: reason}
		}
		return nil
	}
}

func OwnerOnly(owners Owners) Check {
	return func(_ context.Context, c *Context) error {
		if !owners.Contains(c.AuthorID()) {
			return &CheckFailureError{Command: commandName(c), Reason: "You do not own this bot."}
		}
		return nil
	}
}

// HasPermissions requires every bit of perms in the invoking channel.
// Direct messages always pass.
func HasPermissions(perms int64) Check {
	return func(_ context.Context, c *Context) error {
		if c.GuildID() == "" {
			return nil
		}
		have, err := c.Session.UserChannelPermissions(c.AuthorID(), c.ChannelID())
		if err != nil {
			return fmt.Errorf("resolve permissions: %w", err)
		}
		if have&perms != perms {
			return &CheckFailureError{Command: commandName(c), Reason: "You are missing permission(s) to run this command."}
		}
		return nil
	}
}

func commandName(c *Context) string {
	if c.Command == nil {
		return c.InvokedWith
	}
	return c.Command.QualifiedName()
}
