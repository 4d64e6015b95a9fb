// Package prefix resolves per-guild command prefixes through an in-memory
// cache in front of the prefixes table.
package prefix

import (
	"context"
	"errors"
	"sync"
	"unicode/utf8"
)

// MaxLength mirrors the VARCHAR(50) column.
const MaxLength = 50

var ErrInvalidPrefix = errors.New("prefix must be between 1 and 50 characters")

type Store interface {
	Prefix(ctx context.Context, guildID string) (string, bool, error)
	UpsertPrefix(ctx context.Context, guildID, prefix string) error
	Prefixes(ctx context.Context) (map[string]string, error)
}

// Cache entries live for the process lifetime; changes made to the table by
// another process are not observed.
type Cache struct {
	mu            sync.RWMutex
	store         Store
	defaultPrefix string
	entries       map[string]string
}

func NewCache(store Store, defaultPrefix string) *Cache {
	return &Cache{
		store:         store,
		defaultPrefix: defaultPrefix,
		entries:       make(map[string]string),
	}
}

func (c *Cache) Default() string {
	return c.defaultPrefix
}

// Warm loads every stored prefix. Entries already cached are overwritten.
func (c *Cache) Warm(ctx context.Context) (int, error) {
	all, err := c.store.Prefixes(ctx)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for guildID, prefix := range all {
		c.entries[guildID] = prefix
	}
	return len(all), nil
}

// Prefix returns the guild's prefix. On a miss the table is consulted and, if
// the guild has no row, the default is upserted so the row exists afterwards.
// Concurrent misses for one guild may upsert twice; the upsert is idempotent.
func (c *Cache) Prefix(ctx context.Context, guildID string) (string, error) {
	if guildID == "" {
		return c.defaultPrefix, nil
	}
	if prefix, ok := c.cached(guildID); ok {
		return prefix, nil
	}

	prefix, found, err := c.store.Prefix(ctx, guildID)
	if err != nil {
		return "", err
	}
	if !found {
		prefix = c.defaultPrefix
		if err := c.store.UpsertPrefix(ctx, guildID, prefix); err != nil {
			return "", err
		}
	}

	c.mu.Lock()
	c.entries[guildID] = prefix
	c.mu.Unlock()
	return prefix, nil
}

// Resolve returns the prefixes accepted in a context: both mention forms of
// the bot followed by the guild prefix, or the default prefix in DMs.
func (c *Cache) Resolve(ctx context.Context, guildID, botID string) ([]string, error) {
	prefix, err := c.Prefix(ctx, guildID)
	if err != nil {
		return nil, err
	}
	return WhenMentionedOr(botID, prefix), nil
}

// Set writes the prefix and only then updates the cache, so a failed write
// leaves the previous value in place.
func (c *Cache) Set(ctx context.Context, guildID, prefix string) error {
	if n := utf8.RuneCountInString(prefix); n == 0 || n > MaxLength {
		return ErrInvalidPrefix
	}
	if err := c.store.UpsertPrefix(ctx, guildID, prefix); err != nil {
		return err
	}
	c.mu.Lock()
	c.entries[guildID] = prefix
	c.mu.Unlock()
	return nil
}

func (c *Cache) cached(guildID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	prefix, ok := c.entries[guildID]
	return prefix, ok
}

func WhenMentionedOr(botID string, prefixes ...string) []string {
	out := make([]string, 0, len(prefixes)+2)
	if botID != "" {
		out = append(out, "<@"+botID+"> ", "<@!"+botID+"> ")
	}
	return append(out, prefixes...)
}
