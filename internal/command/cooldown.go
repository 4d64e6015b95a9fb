package command

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type BucketType int

const (
	BucketDefault BucketType = iota
	BucketUser
	BucketGuild
	BucketChannel
	BucketMember
)

func (b BucketType) String() string {
	switch b {
	case BucketUser:
		return "user"
	case BucketGuild:
		return "guild"
	case BucketChannel:
		return "channel"
	case BucketMember:
		return "member"
	default:
		return "default"
	}
}

// Cooldown allows Rate uses every Per, tracked separately for each bucket.
type Cooldown struct {
	Rate   int
	Per    time.Duration
	Bucket BucketType
}

type cooldownMapping struct {
	mu       sync.Mutex
	cooldown Cooldown
	now      func() time.Time
	buckets  map[string]*cooldownWindow
}

// cooldownWindow holds Rate uses that never refill; the window is replaced
// once Per has passed since its first use.
type cooldownWindow struct {
	start   time.Time
	limiter *rate.Limiter
}

func newCooldownMapping(cooldown Cooldown, now func() time.Time) *cooldownMapping {
	if cooldown.Rate <= 0 {
		cooldown.Rate = 1
	}
	return &cooldownMapping{
		cooldown: cooldown,
		now:      now,
		buckets:  make(map[string]*cooldownWindow),
	}
}

func (m *cooldownMapping) key(c *Context) string {
	switch m.cooldown.Bucket {
	case BucketUser:
		return c.AuthorID()
	case BucketGuild:
		if guildID := c.GuildID(); guildID != "" {
			return guildID
		}
		return c.AuthorID()
	case BucketChannel:
		return c.ChannelID()
	case BucketMember:
		return c.GuildID() + ":" + c.AuthorID()
	default:
		return "global"
	}
}

// update consumes one use and returns how long the caller must wait for the
// current window to end when all Rate uses are spent. A rejected attempt does
// not consume anything.
func (m *cooldownMapping) update(c *Context) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	key := m.key(c)
	window := m.buckets[key]
	if window == nil || !now.Before(window.start.Add(m.cooldown.Per)) {
		window = &cooldownWindow{start: now, limiter: rate.NewLimiter(0, m.cooldown.Rate)}
		m.buckets[key] = window
	}

	if window.limiter.AllowN(now, 1) {
		return 0
	}
	return window.start.Add(m.cooldown.Per).Sub(now)
}

func (m *cooldownMapping) reset(c *Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.buckets, m.key(c))
}
