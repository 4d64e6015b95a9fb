package prefixes

import (
	"context"
	"testing"

	"chuck/internal/command"
	"chuck/internal/command/commandtest"
	"chuck/internal/prefix"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore map[string]string

func (s memoryStore) Prefix(_ context.Context, guildID string) (string, bool, error) {
	p, ok := s[guildID]
	return p, ok, nil
}

func (s memoryStore) UpsertPrefix(_ context.Context, guildID, p string) error {
	s[guildID] = p
	return nil
}

func (s memoryStore) Prefixes(context.Context) (map[string]string, error) {
	return s, nil
}

type fixture struct {
	store   memoryStore
	cache   *prefix.Cache
	reg     *command.Registry
	session *commandtest.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memoryStore{}
	cache := prefix.NewCache(store, "p!")
	reg := command.NewRegistry()
	require.NoError(t, reg.Register(New(cache)))
	reg.Seal()
	return &fixture{store: store, cache: cache, reg: reg, session: commandtest.NewSession()}
}

func (f *fixture) invoke(t *testing.T, guildID, content string) error {
	t.Helper()
	ctx := context.Background()
	prefixes, err := f.cache.Resolve(ctx, guildID, "42")
	require.NoError(t, err)
	msg := &discordgo.Message{ID: "1", ChannelID: "c1", GuildID: guildID, Content: content, Author: &discordgo.User{ID: "u1"}}
	c := f.reg.NewContext(f.session, msg, &discordgo.User{ID: "42"}, prefixes)
	return f.reg.Invoke(ctx, c)
}

func TestShowPrefix(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.invoke(t, "g1", "p!prefix"))

	sent := f.session.Messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "My prefix here is `p!`", sent[0].Embed.Description)
	assert.Equal(t, "p!", f.store["g1"])
}

func TestSetPrefixRequiresManageServer(t *testing.T) {
	f := newFixture(t)
	err := f.invoke(t, "g1", "p!prefix set !!")
	var checkErr *command.CheckFailureError
	require.ErrorAs(t, err, &checkErr)
	assert.Equal(t, "p!", f.store["g1"])
}

func TestSetPrefixKeepsCacheAndStoreInSync(t *testing.T) {
	f := newFixture(t)
	f.session.Permissions["u1:c1"] = discordgo.PermissionManageServer

	require.NoError(t, f.invoke(t, "g1", "p!prefix change !!"))
	assert.Equal(t, "!!", f.store["g1"])

	got, err := f.cache.Prefix(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "!!", got)

	require.NoError(t, f.invoke(t, "g1", "!!prefix"))
	sent := f.session.Messages()
	assert.Equal(t, "Prefix changed to `!!`", sent[0].Embed.Description)
	assert.Equal(t, "My prefix here is `!!`", sent[1].Embed.Description)
}

func TestSetPrefixTooLong(t *testing.T) {
	f := newFixture(t)
	f.session.Permissions["u1:c1"] = discordgo.PermissionManageServer

	long := "abcdefghijabcdefghijabcdefghijabcdefghijabcdefghijx"
	err := f.invoke(t, "g1", "p!prefix set "+long)
	var bad *command.BadArgumentError
	require.ErrorAs(t, err, &bad)
	assert.Equal(t, "Prefix must be between 1 and 50 characters.", bad.Error())
	assert.Equal(t, "p!", f.store["g1"])
}

func TestSetPrefixRejectedInDM(t *testing.T) {
	f := newFixture(t)
	err := f.invoke(t, "", "p!prefix set !!")
	var dmErr *command.NoPrivateMessageError
	require.ErrorAs(t, err, &dmErr)
}
