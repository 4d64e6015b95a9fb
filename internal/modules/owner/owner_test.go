package owner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"chuck/internal/command"
	"chuck/internal/command/commandtest"

	"github.com/bwmarrin/discordgo"
)

func TestMaintenanceToggle(t *testing.T) {
	var maintenance atomic.Bool
	owners := command.NewOwners("owner")

	reg := command.NewRegistry()
	reg.AddCheck(command.Maintenance(maintenance.Load, owners))
	if err := reg.Register(New(owners, &maintenance)); err != nil {
		t.Fatalf("register: %v", err)
	}
	reg.Seal()

	invoke := func(authorID string) (*commandtest.Session, error) {
		session := commandtest.NewSession()
		msg := &discordgo.Message{ID: "1", ChannelID: "c1", GuildID: "g1", Content: "p!maintenance", Author: &discordgo.User{ID: authorID}}
		c := reg.NewContext(session, msg, &discordgo.User{ID: "42"}, []string{"p!"})
		return session, reg.Invoke(context.Background(), c)
	}

	var checkErr *command.CheckFailureError
	if _, err := invoke("stranger"); err == nil || !errors.As(err, &checkErr) {
		t.Fatalf("expected owner-only failure, got %v", err)
	}

	session, err := invoke("owner")
	if err != nil {
		t.Fatalf("owner toggle: %v", err)
	}
	if !maintenance.Load() {
		t.Fatalf("expected maintenance on")
	}
	if got := session.Messages()[0].Embed.Description; got != "Maintenance mode is now **on**." {
		t.Fatalf("unexpected reply %q", got)
	}

	if _, err := invoke("stranger"); !errors.Is(err, command.ErrMaintenance) {
		t.Fatalf("expected maintenance error for non-owner, got %v", err)
	}

	if _, err := invoke("owner"); err != nil {
		t.Fatalf("owner bypasses maintenance: %v", err)
	}
	if maintenance.Load() {
		t.Fatalf("expected maintenance off")
	}
}
