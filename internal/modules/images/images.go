package images

import (
	"bytes"
	"context"
	"strings"
	"time"

	"chuck/internal/command"
	"chuck/internal/imageapi"

	"github.com/bwmarrin/discordgo"
)

type Generator interface {
	Supreme(ctx context.Context, text string, opts imageapi.SupremeOptions) (imageapi.Image, error)
}

type Module struct {
	api Generator
}

func New(api Generator) *Module {
	return &Module{api: api}
}

func (m *Module) Name() string {
	return "Images"
}

func (m *Module) Commands() []*command.Command {
	return []*command.Command{
		{
			Name:        "supreme",
			Description: "Makes a supreme logo. Start the text with --dark or --light to change the style",
			Params:      []command.Param{{Name: "text", Kind: command.KindRest}},
			Cooldown:    &command.Cooldown{Rate: 1, Per: 5 * time.Second, Bucket: command.BucketUser},
			Handler:     m.supreme,
		},
	}
}

func (m *Module) supreme(ctx context.Context, c *command.Context) error {
	text, opts := supremeFlags(c.Arg("text"))
	img, err := m.api.Supreme(ctx, text, opts)
	if err != nil {
		return err
	}

	filename := img.Filename("supreme")
	embed := c.Embed("", "")
	embed.Image = &discordgo.MessageEmbedImage{URL: "attachment://" + filename}
	_, err = c.Session.ChannelMessageSendComplex(c.ChannelID(), &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Files: []*discordgo.File{{
			Name:        filename,
			ContentType: img.ContentType,
			Reader:      bytes.NewReader(img.Data),
		}},
	})
	return err
}

func supremeFlags(text string) (string, imageapi.SupremeOptions) {
	var opts imageapi.SupremeOptions
	for {
		switch {
		case strings.HasPrefix(text, "--dark"):
			opts.Dark = true
			text = strings.TrimSpace(strings.TrimPrefix(text, "--dark"))
		case strings.HasPrefix(text, "--light"):
			opts.Light = true
			text = strings.TrimSpace(strings.TrimPrefix(text, "--light"))
		default:
			return text, opts
		}
	}
}
