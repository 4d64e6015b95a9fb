package errhandler

import (
	"context"

	"chuck/internal/utils"

	"github.com/bwmarrin/discordgo"
)

// WebhookExecutor is satisfied by *discordgo.Session.
type WebhookExecutor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// WebhookReporter posts error reports to a Discord webhook.
type WebhookReporter struct {
	executor WebhookExecutor
	id       string
	token    string
}

func NewWebhookReporter(executor WebhookExecutor, webhookURL string) (*WebhookReporter, error) {
	id, token, err := utils.ParseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}
	return &WebhookReporter{executor: executor, id: id, token: token}, nil
}

func (r *WebhookReporter) Report(ctx context.Context, content string, embed *discordgo.MessageEmbed) error {
	params := &discordgo.WebhookParams{
		Content:         content,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
	if embed != nil {
		params.Embeds = []*discordgo.MessageEmbed{embed}
	}
	_, err := r.executor.WebhookExecute(r.id, r.token, false, params, discordgo.WithContext(ctx))
	return err
}
