package animepics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"chuck/internal/command"

	"github.com/bwmarrin/discordgo"
)

var categories = []string{"waifu", "neko", "shinobu", "megumin", "bully", "cuddle", "cry"}

type Module struct {
	http    *http.Client
	baseURL string
}

func New(httpClient *http.Client, baseURL string) *Module {
	return &Module{http: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

func (m *Module) Name() string {
	return "AnimePics"
}

func (m *Module) Commands() []*command.Command {
	commands := make([]*command.Command, 0, len(categories))
	for _, category := range categories {
		commands = append(commands, &command.Command{
			Name:        category,
			Description: "Sends a " + category,
			Cooldown:    &command.Cooldown{Rate: 1, Per: 3 * time.Second, Bucket: command.BucketUser},
			Handler:     m.sender(category),
		})
	}
	return commands
}

type picture struct {
	URL string `json:"url"`
}

func (m *Module) sender(category string) command.Handler {
	return func(ctx context.Context, c *command.Context) error {
		url, err := m.fetch(ctx, category)
		if err != nil {
			return err
		}
		embed := c.Embed("", "")
		embed.Image = &discordgo.MessageEmbedImage{URL: url}
		_, err = c.SendEmbed(embed)
		return err
	}
}

func (m *Module) fetch(ctx context.Context, category string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/"+category, nil)
	if err != nil {
		return "", err
	}
	resp, err := m.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: unexpected status %d", category, resp.StatusCode)
	}
	var pic picture
	if err := json.NewDecoder(resp.Body).Decode(&pic); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", category, err)
	}
	return pic.URL, nil
}
