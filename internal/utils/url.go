package utils

import (
	"errors"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

var ErrInvalidWebhookURL = errors.New("invalid webhook url")

// NormalizeEndpoint lowercases and punycodes the host of a configured service
// URL, defaults the scheme to https and strips credentials, fragments and any
// trailing slash so paths can be appended to it.
func NormalizeEndpoint(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	host := strings.ToLower(parsed.Hostname())
	asciiHost, err := idna.ToASCII(host)
	if err == nil {
		host = asciiHost
	}
	if port := parsed.Port(); port != "" {
		host = host + ":" + port
	}

	parsed.Host = host
	parsed.Fragment = ""
	parsed.User = nil
	parsed.Path = strings.TrimRight(parsed.Path, "/")

	return parsed.String(), nil
}

// ParseWebhookURL extracts the id and token from a Discord webhook URL of the
// form https://discord.com/api/webhooks/{id}/{token}.
func ParseWebhookURL(raw string) (string, string, error) {
	normalized, err := NormalizeEndpoint(raw)
	if err != nil {
		return "", "", err
	}
	parsed, err := url.Parse(normalized)
	if err != nil {
		return "", "", err
	}

	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i, part := range parts {
		if part != "webhooks" {
			continue
		}
		if len(parts) < i+3 || parts[i+1] == "" || parts[i+2] == "" {
			break
		}
		return parts[i+1], parts[i+2], nil
	}
	return "", "", ErrInvalidWebhookURL
}

// JumpURL builds the client link for a message; an empty guild id means a DM.
func JumpURL(guildID, channelID, messageID string) string {
	if guildID == "" {
		guildID = "@me"
	}
	return "https://discord.com/channels/" + guildID + "/" + channelID + "/" + messageID
}
