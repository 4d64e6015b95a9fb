// Package commandtest provides an in-memory command.Session for tests.
package commandtest

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/bwmarrin/discordgo"
)

type Sent struct {
	ChannelID string
	Content   string
	Embed     *discordgo.MessageEmbed
	Files     []*discordgo.File
}

// Session records everything sent through it. DMChannelPrefix is prepended to
// the recipient id to form DM channel ids.
type Session struct {
	mu sync.Mutex

	Sent        []Sent
	Typing      []string
	Permissions map[string]int64

	DMError          error
	SendError        error
	PermissionsError error

	nextID int
}

const DMChannelPrefix = "dm-"

func NewSession() *Session {
	return &Session{Permissions: map[string]int64{}}
}

func (s *Session) record(channelID string, sent Sent) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SendError != nil {
		return nil, s.SendError
	}
	sent.ChannelID = channelID
	s.Sent = append(s.Sent, sent)
	s.nextID++
	return &discordgo.Message{ID: strconv.Itoa(s.nextID), ChannelID: channelID, Content: sent.Content}, nil
}

func (s *Session) ChannelMessageSend(channelID string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	return s.record(channelID, Sent{Content: content})
}

func (s *Session) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	return s.record(channelID, Sent{Embed: embed})
}

func (s *Session) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	sent := Sent{Content: data.Content, Files: data.Files}
	if len(data.Embeds) > 0 {
		sent.Embed = data.Embeds[0]
	}
	return s.record(channelID, sent)
}

func (s *Session) ChannelTyping(channelID string, _ ...discordgo.RequestOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Typing = append(s.Typing, channelID)
	return nil
}

func (s *Session) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DMError != nil {
		return nil, s.DMError
	}
	return &discordgo.Channel{ID: DMChannelPrefix + recipientID, Type: discordgo.ChannelTypeDM}, nil
}

func (s *Session) UserChannelPermissions(userID, channelID string, _ ...discordgo.RequestOption) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PermissionsError != nil {
		return 0, s.PermissionsError
	}
	return s.Permissions[userID+":"+channelID], nil
}

// Messages returns a copy of everything sent so far.
func (s *Session) Messages() []Sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Sent, len(s.Sent))
	copy(out, s.Sent)
	return out
}

func (s *Session) TypingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Typing)
}

// Forbidden builds the REST error discordgo returns for a 403 response.
func Forbidden() *discordgo.RESTError {
	return &discordgo.RESTError{
		Response:     &http.Response{StatusCode: http.StatusForbidden, Status: "403 Forbidden"},
		ResponseBody: []byte(`{"message": "Missing Permissions", "code": 50013}`),
		Message:      &discordgo.APIErrorMessage{Code: discordgo.ErrCodeMissingPermissions, Message: "Missing Permissions"},
	}
}
