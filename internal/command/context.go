package command

import (
	"regexp"
	"strings"

	"chuck/internal/utils"

	"github.com/bwmarrin/discordgo"
)

// Session is the subset of *discordgo.Session commands talk to.
type Session interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
}

var mentionPattern = regexp.MustCompile(`<@!?(\d+)>`)

type Context struct {
	Session    Session
	Message    *discordgo.Message
	Me         *discordgo.User
	Registry   *Registry
	EmbedColor int

	// Prefix is the matched prefix, empty when the message used none.
	Prefix      string
	InvokedWith string
	Command     *Command
	Args        []string

	// ParseErr is set when the arguments could not be tokenised.
	ParseErr error

	values map[string]any
}

// Valid reports whether the message used a prefix and named a known command.
func (c *Context) Valid() bool {
	return c.Prefix != "" && c.Command != nil
}

func (c *Context) GuildID() string {
	if c.Message == nil {
		return ""
	}
	return c.Message.GuildID
}

func (c *Context) ChannelID() string {
	if c.Message == nil {
		return ""
	}
	return c.Message.ChannelID
}

func (c *Context) Author() *discordgo.User {
	if c.Message == nil {
		return nil
	}
	return c.Message.Author
}

func (c *Context) AuthorID() string {
	if author := c.Author(); author != nil {
		return author.ID
	}
	return ""
}

func (c *Context) Module() Module {
	if c.Command == nil {
		return nil
	}
	return c.Command.module
}

func (c *Context) Embed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       c.EmbedColor,
	}
}

func (c *Context) Send(content string) (*discordgo.Message, error) {
	return c.Session.ChannelMessageSend(c.ChannelID(), content)
}

func (c *Context) SendEmbed(embed *discordgo.MessageEmbed) (*discordgo.Message, error) {
	return c.Session.ChannelMessageSendEmbed(c.ChannelID(), embed)
}

// DirectMessage sends the embed to the author's DM channel.
func (c *Context) DirectMessage(embed *discordgo.MessageEmbed) error {
	channel, err := c.Session.UserChannelCreate(c.AuthorID())
	if err != nil {
		return err
	}
	_, err = c.Session.ChannelMessageSendEmbed(channel.ID, embed)
	return err
}

func (c *Context) Typing() error {
	return c.Session.ChannelTyping(c.ChannelID())
}

// CleanPrefix renders a mention prefix as "@name " for help pointers.
func (c *Context) CleanPrefix() string {
	if c.Me == nil {
		return c.Prefix
	}
	return mentionPattern.ReplaceAllStringFunc(c.Prefix, func(mention string) string {
		if strings.Trim(mention, "<@!>") == c.Me.ID {
			return "@" + c.Me.Username
		}
		return mention
	})
}

func (c *Context) JumpURL() string {
	if c.Message == nil {
		return ""
	}
	return utils.JumpURL(c.Message.GuildID, c.Message.ChannelID, c.Message.ID)
}

func (c *Context) Has(name string) bool {
	_, ok := c.values[name]
	return ok
}

func (c *Context) Arg(name string) string {
	value, _ := c.values[name].(string)
	return value
}

func (c *Context) IntArg(name string) int64 {
	value, _ := c.values[name].(int64)
	return value
}
