// Package errhandler turns command errors into replies. Rules are tried in
// order and the first match handles the error; anything no rule recognises is
// treated as a bug and reported.
package errhandler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"chuck/internal/command"
	"chuck/internal/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"
)

const (
	DefaultTracebackLimit  = 1700
	defaultBlacklistReason = "No reason, you probably did something dumb."
	webhookContentLimit    = 1900
)

// Uploader stores a document on a paste service and returns its URL.
type Uploader interface {
	Upload(ctx context.Context, content, ext string) (string, error)
}

// Reporter delivers a diagnostic message to the operators.
type Reporter interface {
	Report(ctx context.Context, content string, embed *discordgo.MessageEmbed) error
}

type Options struct {
	Logger         *zap.Logger
	Uploader       Uploader
	Reporter       Reporter
	SupportInvite  string
	TracebackLimit int
}

type Rule struct {
	Name   string
	Match  func(c *command.Context, err error) bool
	Action func(ctx context.Context, c *command.Context, err error) error
}

type Handler struct {
	logger         *zap.Logger
	uploader       Uploader
	reporter       Reporter
	supportInvite  string
	tracebackLimit int
	rules          []Rule
}

func New(opts Options) *Handler {
	h := &Handler{
		logger:         opts.Logger,
		uploader:       opts.Uploader,
		reporter:       opts.Reporter,
		supportInvite:  opts.SupportInvite,
		tracebackLimit: opts.TracebackLimit,
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.tracebackLimit <= 0 {
		h.tracebackLimit = DefaultTracebackLimit
	}
	h.rules = h.buildRules()
	return h
}

func (h *Handler) buildRules() []Rule {
	return []Rule{
		{Name: "maintenance", Match: isErr(command.ErrMaintenance), Action: h.maintenance},
		{Name: "blacklisted", Match: isType[*command.BlacklistedError](), Action: h.blacklisted},
		{Name: "not_registered", Match: isType[*command.NotRegisteredError](), Action: h.notRegistered},
		{Name: "locally_handled", Match: locallyHandled, Action: silent},
		{Name: "command_not_found", Match: isType[*command.NotFoundError](), Action: h.notFound},
		{Name: "check_failure", Match: isType[*command.CheckFailureError](), Action: h.checkFailure},
		{Name: "forbidden", Match: forbidden, Action: h.forbidden},
		{Name: "cooldown", Match: isType[*command.CooldownError](), Action: h.cooldown},
		{Name: "no_private_message", Match: isType[*command.NoPrivateMessageError](), Action: h.noPrivateMessage},
		{Name: "missing_argument", Match: isType[*command.MissingArgumentError](), Action: h.missingArgument},
		{Name: "disabled", Match: isType[*command.DisabledError](), Action: h.disabled},
		{Name: "bad_argument", Match: isType[*command.BadArgumentError](), Action: h.badArgument},
		{Name: "timeout", Match: timedOut, Action: h.timeout},
		{Name: "unclassified", Match: func(*command.Context, error) bool { return true }, Action: h.unclassified},
	}
}

// Rules returns the rule table in evaluation order.
func (h *Handler) Rules() []Rule {
	out := make([]Rule, len(h.rules))
	copy(out, h.rules)
	return out
}

// Classify returns the name of the first rule matching err.
func (h *Handler) Classify(c *command.Context, err error) string {
	return h.match(c, err).Name
}

func (h *Handler) match(c *command.Context, err error) Rule {
	for _, rule := range h.rules {
		if rule.Match(c, err) {
			return rule
		}
	}
	return h.rules[len(h.rules)-1]
}

// Handle resets the invoker's cooldown unless the error is about cooldowns or
// an unknown command, then runs the first matching rule. It returns the name
// of that rule.
func (h *Handler) Handle(ctx context.Context, c *command.Context, err error) string {
	if err == nil {
		return ""
	}

	var notFound *command.NotFoundError
	var onCooldown *command.CooldownError
	if c.Command != nil && !errors.As(err, &notFound) && !errors.As(err, &onCooldown) {
		c.Command.ResetCooldown(c)
	}

	rule := h.match(c, err)
	if actionErr := rule.Action(ctx, c, err); actionErr != nil {
		h.logger.Warn("error reply failed",
			zap.String("rule", rule.Name),
			zap.String("command", commandName(c)),
			zap.String("channel_id", c.ChannelID()),
			zap.Error(actionErr),
		)
	}
	return rule.Name
}

func isErr(target error) func(*command.Context, error) bool {
	return func(_ *command.Context, err error) bool {
		return errors.Is(err, target)
	}
}

func isType[T error]() func(*command.Context, error) bool {
	return func(_ *command.Context, err error) bool {
		var target T
		return errors.As(err, &target)
	}
}

func locallyHandled(c *command.Context, _ error) bool {
	return c.Command != nil && c.Command.HasLocalErrorHandler()
}

func forbidden(_ *command.Context, err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusForbidden
}

func timedOut(_ *command.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func silent(context.Context, *command.Context, error) error {
	return nil
}

func (h *Handler) send(c *command.Context, description string) error {
	_, err := c.SendEmbed(c.Embed("", description))
	return err
}

func (h *Handler) maintenance(_ context.Context, c *command.Context, _ error) error {
	_, err := c.SendEmbed(c.Embed("⚠️ Maintenance mode is active.", ""))
	return err
}

func (h *Handler) blacklisted(_ context.Context, c *command.Context, err error) error {
	var blacklisted *command.BlacklistedError
	errors.As(err, &blacklisted)

	reason := blacklisted.Reason
	if reason == "" {
		reason = defaultBlacklistReason
	}
	embed := c.Embed("⚠️ You are blacklisted.", fmt.Sprintf(
		"**Blacklisted For:** %s\n\nYou can join the support server [here](%s) if you feel this is a mistake.",
		reason, h.supportInvite,
	))

	if dmErr := c.DirectMessage(embed); dmErr == nil {
		return nil
	}
	_, sendErr := c.SendEmbed(embed)
	return sendErr
}

func (h *Handler) notRegistered(_ context.Context, c *command.Context, err error) error {
	var notRegistered *command.NotRegisteredError
	errors.As(err, &notRegistered)
	_, sendErr := c.Send(notRegistered.Error())
	return sendErr
}

func (h *Handler) notFound(ctx context.Context, c *command.Context, err error) error {
	var notFound *command.NotFoundError
	errors.As(err, &notFound)

	failed := failedInput(c, notFound.Name)
	suggestion := h.suggest(ctx, c, failed)
	if suggestion == "" {
		return nil
	}
	return h.send(c, fmt.Sprintf("No command called `%s` found. Did you mean `%s`?", failed, suggestion))
}

// failedInput is the first line of the message after the prefix, so
// arguments take part in the match too.
func failedInput(c *command.Context, name string) string {
	if c.Message == nil || c.Prefix == "" || !strings.HasPrefix(c.Message.Content, c.Prefix) {
		return name
	}
	rest := strings.TrimLeftFunc(c.Message.Content[len(c.Prefix):], unicode.IsSpace)
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[:i]
	}
	if rest = strings.TrimRightFunc(rest, unicode.IsSpace); rest == "" {
		return name
	}
	return rest
}

// suggest returns the best fuzzy match the invoker is allowed to run.
func (h *Handler) suggest(ctx context.Context, c *command.Context, name string) string {
	if c.Registry == nil || name == "" {
		return ""
	}
	for _, match := range fuzzy.Find(name, c.Registry.Names()) {
		cmd := c.Registry.Find(match.Str)
		if cmd == nil || cmd.Hidden {
			continue
		}
		if c.Registry.CanRun(ctx, c, cmd) {
			return match.Str
		}
	}
	return ""
}

func (h *Handler) checkFailure(_ context.Context, c *command.Context, _ error) error {
	return h.send(c, fmt.Sprintf("You do not have the correct permissions for `%s`", commandName(c)))
}

func (h *Handler) forbidden(_ context.Context, c *command.Context, _ error) error {
	return h.send(c, fmt.Sprintf("I do not have the correct permissions for `%s`", commandName(c)))
}

func (h *Handler) cooldown(_ context.Context, c *command.Context, err error) error {
	var onCooldown *command.CooldownError
	errors.As(err, &onCooldown)

	cd := onCooldown.Cooldown
	return h.send(c, fmt.Sprintf(
		"**%s** is on cooldown. Try again in %s.\nYou can use this command **%d time(s) every %s**.\nType: %s",
		commandName(c), utils.PreciseDelta(onCooldown.RetryAfter), cd.Rate, utils.PreciseDelta(cd.Per), cd.Bucket,
	))
}

func (h *Handler) noPrivateMessage(_ context.Context, c *command.Context, _ error) error {
	_ = c.DirectMessage(c.Embed("", fmt.Sprintf("`%s` cannot be used in DM's", c.InvokedWith)))
	return nil
}

func (h *Handler) missingArgument(_ context.Context, c *command.Context, err error) error {
	var missing *command.MissingArgumentError
	errors.As(err, &missing)
	return h.send(c, fmt.Sprintf(
		"`%s` is a required argument that is missing.\nYou can view the help for this command with `%shelp` `%s`",
		missing.Param.Name, c.CleanPrefix(), commandName(c),
	))
}

func (h *Handler) disabled(_ context.Context, c *command.Context, _ error) error {
	return h.send(c, fmt.Sprintf("`%s` has been disabled.", commandName(c)))
}

func (h *Handler) badArgument(_ context.Context, c *command.Context, err error) error {
	var bad *command.BadArgumentError
	errors.As(err, &bad)
	name := commandName(c)
	_, sendErr := c.SendEmbed(c.Embed(bad.Error(), fmt.Sprintf(
		"You provided a bad argument to `%s`! View `%shelp %s` for more info on how to use this command.",
		name, c.CleanPrefix(), name,
	)))
	return sendErr
}

func (h *Handler) timeout(_ context.Context, c *command.Context, _ error) error {
	return h.send(c, fmt.Sprintf("%s timed out.", commandName(c)))
}

func (h *Handler) unclassified(ctx context.Context, c *command.Context, err error) error {
	id := uuid.NewString()
	name := commandName(c)
	trace := Traceback(err)

	h.logger.Error("ignoring exception in command",
		zap.String("error_id", id),
		zap.String("command", name),
		zap.String("guild_id", c.GuildID()),
		zap.String("channel_id", c.ChannelID()),
		zap.String("user_id", c.AuthorID()),
		zap.Error(err),
		zap.String("traceback", trace),
	)

	pasteURL := h.upload(ctx, prettyTraceback(c, id, err))

	if h.reporter != nil {
		embed := c.Embed("AN ERROR OCCURRED", reportDescription(c, id))
		embed.URL = pasteURL
		content := "```go\n" + truncate(trace, webhookContentLimit) + "\n```"
		if reportErr := h.reporter.Report(ctx, content, embed); reportErr != nil {
			h.logger.Warn("error report failed", zap.String("error_id", id), zap.Error(reportErr))
		}
	}

	body := trace
	if len(body) > h.tracebackLimit {
		if pasteURL != "" {
			body = pasteURL
		} else {
			body = truncate(trace, h.tracebackLimit)
		}
	}
	_, sendErr := c.Send(fmt.Sprintf(
		"Something has gone wrong while executing `%s`. You should not be seeing this, I have contacted my developer with information about this error.\n```go\n%s\n```",
		name, body,
	))
	return sendErr
}

func (h *Handler) upload(ctx context.Context, content string) string {
	if h.uploader == nil {
		return ""
	}
	pasteURL, err := h.uploader.Upload(ctx, content, "go")
	if err != nil {
		h.logger.Warn("traceback upload failed", zap.Error(err))
		return ""
	}
	return pasteURL
}

func reportDescription(c *command.Context, id string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Error ID: %s\n", id)
	fmt.Fprintf(&b, "Command: %s\n", c.InvokedWith)
	if c.Message != nil {
		fmt.Fprintf(&b, "Full content: %s\n", EscapeMarkdown(c.Message.Content))
	}
	fmt.Fprintf(&b, "Guild: %s\n", orDM(c.GuildID()))
	fmt.Fprintf(&b, "Channel: %s\n", c.ChannelID())
	if author := c.Author(); author != nil {
		fmt.Fprintf(&b, "User: %s (%s)\n", author.Username, author.ID)
	}
	fmt.Fprintf(&b, "Jump URL: %s", c.JumpURL())
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"~", `\~`,
	"`", "\\`",
	"|", `\|`,
	">", `\>`,
)

// EscapeMarkdown backslash-escapes Discord markdown characters.
func EscapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

// truncate cuts s to at most limit bytes without splitting a rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func commandName(c *command.Context) string {
	if c.Command != nil {
		return c.Command.QualifiedName()
	}
	return c.InvokedWith
}
