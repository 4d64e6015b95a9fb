package errhandler

import (
	"errors"
	"fmt"
	"strings"

	"chuck/internal/command"
)

// Traceback lists the error chain outermost first, followed by the stack of
// a recovered panic when there is one.
func Traceback(err error) string {
	var b strings.Builder
	b.WriteString("Traceback (outermost error first):\n")
	writeChain(&b, err, 1)

	var invokeErr *command.InvokeError
	if errors.As(err, &invokeErr) && len(invokeErr.Stack) > 0 {
		b.WriteString("\n")
		b.Write(invokeErr.Stack)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeChain(b *strings.Builder, err error, depth int) {
	for err != nil {
		fmt.Fprintf(b, "%s%T: %v\n", strings.Repeat("  ", depth), err, err)
		switch wrapped := err.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range wrapped.Unwrap() {
				writeChain(b, inner, depth+1)
			}
			return
		case interface{ Unwrap() error }:
			err = wrapped.Unwrap()
		default:
			return
		}
	}
}

// prettyTraceback is the paste body: a header naming the failed invocation
// above the traceback.
func prettyTraceback(c *command.Context, id string, err error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "// error id: %s\n", id)
	fmt.Fprintf(&b, "// command: %s\n", commandName(c))
	if author := c.Author(); author != nil {
		fmt.Fprintf(&b, "// user: %s (%s)\n", author.Username, author.ID)
	}
	fmt.Fprintf(&b, "// guild: %s channel: %s\n\n", orDM(c.GuildID()), c.ChannelID())
	b.WriteString(Traceback(err))
	return b.String()
}

func orDM(guildID string) string {
	if guildID == "" {
		return "DM"
	}
	return guildID
}
