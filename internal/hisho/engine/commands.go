package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bdobrica/Hisho/internal/hisho/session"
)

// Command is a parsed slash command.
type Command struct {
	Name string
	Args []string
	Raw  string
}

// Arg returns the argument at index, or "".
func (c *Command) Arg(index int) string {
	if index < 0 || index >= len(c.Args) {
		return ""
	}
	return c.Args[index]
}

// ErrNotACommand is returned by Parse when the message lacks the "/" prefix.
var ErrNotACommand = errors.New("engine: not a command")

// ErrUnknownCommand is returned by Route for an unregistered command.
var ErrUnknownCommand = errors.New("engine: unknown command")

// CommandHandler handles one command with exclusive access to the session.
type CommandHandler func(ctx context.Context, cmd *Command, sess *session.Session) (string, error)

// Commands routes slash commands to handlers.
type Commands struct {
	handlers map[string]CommandHandler
	order    []string
}

// NewCommands creates an empty router.
func NewCommands() *Commands {
	return &Commands{handlers: make(map[string]CommandHandler)}
}

// Register adds a handler for name (without the slash).
func (c *Commands) Register(name string, h CommandHandler) {
	if _, exists := c.handlers[name]; !exists {
		c.order = append(c.order, name)
	}
	c.handlers[name] = h
}

// Names lists registered commands in registration order.
func (c *Commands) Names() []string {
	return append([]string(nil), c.order...)
}

// Parse splits "/name arg1 arg2" into a Command. Names are case-insensitive
// and a "@bot" suffix on the name is ignored, as some clients add it.
func (c *Commands) Parse(text string) (*Command, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return nil, ErrNotACommand
	}
	parts := strings.Fields(strings.TrimPrefix(text, "/"))
	if len(parts) == 0 {
		return nil, fmt.Errorf("engine: empty command")
	}
	name := strings.ToLower(parts[0])
	if at := strings.IndexByte(name, '@'); at > 0 {
		name = name[:at]
	}
	return &Command{Name: name, Args: parts[1:], Raw: text}, nil
}

// Route runs the handler for cmd.
func (c *Commands) Route(ctx context.Context, cmd *Command, sess *session.Session) (string, error) {
	h, ok := c.handlers[cmd.Name]
	if !ok {
		return "", fmt.Errorf("%w: /%s", ErrUnknownCommand, cmd.Name)
	}
	return h(ctx, cmd, sess)
}
