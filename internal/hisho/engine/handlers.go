package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/bdobrica/Hisho/common/version"
	"github.com/bdobrica/Hisho/internal/hisho/intent"
	"github.com/bdobrica/Hisho/internal/hisho/prefs"
	"github.com/bdobrica/Hisho/internal/hisho/session"
)

const (
	welcomeMessage = "👋 **Hi, I'm Hisho!**\n\n" +
		"I can help with your %s. Just tell me what you need in plain words, " +
		"for example _\"what's on my calendar today?\"_.\n\n" +
		"Type /help for more examples."
	clearedMessage = "🗑 **Conversation cleared!**\nFresh start - how can I help?"
)

// serviceGuides are the /help examples for each service.
var serviceGuides = map[intent.Service][]string{
	intent.Calendar: {
		"\"What's on my calendar today?\"",
		"\"Schedule a meeting with Bob tomorrow at 3pm\"",
		"\"Find a free 2 hour slot on Friday\"",
		"\"Cancel the dentist appointment\"",
	},
	intent.Mail: {
		"\"Show my unread emails\"",
		"\"Delete the emails from newsletter@example.com\"",
		"\"Email jane@example.com about lunch\"",
	},
	intent.Contacts: {
		"\"What's Jane's number?\"",
		"\"Add a contact for Bob, bob@example.com\"",
	},
	intent.Drive: {
		"\"Show my recent files\"",
		"\"Create a folder called Reports\"",
	},
	intent.Tasks: {
		"\"Add a task to buy milk\"",
		"\"What are my tasks?\"",
		"\"Mark the groceries task done\"",
	},
}

func (e *Engine) registerCommands() *Commands {
	c := NewCommands()
	c.Register("start", e.handleStart)
	c.Register("help", e.handleHelp)
	c.Register("clear", e.handleClear)
	c.Register("status", e.handleStatus)
	c.Register("services", e.handleServices)
	c.Register("preferences", e.handlePreferences)
	c.Register("cancel", e.handleCancel)
	return c
}

func serviceNames(services []intent.Service) string {
	if len(services) == 0 {
		return "nothing yet (no services are enabled)"
	}
	names := make([]string, len(services))
	for i, s := range services {
		names[i] = strings.ToLower(s.Title())
	}
	if len(names) == 1 {
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}

func (e *Engine) handleStart(context.Context, *Command, *session.Session) (string, error) {
	return fmt.Sprintf(welcomeMessage, serviceNames(e.cfg.Enabled.List())), nil
}

func (e *Engine) handleHelp(_ context.Context, _ *Command, _ *session.Session) (string, error) {
	var b strings.Builder
	b.WriteString("📖 **What I can do**\n")
	for _, s := range e.cfg.Enabled.List() {
		fmt.Fprintf(&b, "\n**%s**\n", s.Title())
		for _, ex := range serviceGuides[s] {
			fmt.Fprintf(&b, "• %s\n", ex)
		}
	}
	b.WriteString("\n**Commands**\n")
	b.WriteString("• /clear - forget our conversation\n")
	b.WriteString("• /status - what I'm connected to\n")
	b.WriteString("• /services - enabled services\n")
	b.WriteString("• /preferences - your settings\n")
	b.WriteString("• /cancel - stop what we're doing")
	return b.String(), nil
}

func (e *Engine) handleClear(_ context.Context, _ *Command, sess *session.Session) (string, error) {
	sess.ClearHistory()
	for s := range sess.LastSearchResults {
		sess.ClearResults(s)
	}
	return clearedMessage, nil
}

func (e *Engine) handleCancel(context.Context, *Command, *session.Session) (string, error) {
	// Handle already discarded the pending interaction.
	return CancelledMessage, nil
}

func (e *Engine) handleStatus(context.Context, *Command, *session.Session) (string, error) {
	st := e.Status()
	var b strings.Builder
	fmt.Fprintf(&b, "🤖 **%s %s**\n", version.Name, version.Version)
	fmt.Fprintf(&b, "• Services: %s\n", serviceNames(st.Enabled))
	fmt.Fprintf(&b, "• Model: %s\n", st.Model)
	fmt.Fprintf(&b, "• State: %s\n", session.StateIdle)
	fmt.Fprintf(&b, "• Active sessions: %d\n", st.Sessions)
	fmt.Fprintf(&b, "• Uptime: %s", st.Uptime)
	return b.String(), nil
}

func (e *Engine) handleServices(context.Context, *Command, *session.Session) (string, error) {
	var b strings.Builder
	b.WriteString("🔌 **Services**")
	for _, s := range intent.AllServices {
		mark := "❌"
		if e.cfg.Enabled.Has(s) {
			mark = "✅"
		}
		v, _ := intent.Lookup(s)
		fmt.Fprintf(&b, "\n%s %s: %s", mark, s.Title(), v.Summary)
	}
	return b.String(), nil
}

// handlePreferences shows preferences, or sets one with
// "/preferences set <key> <value>".
func (e *Engine) handlePreferences(ctx context.Context, cmd *Command, sess *session.Session) (string, error) {
	if e.prefs == nil {
		return "⚠️ Preferences are not available.", nil
	}

	if strings.EqualFold(cmd.Arg(0), "set") {
		key := strings.ToLower(cmd.Arg(1))
		value := strings.Join(cmd.Args[min(2, len(cmd.Args)):], " ")
		if key == "" || value == "" {
			return "Usage: /preferences set <key> <value>\nKeys: " + strings.Join(prefs.Keys, ", "), nil
		}
		err := e.prefs.Set(ctx, sess.UserID, key, value)
		switch {
		case errors.Is(err, prefs.ErrUnknownKey):
			return fmt.Sprintf("❓ Unknown preference %q. Keys: %s", key, strings.Join(prefs.Keys, ", ")), nil
		case errors.Is(err, prefs.ErrInvalidValue):
			return fmt.Sprintf("❓ %q is not a valid value for %s.", value, key), nil
		case err != nil:
			return "", err
		}
		return fmt.Sprintf("✅ **%s** set to %s.", key, value), nil
	}

	all, err := e.prefs.List(ctx, sess.UserID)
	if err != nil {
		return "", err
	}
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	var b strings.Builder
	b.WriteString("⚙️ **Your preferences**")
	for _, k := range keys {
		fmt.Fprintf(&b, "\n• %s: %s", k, all[k])
	}
	b.WriteString("\n\nChange one with /preferences set <key> <value>")
	return b.String(), nil
}
