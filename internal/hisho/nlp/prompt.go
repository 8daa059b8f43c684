package nlp

import (
	"fmt"
	"strings"
	"time"

	"github.com/bdobrica/Hisho/internal/hisho/intent"
)

// PromptInput is everything the rendered prompt depends on.
type PromptInput struct {
	Now       time.Time
	Enabled   intent.ServiceSet
	History   string // already formatted by session.ContextString
	Utterance string
}

// RenderPrompt builds the translator prompt. Only services in in.Enabled are
// described, so the model is never told about a capability it cannot use.
func RenderPrompt(in PromptInput) string {
	var b strings.Builder
	now := in.Now
	fmt.Fprintf(&b, "You are Hisho, a personal assistant with access to the user's productivity services.\n")
	fmt.Fprintf(&b, "Current date and time: %s (%s).\n\n", now.Format("Monday, January 2, 2006 15:04"), now.Location())

	services := in.Enabled.List()
	if len(services) == 0 {
		b.WriteString("No services are connected. Answer conversationally and do not emit action tags.\n\n")
	} else {
		b.WriteString("To act on a service, write an action tag on its own line using exactly this syntax:\n")
		b.WriteString(`[SERVICE_ACTION: <SERVICE> | action: <VERB> | key: "value" | ...]`)
		b.WriteString("\nUse one tag per action, in the order they must run. Only use the services and verbs listed below.\n\n")
		b.WriteString("Available services:\n")
		for _, s := range services {
			vocab, ok := intent.Lookup(s)
			if !ok {
				continue
			}
			writeVocabulary(&b, vocab)
		}

		b.WriteString("\nExamples:\n")
		for _, s := range services {
			vocab, _ := intent.Lookup(s)
			for _, ex := range vocab.Examples {
				fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", ex.Utterance, ex.Reply)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("Keep any text outside the tags to one short sentence; the tags alone drive execution. ")
	b.WriteString("If the request is unclear, ask one brief clarifying question instead of guessing.\n\n")

	if in.History != "" {
		b.WriteString(in.History)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "User: %s\nAssistant:", in.Utterance)
	return b.String()
}

func writeVocabulary(b *strings.Builder, v intent.Vocabulary) {
	name := strings.ToUpper(string(v.Service))
	fmt.Fprintf(b, "\n%s: %s\n", name, v.Summary)
	for _, verb := range v.Verbs {
		fmt.Fprintf(b, "- [SERVICE_ACTION: %s | action: %s", name, verb.Name)
		for _, p := range verb.Params {
			fmt.Fprintf(b, ` | %s: "..."`, p)
		}
		fmt.Fprintf(b, "] %s\n", verb.Summary)
	}
}
