package nlp

import (
	"strings"
	"testing"
	"time"

	"github.com/bdobrica/Hisho/internal/hisho/intent"
)

func TestRenderPrompt_OnlyEnabledServices(t *testing.T) {
	now := time.Date(2026, 5, 14, 10, 30, 0, 0, time.UTC)
	all := intent.AllServices

	// Every subset of the known services.
	for mask := 0; mask < 1<<len(all); mask++ {
		enabled := intent.ServiceSet{}
		for i, s := range all {
			if mask&(1<<i) != 0 {
				enabled[s] = true
			}
		}
		prompt := RenderPrompt(PromptInput{Now: now, Enabled: enabled, Utterance: "hello"})

		for _, vocab := range intent.Catalogue {
			marker := "[SERVICE_ACTION: " + strings.ToUpper(string(vocab.Service))
			if enabled.Has(vocab.Service) {
				if !strings.Contains(prompt, marker) {
					t.Errorf("mask %05b: enabled %s missing from prompt", mask, vocab.Service)
				}
				continue
			}
			if strings.Contains(prompt, marker) {
				t.Errorf("mask %05b: disabled %s advertised", mask, vocab.Service)
			}
			for _, verb := range vocab.Verbs {
				if strings.Contains(prompt, verb.Name) {
					t.Errorf("mask %05b: disabled verb %s advertised", mask, verb.Name)
				}
			}
		}
	}
}

func TestRenderPrompt_Content(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	now := time.Date(2026, 5, 14, 10, 30, 0, 0, loc)
	prompt := RenderPrompt(PromptInput{
		Now:       now,
		Enabled:   intent.NewServiceSet(intent.Calendar),
		History:   "Previous conversation:\nUser: hi\nAssistant: hello",
		Utterance: "what's next week like",
	})

	for _, want := range []string{
		"Thursday, May 14, 2026 10:30",
		`[SERVICE_ACTION: CALENDAR | action: VIEW_EVENTS | range: "..."]`,
		"User: anything next week?",
		"one short sentence",
		"Previous conversation:\nUser: hi",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt lacks %q", want)
		}
	}
	if !strings.HasSuffix(prompt, "User: what's next week like\nAssistant:") {
		t.Errorf("prompt must end with the utterance, got tail %q", prompt[len(prompt)-60:])
	}
}

func TestRenderPrompt_NoServices(t *testing.T) {
	prompt := RenderPrompt(PromptInput{Now: time.Now(), Utterance: "hi"})
	if strings.Contains(prompt, "[SERVICE_ACTION: <SERVICE>") {
		t.Error("tag syntax advertised with no services")
	}
}
