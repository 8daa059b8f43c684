package environment

import (
	"strings"
	"testing"
	"time"
)

func fakeEnv(vars map[string]string) *Reader {
	return &Reader{lookup: func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}}
}

func TestReaderDefaults(t *testing.T) {
	r := fakeEnv(nil)

	if got := r.String("DATABASE_PATH", "./hisho.db"); got != "./hisho.db" {
		t.Errorf("String: got %q, want %q", got, "./hisho.db")
	}
	if got := r.Bool("ENABLE_TASKS", true); !got {
		t.Error("Bool: expected default true")
	}
	if got := r.Int("MAX_REQUESTS_PER_MINUTE", 60); got != 60 {
		t.Errorf("Int: got %d, want 60", got)
	}
	if got := r.Duration("REQUEST_TIMEOUT", 30*time.Second); got != 30*time.Second {
		t.Errorf("Duration: got %v, want 30s", got)
	}
	if got := r.List("MATRIX_ROOMS", nil); got != nil {
		t.Errorf("List: got %v, want nil", got)
	}
	if got := r.Location("DEFAULT_TIMEZONE", time.UTC); got != time.UTC {
		t.Errorf("Location: got %v, want UTC", got)
	}
	if err := r.Err(); err != nil {
		t.Errorf("Err: unexpected %v", err)
	}
}

func TestReaderParsesValues(t *testing.T) {
	r := fakeEnv(map[string]string{
		"ENABLE_TASKS":     "false",
		"LIMIT":            " 12 ",
		"TIMEOUT":          "5s",
		"ROOMS":            "!a:hs, ,!b:hs",
		"DEFAULT_TIMEZONE": "Europe/Bucharest",
		"NLP_PROVIDER":     "OpenAI",
	})

	if r.Bool("ENABLE_TASKS", true) {
		t.Error("Bool: expected false")
	}
	if got := r.Int("LIMIT", 0); got != 12 {
		t.Errorf("Int: got %d, want 12", got)
	}
	if got := r.Duration("TIMEOUT", 0); got != 5*time.Second {
		t.Errorf("Duration: got %v, want 5s", got)
	}
	rooms := r.List("ROOMS", nil)
	if len(rooms) != 2 || rooms[0] != "!a:hs" || rooms[1] != "!b:hs" {
		t.Errorf("List: got %v", rooms)
	}
	if got := r.Location("DEFAULT_TIMEZONE", time.UTC); got.String() != "Europe/Bucharest" {
		t.Errorf("Location: got %v", got)
	}
	if got := r.OneOf("NLP_PROVIDER", "gemini", "gemini", "openai", "none"); got != "openai" {
		t.Errorf("OneOf: got %q, want openai", got)
	}
	if err := r.Err(); err != nil {
		t.Errorf("Err: unexpected %v", err)
	}
}

func TestReaderCollectsAllErrors(t *testing.T) {
	r := fakeEnv(map[string]string{
		"ENABLE_TASKS":     "sometimes",
		"LIMIT":            "many",
		"DEFAULT_TIMEZONE": "Mars/Olympus",
	})

	r.Bool("ENABLE_TASKS", true)
	r.Int("LIMIT", 1)
	r.Location("DEFAULT_TIMEZONE", time.UTC)
	r.Required("MATRIX_HOMESERVER")

	err := r.Err()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	for _, name := range []string{"ENABLE_TASKS", "LIMIT", "DEFAULT_TIMEZONE", "MATRIX_HOMESERVER"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not mention %s", err, name)
		}
	}
}
