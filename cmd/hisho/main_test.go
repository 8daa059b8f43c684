package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bdobrica/Hisho/common/environment"
	"github.com/bdobrica/Hisho/internal/hisho/intent"
	"github.com/bdobrica/Hisho/internal/hisho/nlp"
)

// run executes the root command with args and stdin, returning stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := root.Execute()
	return out.String(), err
}

func offlineEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_PATH", filepath.Join(t.TempDir(), "hisho.db"))
	t.Setenv("NLP_PROVIDER", "none")
	t.Setenv("LOG_LEVEL", "error")
}

func TestLoadSettings_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "k")
	s, err := loadSettings(environment.NewReader())
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	if s.provider != "gemini" {
		t.Errorf("provider: got %q", s.provider)
	}
	if got := s.app.Enabled.List(); len(got) != len(intent.AllServices) {
		t.Errorf("enabled: got %v", got)
	}
	if s.app.PendingTTL != 30*time.Minute || s.app.RequestsPerMinute != nlp.DefaultRateLimit {
		t.Errorf("timing defaults: %+v", s.app)
	}
	if s.app.Matrix != nil || s.app.HTTP != nil {
		t.Error("transports enabled without configuration")
	}
	if s.app.PrefDefaults["email_count"] != "10" {
		t.Errorf("email_count default: got %q", s.app.PrefDefaults["email_count"])
	}
}

func TestLoadSettings_Overrides(t *testing.T) {
	t.Setenv("NLP_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ENABLE_DRIVE", "false")
	t.Setenv("DEFAULT_TIMEZONE", "Asia/Tokyo")
	t.Setenv("MATRIX_HOMESERVER", "https://matrix.example.org")
	t.Setenv("MATRIX_USER_ID", "@hisho:example.org")
	t.Setenv("MATRIX_ACCESS_TOKEN", "syt_x")
	t.Setenv("MATRIX_ROOMS", "!a:example.org,!b:example.org")
	t.Setenv("HTTP_ADDR", ":8080")
	t.Setenv("MODEL_TIMEOUT", "5s")

	s, err := loadSettings(environment.NewReader())
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	if s.provider != "openai" || s.openai.APIKey != "sk-test" || s.openai.Timeout != 5*time.Second {
		t.Errorf("openai: %q %+v", s.provider, s.openai)
	}
	if s.app.Enabled.Has(intent.Drive) {
		t.Error("drive still enabled")
	}
	if s.app.Location.String() != "Asia/Tokyo" || s.app.PrefDefaults["timezone"] != "Asia/Tokyo" {
		t.Errorf("location: %v", s.app.Location)
	}
	if s.app.Matrix == nil || len(s.app.Matrix.Rooms) != 2 {
		t.Errorf("matrix: %+v", s.app.Matrix)
	}
	if s.app.HTTP == nil || s.app.HTTP.Addr != ":8080" {
		t.Errorf("http: %+v", s.app.HTTP)
	}
}

func TestLoadSettings_ReportsEveryProblem(t *testing.T) {
	t.Setenv("NLP_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("MATRIX_HOMESERVER", "https://matrix.example.org")
	t.Setenv("HISTORY_LIMIT", "lots")

	_, err := loadSettings(environment.NewReader())
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, name := range []string{"GEMINI_API_KEY", "MATRIX_USER_ID", "MATRIX_ACCESS_TOKEN", "HISTORY_LIMIT"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error does not mention %s: %v", name, err)
		}
	}
}

func TestLoadSettings_InvalidPreferenceDefault(t *testing.T) {
	t.Setenv("NLP_PROVIDER", "none")
	t.Setenv("DEFAULT_EMAIL_COUNT", "500")
	if _, err := loadSettings(environment.NewReader()); err == nil {
		t.Fatal("expected an error for an out-of-range email count")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "Hisho") {
		t.Errorf("got %q", out)
	}
}

func TestSeedThenChat(t *testing.T) {
	offlineEnv(t)

	out, err := run(t, "", "seed", "--user", "@alice:example.org")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !strings.HasPrefix(out, "Seeded ") || !strings.Contains(out, "@alice:example.org") {
		t.Errorf("seed output: %q", out)
	}

	out, err = run(t, "show my unread emails\n\n/quit\nignored\n", "chat", "--user", "@alice:example.org")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if !strings.Contains(out, "Unread emails") {
		t.Errorf("chat output: %q", out)
	}
	if strings.Contains(out, "ignored") {
		t.Error("chat kept reading after /quit")
	}
}

func TestSeed_MissingFixture(t *testing.T) {
	offlineEnv(t)
	if _, err := run(t, "", "seed", filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error for a missing fixture file")
	}
}

func TestChat_RejectsBadConfiguration(t *testing.T) {
	offlineEnv(t)
	t.Setenv("REQUEST_TIMEOUT", "soon")
	_, err := run(t, "", "chat")
	if err == nil || !strings.Contains(err.Error(), "REQUEST_TIMEOUT") {
		t.Fatalf("got %v", err)
	}
}
