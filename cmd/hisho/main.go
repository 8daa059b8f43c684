// Command hisho runs the Hisho personal assistant.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bdobrica/Hisho/common/environment"
	"github.com/bdobrica/Hisho/common/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:   "hisho",
		Short: "Hisho - a personal assistant for your calendar, mail, contacts, files and tasks",
		Long: `Hisho answers plain-language requests about a personal workspace over
Matrix, an HTTP API or a local terminal session.

Configuration is read from the environment; a .env file is loaded first
when present.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			return setupLogging(environment.NewReader())
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	root.AddCommand(newServeCmd(), newChatCmd(), newSeedCmd(), &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		},
	})
	return root
}

// setupLogging installs the default slog logger from LOG_LEVEL and
// LOG_FORMAT.
func setupLogging(r *environment.Reader) error {
	var level slog.Level
	switch r.OneOf("LOG_LEVEL", "info", "debug", "info", "warn", "error") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if r.OneOf("LOG_FORMAT", "text", "text", "json") == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
	return r.Err()
}
