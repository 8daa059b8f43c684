package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bdobrica/Hisho/internal/hisho/store"
	"github.com/bdobrica/Hisho/internal/hisho/workspace"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Matrix bot and the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, _, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Run(ctx)
		},
	}
}

func newChatCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to Hisho in the terminal",
		Long:  "Reads one message per line from standard input and prints each reply. Type /quit or send EOF to leave.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, _, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			in := bufio.NewScanner(cmd.InOrStdin())
			fmt.Fprint(out, "> ")
			for in.Scan() {
				line := strings.TrimSpace(in.Text())
				if line == "/quit" || line == "/exit" {
					break
				}
				if line != "" {
					reply, err := a.Engine().Handle(ctx, user, line)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%s\n", reply.Text)
				}
				fmt.Fprint(out, "> ")
			}
			fmt.Fprintln(out)
			return in.Err()
		},
	}
	cmd.Flags().StringVar(&user, "user", "@me:localhost", "user id to chat as")
	return cmd
}

func newSeedCmd() *cobra.Command {
	var (
		user  string
		reset bool
	)
	cmd := &cobra.Command{
		Use:   "seed [fixture.yaml]",
		Short: "Load a YAML workspace fixture for a user",
		Long:  "Loads mail, events, contacts, files and tasks for --user. Without a file the built-in demo workspace is used.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				fx  *workspace.Fixture
				err error
			)
			if len(args) == 1 {
				fx, err = workspace.LoadFixtureFile(args[0])
			} else {
				fx, err = workspace.DemoFixture()
			}
			if err != nil {
				return err
			}

			s, err := loadSettingsForSeed()
			if err != nil {
				return err
			}
			db, err := store.New(s.path)
			if err != nil {
				return err
			}
			defer db.Close()

			owner := user
			if owner == "" {
				owner = fx.Owner
			}
			ctx := cmd.Context()
			ws := workspace.New(db)
			if reset && owner != "" {
				if err := ws.Reset(ctx, owner); err != nil {
					return err
				}
			}
			stats, err := ws.Seed(ctx, owner, fx, s.loc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %s for %s\n", stats, owner)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id that owns the seeded data (defaults to the fixture's owner)")
	cmd.Flags().BoolVar(&reset, "reset", false, "delete the user's existing workspace first")
	return cmd
}
