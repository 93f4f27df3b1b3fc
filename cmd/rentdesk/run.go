package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/rentdesk/internal/presentation/tui"
	"github.com/aretw0/rentdesk/pkg/runner"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var runCmd = &cobra.Command{
	Use:   "run <wizard> [entity-id]",
	Short: "Fill a wizard interactively",
	Long: `Opens a wizard in the terminal. Without an entity id a new record is
created; with one, the existing record is loaded for editing.

Type :help at the prompt for the list of commands.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := context.Background()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		entityID := ""
		if len(args) == 2 {
			entityID = args[1]
		}
		sess, err := a.engine.Open(ctx, args[0], entityID)
		if err != nil {
			return err
		}

		jsonMode, _ := cmd.Flags().GetBool("json")
		var handler runner.IOHandler
		if jsonMode {
			handler = runner.NewJSONHandler(os.Stdin, os.Stdout)
		} else {
			if term.IsTerminal(int(os.Stdout.Fd())) {
				tui.PrintBanner(os.Stdout)
			}
			handler = runner.NewTextHandler(os.Stdin, os.Stdout,
				runner.WithTextHandlerRenderer(tui.NewRenderer()))
		}

		r := runner.New(
			runner.WithInputHandler(handler),
			runner.WithLogger(logger),
			runner.WithSignals(true),
		)
		err = r.Run(ctx, sess)
		switch {
		case errors.Is(err, runner.ErrAbandoned), errors.Is(err, runner.ErrInterrupted):
			if !jsonMode {
				fmt.Fprintln(os.Stderr, "Nothing saved.")
			}
			return nil
		case err != nil:
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("json", false, "Speak JSON Lines instead of drawing the step")
}
