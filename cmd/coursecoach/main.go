package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgPath  string
	logLevel string
	unitID   string

	app *application
)

var rootCmd = &cobra.Command{
	Use:   "coursecoach",
	Short: "Content-grounded tutoring over a course text",
	Long: `coursecoach answers questions, scores drafts and builds study material
strictly from the ingested course text. Every answer cites the pages it
draws on; questions the course does not cover are refused.

Run without arguments to open the interactive coach console.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "ingest" {
			var err error
			app, err = newBaseApplication(cfgPath, logLevel)
			return err
		}
		var err error
		app, err = newApplication(cmd.Context(), cfgPath, logLevel)
		return err
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to YAML config file (defaults to ./config.yaml or ~/.config/coursecoach/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&unitID, "unit", "u", "", "Unit id (defaults to the learner's current unit)")

	rootCmd.AddCommand(askCmd, feedbackCmd, lessonCmd, exerciseCmd, missionCmd, unitsCmd, progressCmd, historyCmd, exportCmd, ingestCmd, chatCmd)
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// run executes one command line and releases the application whether or not
// the command succeeded. PersistentPostRun does not fire on errors.
func run(ctx context.Context, args []string) int {
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	if app != nil {
		app.Close()
	}
	if err != nil {
		return 1
	}
	return 0
}
