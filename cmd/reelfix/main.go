// Command reelfix converts recordings into broadly playable MP4 files,
// extracts MP3 audio, diagnoses decode errors and repairs what it can. The
// serve subcommand exposes the same operations over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/backmassage/reelfix/internal/config"
	"github.com/backmassage/reelfix/internal/logging"
	"github.com/backmassage/reelfix/internal/pipeline"
)

// version and commit are injected at build time via -ldflags.
var (
	version = "1.0.0"
	commit  = "unknown"
)

// errReported marks failures that were already logged; run only sets the
// exit code for them.
var errReported = errors.New("failed")

// app carries the configuration shared by every subcommand. Flags bind to
// cfg directly; log is ready once PersistentPreRunE has run.
type app struct {
	cfg config.Config
	log *logging.Logger
}

func newApp() *app {
	return &app{cfg: config.DefaultConfig()}
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp()
	err := a.rootCmd().ExecuteContext(ctx)
	if a.log != nil {
		defer a.log.Close()
	}
	if err == nil {
		return 0
	}
	if !errors.Is(err, errReported) {
		if a.log != nil {
			a.log.Error("%v", err)
		} else {
			fmt.Fprintf(os.Stderr, "reelfix: %v\n", err)
		}
	}
	return 1
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "reelfix",
		Short:         "Make recordings play everywhere",
		Long:          "reelfix converts recordings to H.264/AAC MP4 with fast start, extracts MP3 audio, and diagnoses and repairs files that fail to decode.",
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Load(&a.cfg, cmd.Flags().Changed); err != nil {
				return err
			}
			log, err := logging.NewLogger(&a.cfg)
			if err != nil {
				return err
			}
			a.log = log
			return nil
		},
	}
	config.BindGlobalFlags(root.PersistentFlags(), &a.cfg)

	root.AddCommand(
		a.convertCmd(),
		a.extractCmd(),
		a.diagnoseCmd(),
		a.repairCmd(),
		a.analyzeCmd(),
		a.serveCmd(),
		a.checkCmd(),
	)
	return root
}

func (a *app) runner() *pipeline.Runner {
	return pipeline.NewRunner(&a.cfg, a.log)
}
