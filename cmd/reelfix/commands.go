package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/backmassage/reelfix/internal/check"
	"github.com/backmassage/reelfix/internal/config"
	"github.com/backmassage/reelfix/internal/diagnose"
	"github.com/backmassage/reelfix/internal/display"
	"github.com/backmassage/reelfix/internal/ffmpeg"
	"github.com/backmassage/reelfix/internal/naming"
	"github.com/backmassage/reelfix/internal/pipeline"
	"github.com/backmassage/reelfix/internal/planner"
	"github.com/backmassage/reelfix/internal/repair"
	"github.com/backmassage/reelfix/internal/server"
)

const failureTailLines = 10

func (a *app) convertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <file|dir>...",
		Short: "Convert recordings to H.264/AAC MP4 with fast start",
		Long: "Convert every media file named or found under the given directories. " +
			"Compatibility mode re-encodes video that is not H.264 High/Main/Baseline yuv420p; " +
			"with --compat=false the streams are copied and only the container is rewritten.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			display.PrintBanner(os.Stdout, version)
			if err := check.CheckDeps(cmd.Context(), &a.cfg); err != nil {
				return err
			}
			if a.cfg.DryRun {
				a.log.Warn("DRY RUN: no files will be written")
			}

			bar := newProgressLine()
			stats := a.runner().ConvertBatch(cmd.Context(), args, a.cfg.OutputDir, a.cfg.Policy(), bar.forFile)
			if !stats.OK() || cmd.Context().Err() != nil {
				return errReported
			}
			return nil
		},
	}
	config.BindPolicyFlags(cmd.Flags(), &a.cfg)
	config.BindBatchFlags(cmd.Flags(), &a.cfg)
	return cmd
}

func (a *app) extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract-audio <file>...",
		Short: "Extract the first audio track as MP3",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r := a.runner()
			bar := newProgressLine()
			opts := planner.ExtractOptions{Bitrate: a.cfg.ExtractBitrate}

			failed := 0
			for _, in := range args {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				out := naming.OutputPath(in, a.cfg.OutputDir, naming.KindAudio)
				if !a.cfg.Overwrite {
					if _, err := os.Stat(out); err == nil {
						a.log.Warn("Skip (exists): %s", out)
						continue
					}
				}
				if a.cfg.DryRun {
					desc, err := r.Prober.Probe(ctx, in)
					if err == nil {
						var c ffmpeg.Command
						c, err = planner.PlanAudioExtract(desc, opts, planner.Target{InputPath: in, OutputPath: out, Binary: a.cfg.FFmpegBin})
						if err == nil {
							a.log.Success("[DRY] Would run: %s", c)
							continue
						}
					}
					a.log.Error("%s: %v", in, err)
					failed++
					continue
				}

				onProgress, finish := bar.forFile(in)
				_, err := r.ExtractAudio(ctx, in, out, opts, onProgress)
				if finish != nil {
					finish()
				}
				if err != nil {
					a.reportFailure(in, err)
					failed++
					continue
				}
				a.log.Success("Extracted %s", out)
			}
			if failed > 0 {
				return errReported
			}
			return nil
		},
	}
	config.BindExtractFlags(cmd.Flags(), &a.cfg)
	config.BindBatchFlags(cmd.Flags(), &a.cfg)
	return cmd
}

func (a *app) diagnoseCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "diagnose <file>...",
		Short: "Decode files and classify the errors ffmpeg reports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := a.runner()
			type fileReport struct {
				File   string                   `json:"file"`
				Errors []diagnose.DetectedError `json:"errors"`
				Counts map[string]int           `json:"counts"`
			}
			reports := []fileReport{}
			failed := 0
			for _, in := range args {
				errs, err := r.Diagnose(cmd.Context(), in)
				if err != nil {
					a.reportFailure(in, err)
					failed++
					continue
				}
				if asJSON {
					if errs == nil {
						errs = []diagnose.DetectedError{}
					}
					reports = append(reports, fileReport{File: in, Errors: errs, Counts: diagnose.CountBySignature(errs)})
					continue
				}
				fmt.Fprintf(os.Stdout, "== %s\n", in)
				display.PrintDetected(os.Stdout, errs)
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(reports); err != nil {
					return err
				}
			}
			if failed > 0 {
				return errReported
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

func (a *app) repairCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repair <file>",
		Short: "Apply the automated fix for the detected error, then re-check",
		Long: "Diagnose the file, run the first strategy matching a detected error and diagnose the result. " +
			"The command fails when no strategy applies or the error count did not drop.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := args[0]
			out := naming.OutputPath(in, a.cfg.OutputDir, naming.KindRepair)
			bar := newProgressLine()
			onProgress, finish := bar.forFile(in)

			outcome, err := a.runner().Repair(cmd.Context(), in, out, onProgress)
			if finish != nil {
				finish()
			}
			if outcome != nil && len(outcome.Before) > 0 {
				fmt.Fprintf(os.Stdout, "== %s (before)\n", in)
				display.PrintDetected(os.Stdout, outcome.Before)
			}
			if err != nil {
				if errors.Is(err, repair.ErrNothingToRepair) {
					a.log.Success("%s: no errors detected, nothing to repair", in)
					return nil
				}
				a.reportFailure(in, err)
				return errReported
			}

			fmt.Fprintf(os.Stdout, "== %s (after)\n", out)
			display.PrintDetected(os.Stdout, outcome.After)
			if outcome.Verdict != repair.VerdictImproved {
				return errReported
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&a.cfg.OutputDir, "output-dir", "o", a.cfg.OutputDir, "Directory for the repaired file (default: next to the input)")
	return cmd
}

func (a *app) analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <file|dir>...",
		Short: "Show which files are already compatible and what conversion would do",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := a.runner().Analyze(cmd.Context(), args, a.cfg.Policy())
			if err != nil {
				return err
			}
			pipeline.PrintAnalysis(os.Stdout, rows)
			return nil
		},
	}
	config.BindPolicyFlags(cmd.Flags(), &a.cfg)
	return cmd
}

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the upload API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			display.PrintBanner(os.Stdout, version)
			if err := check.CheckDeps(cmd.Context(), &a.cfg); err != nil {
				return err
			}
			srv := server.New(&a.cfg, a.runner(), a.log)
			return srv.ListenAndServe(cmd.Context())
		},
	}
	config.BindServerFlags(cmd.Flags(), &a.cfg)
	config.BindPolicyFlags(cmd.Flags(), &a.cfg)
	config.BindExtractFlags(cmd.Flags(), &a.cfg)
	return cmd
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check ffmpeg, ffprobe and the required encoders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			display.PrintBanner(os.Stdout, version)
			if !check.RunCheck(cmd.Context(), &a.cfg, a.log) {
				return errReported
			}
			return nil
		},
	}
}

// reportFailure logs err for in and, for encoder failures, the last lines
// of the captured output.
func (a *app) reportFailure(in string, err error) {
	a.log.Error("%s: %v", filepath.Base(in), err)
	var ee *ffmpeg.ExecutionError
	if errors.As(err, &ee) && ee.Tail != "" {
		display.PrintTail(os.Stderr, ee.Tail, failureTailLines)
	}
}
