package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/backmassage/reelfix/internal/display"
	"github.com/backmassage/reelfix/internal/ffmpeg"
	"github.com/backmassage/reelfix/internal/metrics"
	"github.com/backmassage/reelfix/internal/naming"
	"github.com/backmassage/reelfix/internal/planner"
)

// ProgressFactory returns the progress callback for one file of a batch and
// a finish function called once the encoder has exited, before the result
// is logged. Either may be nil.
type ProgressFactory func(path string) (ffmpeg.ProgressFunc, func())

// ConvertBatch discovers media under inputs and converts each file
// sequentially into outDir (next to the input when empty). Outputs that
// already exist are skipped unless Overwrite is set. With DryRun the
// commands are planned and logged but not run.
func (r *Runner) ConvertBatch(ctx context.Context, inputs []string, outDir string, policy planner.TranscodePolicy, progress ProgressFactory) RunStats {
	var stats RunStats

	files, err := Discover(inputs...)
	if err != nil {
		r.Log.Error("File discovery failed: %v", err)
		stats.Failed++
		return stats
	}
	stats.Total = len(files)
	if stats.Total == 0 {
		r.Log.Warn("No media files found")
		return stats
	}

	kind := naming.KindCompat
	mode := "compatibility (H.264 High / yuv420p, AAC)"
	if !policy.CompatibilityMode {
		kind = naming.KindFastStart
		mode = "fast start (stream copy)"
	}
	r.Log.Info("Found %d files", stats.Total)
	r.Log.Info("Mode: %s, preset %s, audio %s", mode, policy.VideoPreset, policy.AudioBitrate)

	resolver := naming.NewCollisionResolver()
	resolver.ClaimInputs(files)
	for i, path := range files {
		stats.Current = i + 1
		if ctx.Err() != nil {
			r.Log.Warn("Interrupted")
			break
		}
		out := resolver.Resolve(path, naming.OutputPath(path, outDir, kind))

		var (
			onProgress ffmpeg.ProgressFunc
			finish     func()
		)
		if progress != nil {
			onProgress, finish = progress(path)
		}
		r.processFile(ctx, path, out, policy, onProgress, finish, &stats)
	}

	r.logSummary(&stats)
	return stats
}

// processFile handles one file: skip-existing check → convert (or dry
// run) → stats.
func (r *Runner) processFile(ctx context.Context, path, out string, policy planner.TranscodePolicy, onProgress ffmpeg.ProgressFunc, finish func(), stats *RunStats) {
	log := r.Log.With("file", filepath.Base(path))
	log.Info("[%d/%d] %s", stats.Current, stats.Total, filepath.Base(path))
	log.Info("  -> %s", out)

	fi, err := os.Stat(path)
	if err != nil {
		log.Error("File not found: %s", path)
		stats.Failed++
		return
	}

	if !r.Overwrite {
		if _, err := os.Stat(out); err == nil {
			log.Warn("Skip (exists): %s", filepath.Base(out))
			metrics.OperationsTotal.WithLabelValues(OpConvert, metrics.OutcomeSkipped).Inc()
			stats.Skipped++
			return
		}
	}

	if r.DryRun {
		r.dryRun(ctx, path, out, policy, stats)
		return
	}

	start := time.Now()
	outcome, err := r.Convert(ctx, path, out, policy, onProgress)
	if finish != nil {
		finish()
	}
	if err != nil {
		log.Error("%v", err)
		var ee *ffmpeg.ExecutionError
		if errors.As(err, &ee) && ee.Tail != "" {
			for _, line := range display.LastLines(ee.Tail, 10) {
				log.Error("  %s", line)
			}
		}
		stats.Failed++
		return
	}

	var outSize int64
	if oi, err := os.Stat(out); err == nil {
		outSize = oi.Size()
	}
	stats.TotalInputBytes += fi.Size()
	stats.TotalOutputBytes += outSize
	stats.Converted++
	if v := outcome.Verification(); v == VerificationFailed || v == VerificationError {
		stats.Unverified++
	}
	log.Elapsed(start, "Converted %s", display.FormatSizeChange(fi.Size(), outSize))
}

func (r *Runner) dryRun(ctx context.Context, path, out string, policy planner.TranscodePolicy, stats *RunStats) {
	desc, err := r.Prober.Probe(ctx, path)
	if err != nil {
		r.Log.Error("%v", err)
		stats.Failed++
		return
	}
	plan, err := planner.BuildPlan(desc, policy)
	if err != nil {
		r.Log.Error("%s: %v", filepath.Base(path), err)
		stats.Failed++
		return
	}
	cmd := planner.Build(plan, planner.Target{InputPath: path, OutputPath: out, Binary: r.FFmpegBin})
	r.Log.Success("[DRY] Would run: %s", cmd)
	stats.Converted++
}

func (r *Runner) logSummary(stats *RunStats) {
	r.Log.Info("Done: %d converted, %d skipped, %d failed (of %d)",
		stats.Converted, stats.Skipped, stats.Failed, stats.Total)
	if stats.Unverified > 0 {
		r.Log.Warn("%d output(s) did not pass verification", stats.Unverified)
	}
	if stats.TotalInputBytes > 0 {
		r.Log.Info("Size: %s", display.FormatSizeChange(stats.TotalInputBytes, stats.TotalOutputBytes))
	}
}
