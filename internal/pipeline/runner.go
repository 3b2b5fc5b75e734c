package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/backmassage/reelfix/internal/config"
	"github.com/backmassage/reelfix/internal/diagnose"
	"github.com/backmassage/reelfix/internal/ffmpeg"
	"github.com/backmassage/reelfix/internal/logging"
	"github.com/backmassage/reelfix/internal/metrics"
	"github.com/backmassage/reelfix/internal/planner"
	"github.com/backmassage/reelfix/internal/probe"
	"github.com/backmassage/reelfix/internal/repair"
	"github.com/backmassage/reelfix/internal/verify"
)

// Operation names used for logging and metric labels.
const (
	OpConvert      = "convert"
	OpExtractAudio = "extract_audio"
	OpDiagnose     = "diagnose"
	OpRepair       = "repair"
)

// Verification states reported for a conversion.
const (
	VerificationPassed  = "passed"
	VerificationFailed  = "failed"
	VerificationError   = "error"
	VerificationSkipped = "skipped"
)

// Runner carries the collaborators shared by every operation. Build one
// with NewRunner; a Runner is safe for concurrent use as long as the
// logger is.
type Runner struct {
	Prober   *probe.Prober
	Exec     *ffmpeg.Executor
	Detector *diagnose.Detector
	Verifier *verify.Verifier
	Repairer *repair.Repairer
	Log      *logging.Logger

	FFmpegBin string

	// Batch behavior.
	Overwrite bool
	DryRun    bool
}

// NewRunner wires a Runner from cfg.
func NewRunner(cfg *config.Config, log *logging.Logger) *Runner {
	if log == nil {
		log = logging.Nop()
	}
	exec := &ffmpeg.Executor{
		TailChars:   cfg.LogTailChars,
		MaxLogBytes: cfg.MaxLogBytes,
		Encoding:    cfg.LocalEncoding,
		Logger:      log.Component("exec").Zerolog(),
	}
	prober := probe.New(cfg.FFprobeBin)
	return &Runner{
		Prober:    prober,
		Exec:      exec,
		Detector:  &diagnose.Detector{Exec: exec, Binary: cfg.FFmpegBin},
		Verifier:  &verify.Verifier{Prober: prober, Profile: verify.DefaultProfile(), Timeout: cfg.VerifyTimeout},
		Repairer:  &repair.Repairer{Exec: exec, Binary: cfg.FFmpegBin},
		Log:       log,
		FFmpegBin: cfg.FFmpegBin,
		Overwrite: cfg.Overwrite,
		DryRun:    cfg.DryRun,
	}
}

// ConvertOutcome describes one conversion. Exec is populated whenever the
// encoder ran, including when it failed.
type ConvertOutcome struct {
	Plan    *planner.FilePlan
	Command ffmpeg.Command
	Exec    ffmpeg.Result

	// Report is nil when verification did not run or could not complete.
	Report *verify.Report
	// VerifyErr is set when the verification probe itself failed.
	VerifyErr error
}

// Verification summarizes the verification state as one of the
// Verification* constants.
func (o *ConvertOutcome) Verification() string {
	switch {
	case o == nil:
		return VerificationSkipped
	case o.VerifyErr != nil:
		return VerificationError
	case o.Report == nil:
		return VerificationSkipped
	case o.Report.Passed:
		return VerificationPassed
	default:
		return VerificationFailed
	}
}

// Convert probes in, plans a copy or re-encode according to policy, runs
// the encoder into out and verifies the result. A verification failure is
// recorded in the outcome and does not fail the conversion.
func (r *Runner) Convert(ctx context.Context, in, out string, policy planner.TranscodePolicy, onProgress ffmpeg.ProgressFunc) (*ConvertOutcome, error) {
	defer metrics.Track(OpConvert)()
	outcome, err := r.convert(ctx, in, out, policy, onProgress)
	metrics.ObserveOperation(OpConvert, err)
	return outcome, err
}

func (r *Runner) convert(ctx context.Context, in, out string, policy planner.TranscodePolicy, onProgress ffmpeg.ProgressFunc) (*ConvertOutcome, error) {
	log := r.Log.With("op", OpConvert)

	desc, err := r.Prober.Probe(ctx, in)
	if err != nil {
		return nil, err
	}
	plan, err := planner.BuildPlan(desc, policy)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(in), err)
	}
	for _, note := range plan.Notes {
		log.Debug("Note: %s", note)
	}

	outcome := &ConvertOutcome{
		Plan:    plan,
		Command: planner.Build(plan, planner.Target{InputPath: in, OutputPath: out, Binary: r.FFmpegBin}),
	}
	log.Info("Video: %s (%s), audio: %s (%s)",
		plan.Video.Action, plan.Video.Reason, plan.Audio.Action, plan.Audio.Reason)

	if err := r.run(ctx, OpConvert, outcome.Command, out, onProgress, &outcome.Exec); err != nil {
		return outcome, err
	}

	if plan.Video.Action == planner.ActionOmit {
		log.Debug("No video stream, verification skipped")
		return outcome, nil
	}
	outcome.Report, outcome.VerifyErr = r.Verifier.Verify(ctx, out)
	if outcome.Report != nil {
		for _, name := range outcome.Report.Order {
			metrics.ObserveCheck(name, outcome.Report.Checks[name])
		}
	}
	switch outcome.Verification() {
	case VerificationPassed:
		log.Success("Output verified")
	case VerificationFailed:
		log.Warn("Output does not match the compatibility profile")
		for _, d := range outcome.Report.Details {
			log.Warn("  %s", d)
		}
	case VerificationError:
		log.Warn("Verification failed: %v", outcome.VerifyErr)
	}
	return outcome, nil
}

// ExtractAudio encodes the first audio stream of in to MP3 at out.
func (r *Runner) ExtractAudio(ctx context.Context, in, out string, opts planner.ExtractOptions, onProgress ffmpeg.ProgressFunc) (ffmpeg.Result, error) {
	defer metrics.Track(OpExtractAudio)()
	res, err := r.extractAudio(ctx, in, out, opts, onProgress)
	metrics.ObserveOperation(OpExtractAudio, err)
	return res, err
}

func (r *Runner) extractAudio(ctx context.Context, in, out string, opts planner.ExtractOptions, onProgress ffmpeg.ProgressFunc) (ffmpeg.Result, error) {
	var res ffmpeg.Result
	desc, err := r.Prober.Probe(ctx, in)
	if err != nil {
		return res, err
	}
	cmd, err := planner.PlanAudioExtract(desc, opts, planner.Target{InputPath: in, OutputPath: out, Binary: r.FFmpegBin})
	if err != nil {
		return res, fmt.Errorf("%s: %w", filepath.Base(in), err)
	}
	err = r.run(ctx, OpExtractAudio, cmd, out, onProgress, &res)
	return res, err
}

// Diagnose runs the detection pass over in and classifies what it finds.
// An empty result means ffmpeg decoded the file without complaint.
func (r *Runner) Diagnose(ctx context.Context, in string) ([]diagnose.DetectedError, error) {
	defer metrics.Track(OpDiagnose)()
	errs, err := r.diagnose(ctx, in)
	metrics.ObserveOperation(OpDiagnose, err)
	return errs, err
}

func (r *Runner) diagnose(ctx context.Context, in string) ([]diagnose.DetectedError, error) {
	r.Log.Debug("$ %s", r.Detector.Command(in))
	errs, err := r.Detector.Diagnose(ctx, in)
	if err != nil {
		return nil, err
	}
	for sig, n := range diagnose.CountBySignature(errs) {
		metrics.DetectedErrorsTotal.WithLabelValues(sig).Add(float64(n))
	}
	return errs, nil
}

// RepairOutcome describes a repair attempt. Before and After are the
// detection results for the input and the repaired output.
type RepairOutcome struct {
	Before  []diagnose.DetectedError
	After   []diagnose.DetectedError
	Result  *repair.Result
	Verdict repair.Verdict
}

// Repair detects errors in in, runs the first matching strategy into out,
// re-detects on out and compares the counts. A file with no detected
// errors yields repair.ErrNothingToRepair; errors without a strategy yield
// *repair.UnsupportedError. Both still return the outcome with Before set.
func (r *Runner) Repair(ctx context.Context, in, out string, onProgress ffmpeg.ProgressFunc) (*RepairOutcome, error) {
	defer metrics.Track(OpRepair)()
	outcome, err := r.repair(ctx, in, out, onProgress)
	metrics.ObserveOperation(OpRepair, err)
	return outcome, err
}

func (r *Runner) repair(ctx context.Context, in, out string, onProgress ffmpeg.ProgressFunc) (*RepairOutcome, error) {
	log := r.Log.With("op", OpRepair)

	before, err := r.diagnose(ctx, in)
	if err != nil {
		return nil, err
	}
	outcome := &RepairOutcome{Before: before}

	strategy, err := repair.Select(before)
	if err != nil {
		return outcome, err
	}
	log.Info("Applying %s for %s", strategy.Name, strategy.Signature)
	log.Info("$ %s", strategy.Build(r.ffmpegBin(), in, out))
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return outcome, fmt.Errorf("create output directory: %w", err)
	}

	outcome.Result, err = r.Repairer.Repair(ctx, in, out, before, onProgress)
	if outcome.Result != nil {
		metrics.ObserveEncode(OpRepair, outcome.Result.Exec.Elapsed)
	}
	if err != nil {
		removePartial(log, out)
		return outcome, err
	}

	outcome.After, err = r.diagnose(ctx, out)
	if err != nil {
		return outcome, fmt.Errorf("re-diagnose repaired output: %w", err)
	}
	outcome.Verdict = repair.Assess(len(outcome.Before), len(outcome.After))
	metrics.RepairVerdictsTotal.WithLabelValues(string(outcome.Verdict)).Inc()

	if outcome.Verdict == repair.VerdictImproved {
		log.Success("Repaired: %d → %d detected errors", len(outcome.Before), len(outcome.After))
	} else {
		log.Warn("Repair did not reduce detected errors (%d → %d)", len(outcome.Before), len(outcome.After))
	}
	return outcome, nil
}

// run echoes and executes cmd, records its duration, and removes out when
// the encoder fails so no partial file is left behind.
func (r *Runner) run(ctx context.Context, op string, cmd ffmpeg.Command, out string, onProgress ffmpeg.ProgressFunc, res *ffmpeg.Result) error {
	log := r.Log.With("op", op)
	log.Info("$ %s", cmd)

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	var err error
	*res, err = r.Exec.Execute(ctx, cmd, onProgress)
	metrics.ObserveEncode(op, res.Elapsed)
	if err != nil {
		removePartial(log, out)
		return err
	}
	return nil
}

func (r *Runner) ffmpegBin() string {
	if r.FFmpegBin == "" {
		return "ffmpeg"
	}
	return r.FFmpegBin
}

func removePartial(log *logging.Logger, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("Cannot remove partial output %s: %v", path, err)
	}
}
