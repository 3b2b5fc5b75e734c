// Package server exposes the pipeline over HTTP: upload a file, get the
// converted, extracted or repaired file back, or a JSON diagnosis. Every
// request runs in its own workspace, removed when the handler returns.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/backmassage/reelfix/internal/config"
	"github.com/backmassage/reelfix/internal/diagnose"
	"github.com/backmassage/reelfix/internal/logging"
	"github.com/backmassage/reelfix/internal/naming"
	"github.com/backmassage/reelfix/internal/pipeline"
	"github.com/backmassage/reelfix/internal/planner"
	"github.com/backmassage/reelfix/internal/repair"
	"github.com/backmassage/reelfix/internal/workspace"
)

// Response headers describing the returned file.
const (
	HeaderVerification        = "X-Reelfix-Verification"
	HeaderVerificationDetails = "X-Reelfix-Verification-Details"
	HeaderRepairVerdict       = "X-Reelfix-Repair-Verdict"
	HeaderPlan                = "X-Reelfix-Plan"
)

const shutdownTimeout = 30 * time.Second

// Bitrates offered for MP3 extraction.
var extractBitrates = []string{"192k", "256k", "320k"}

// Server handles the upload API.
type Server struct {
	cfg    *config.Config
	runner *pipeline.Runner
	log    *logging.Logger
}

// New returns a Server running operations through runner.
func New(cfg *config.Config, runner *pipeline.Runner, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Nop()
	}
	return &Server{cfg: cfg, runner: runner, log: log.Component("http")}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.cfg.RateLimit > 0 {
			r.Use(rateLimit(s.cfg.RateLimit, s.cfg.RateWindow))
		}
		r.Use(s.limitBody)
		r.Post("/convert", s.handleConvert)
		r.Post("/extract-audio", s.handleExtractAudio)
		r.Post("/diagnose", s.handleDiagnose)
		r.Post("/repair", s.handleRepair)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully, letting running operations finish.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Listening on %s", s.cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	s.withUpload(w, r, func(ws *workspace.Workspace, up *upload) error {
		policy, err := s.policyFrom(up)
		if err != nil {
			return err
		}
		kind := naming.KindCompat
		if !policy.CompatibilityMode {
			kind = naming.KindFastStart
		}
		out := naming.OutputPath(up.Path, ws.Dir(), kind)

		outcome, err := s.runner.Convert(r.Context(), up.Path, out, policy, nil)
		if err != nil {
			return err
		}
		w.Header().Set(HeaderPlan, fmt.Sprintf("video=%s; audio=%s", outcome.Plan.Video.Action, outcome.Plan.Audio.Action))
		w.Header().Set(HeaderVerification, outcome.Verification())
		if outcome.Report != nil && len(outcome.Report.Details) > 0 {
			w.Header().Set(HeaderVerificationDetails, strings.Join(outcome.Report.Details, "; "))
		} else if outcome.VerifyErr != nil {
			w.Header().Set(HeaderVerificationDetails, outcome.VerifyErr.Error())
		}
		return serveFile(w, r, out, "video/mp4")
	})
}

func (s *Server) handleExtractAudio(w http.ResponseWriter, r *http.Request) {
	s.withUpload(w, r, func(ws *workspace.Workspace, up *upload) error {
		bitrate := s.cfg.ExtractBitrate
		if v := up.Fields.Get("bitrate"); v != "" {
			norm, err := config.NormalizeBitrate(v)
			if err != nil || !contains(extractBitrates, norm) {
				return badRequest(fmt.Sprintf("invalid bitrate %q (use one of %s)", v, strings.Join(extractBitrates, ", ")))
			}
			bitrate = norm
		}
		out := naming.OutputPath(up.Path, ws.Dir(), naming.KindAudio)
		if _, err := s.runner.ExtractAudio(r.Context(), up.Path, out, planner.ExtractOptions{Bitrate: bitrate}, nil); err != nil {
			return err
		}
		return serveFile(w, r, out, "audio/mpeg")
	})
}

// DiagnoseResponse is the body of a diagnose request.
type DiagnoseResponse struct {
	File   string                   `json:"file"`
	Errors []diagnose.DetectedError `json:"errors"`
	Counts map[string]int           `json:"counts"`
}

func (s *Server) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	s.withUpload(w, r, func(_ *workspace.Workspace, up *upload) error {
		errs, err := s.runner.Diagnose(r.Context(), up.Path)
		if err != nil {
			return err
		}
		if errs == nil {
			errs = []diagnose.DetectedError{}
		}
		writeJSON(w, http.StatusOK, DiagnoseResponse{
			File:   filepath.Base(up.Path),
			Errors: errs,
			Counts: diagnose.CountBySignature(errs),
		})
		return nil
	})
}

// RepairResponse is the body returned when a repair does not reduce the
// number of detected errors.
type RepairResponse struct {
	ErrorResponse
	Verdict  repair.Verdict           `json:"verdict"`
	Strategy string                   `json:"strategy"`
	Before   []diagnose.DetectedError `json:"before"`
	After    []diagnose.DetectedError `json:"after"`
}

func (s *Server) handleRepair(w http.ResponseWriter, r *http.Request) {
	s.withUpload(w, r, func(ws *workspace.Workspace, up *upload) error {
		out := naming.OutputPath(up.Path, ws.Dir(), naming.KindRepair)
		outcome, err := s.runner.Repair(r.Context(), up.Path, out, nil)
		if err != nil {
			if outcome != nil && len(outcome.Before) > 0 {
				return &detectedError{err: err, detected: outcome.Before}
			}
			return err
		}
		if outcome.Verdict != repair.VerdictImproved {
			writeJSON(w, http.StatusUnprocessableEntity, RepairResponse{
				ErrorResponse: ErrorResponse{
					Error: fmt.Sprintf("repair did not reduce detected errors (%d → %d)", len(outcome.Before), len(outcome.After)),
					Kind:  KindNoImprovement,
				},
				Verdict:  outcome.Verdict,
				Strategy: outcome.Result.Strategy,
				Before:   outcome.Before,
				After:    nonNil(outcome.After),
			})
			return nil
		}
		w.Header().Set(HeaderRepairVerdict, string(outcome.Verdict))
		return serveFile(w, r, out, "application/octet-stream")
	})
}

// detectedError attaches the detection result to a repair failure so the
// response can list what was found.
type detectedError struct {
	err      error
	detected []diagnose.DetectedError
}

func (e *detectedError) Error() string { return e.err.Error() }
func (e *detectedError) Unwrap() error { return e.err }

// withUpload gives fn a fresh workspace holding the uploaded file and
// renders any error it returns. The workspace is removed afterwards.
func (s *Server) withUpload(w http.ResponseWriter, r *http.Request, fn func(*workspace.Workspace, *upload) error) {
	log := s.log.With("request_id", middleware.GetReqID(r.Context()))

	ws, err := workspace.New(s.cfg.WorkDir)
	if err != nil {
		s.fail(w, log, err)
		return
	}
	defer func() {
		if err := ws.Close(); err != nil {
			log.Warn("Cannot remove workspace %s: %v", ws.Dir(), err)
		}
	}()

	up, err := readUpload(r, ws)
	if err == nil {
		log.Debug("Upload stored at %s", up.Path)
		err = fn(ws, up)
	}
	if err != nil {
		s.fail(w, log, err)
	}
}

func (s *Server) fail(w http.ResponseWriter, log *logging.Logger, err error) {
	code, resp := errorStatus(err)
	var de *detectedError
	if errors.As(err, &de) {
		resp.Detected = de.detected
	}
	if code >= http.StatusInternalServerError {
		log.Error("%s: %v", resp.Kind, err)
	} else {
		log.Warn("%s: %v", resp.Kind, err)
	}
	writeJSON(w, code, resp)
}

// policyFrom layers the request's form fields over the configured policy.
func (s *Server) policyFrom(up *upload) (planner.TranscodePolicy, error) {
	policy := s.cfg.Policy()
	f := up.Fields

	if v := f.Get("compat"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return policy, badRequest(fmt.Sprintf("invalid compat value %q", v))
		}
		policy.CompatibilityMode = b
	}
	if v := f.Get("preset"); v != "" {
		p, err := planner.ParsePreset(v)
		if err != nil {
			return policy, badRequest(err.Error())
		}
		policy.VideoPreset = p
	}
	if v := f.Get("audio_bitrate"); v != "" {
		br, err := config.NormalizeBitrate(v)
		if err != nil {
			return policy, badRequest(err.Error())
		}
		policy.AudioBitrate = br
	}
	if v := f.Get("force_audio"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return policy, badRequest(fmt.Sprintf("invalid force_audio value %q", v))
		}
		policy.ForceAudioReencode = b
	}
	return policy, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func nonNil(errs []diagnose.DetectedError) []diagnose.DetectedError {
	if errs == nil {
		return []diagnose.DetectedError{}
	}
	return errs
}
