package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/backmassage/reelfix/internal/diagnose"
	"github.com/backmassage/reelfix/internal/ffmpeg"
	"github.com/backmassage/reelfix/internal/planner"
	"github.com/backmassage/reelfix/internal/probe"
	"github.com/backmassage/reelfix/internal/repair"
)

// Error kinds reported in the "kind" field of error responses.
const (
	KindBadRequest        = "bad_request"
	KindTooLarge          = "too_large"
	KindProbeFailed       = "probe_failed"
	KindPlanningGap       = "planning_gap"
	KindExecutionFailed   = "execution_failed"
	KindUnsupportedRepair = "unsupported_repair"
	KindNothingToRepair   = "nothing_to_repair"
	KindNoImprovement     = "no_improvement"
	KindRateLimited       = "rate_limited"
	KindCanceled          = "canceled"
	KindInternal          = "internal"
)

// ErrorResponse is the JSON body of every failed request. It carries the
// literal diagnostic text where one exists.
type ErrorResponse struct {
	Error      string                   `json:"error"`
	Kind       string                   `json:"kind"`
	ExitCode   *int                     `json:"exit_code,omitempty"`
	LogTail    string                   `json:"log_tail,omitempty"`
	Signatures []string                 `json:"signatures,omitempty"`
	Detected   []diagnose.DetectedError `json:"detected,omitempty"`
}

// badRequestError marks client mistakes in form fields.
type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

func badRequest(msg string) error { return &badRequestError{msg: msg} }

// errorStatus maps an operation error onto a status code and response.
func errorStatus(err error) (int, ErrorResponse) {
	resp := ErrorResponse{Error: err.Error(), Kind: KindInternal}

	var (
		br  *badRequestError
		mbe *http.MaxBytesError
		pe  *probe.Error
		ee  *ffmpeg.ExecutionError
		ue  *repair.UnsupportedError
	)
	switch {
	case errors.As(err, &br):
		resp.Kind = KindBadRequest
		return http.StatusBadRequest, resp
	case errors.As(err, &mbe):
		resp.Kind = KindTooLarge
		return http.StatusRequestEntityTooLarge, resp
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		resp.Kind = KindCanceled
		return http.StatusServiceUnavailable, resp
	case errors.As(err, &pe):
		resp.Kind = KindProbeFailed
		resp.LogTail = pe.Stderr
		return http.StatusUnprocessableEntity, resp
	case errors.Is(err, planner.ErrPlanningGap):
		resp.Kind = KindPlanningGap
		return http.StatusUnprocessableEntity, resp
	case errors.As(err, &ee):
		resp.Kind = KindExecutionFailed
		code := ee.ExitCode
		resp.ExitCode = &code
		resp.LogTail = ee.Tail
		return http.StatusUnprocessableEntity, resp
	case errors.As(err, &ue):
		resp.Kind = KindUnsupportedRepair
		resp.Signatures = ue.Signatures
		return http.StatusUnprocessableEntity, resp
	case errors.Is(err, repair.ErrNothingToRepair):
		resp.Kind = KindNothingToRepair
		return http.StatusUnprocessableEntity, resp
	}
	return http.StatusInternalServerError, resp
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
