package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/wres/internal/adapters/repository"
	"github.com/okian/wres/internal/domain/statistic"
)

// EvaluationDependencies defines the reads behind the evaluation routes.
type EvaluationDependencies interface {
	Recent(ctx context.Context, n int) ([]*repository.Evaluation, error)
	Evaluation(ctx context.Context, id uuid.UUID) (*repository.Evaluation, error)
}

// EvaluationsHandler handles evaluation requests.
type EvaluationsHandler struct {
	deps     EvaluationDependencies
	maxLimit int
}

// NewEvaluationsHandler creates a new evaluations handler.
func NewEvaluationsHandler(deps EvaluationDependencies, maxLimit int) *EvaluationsHandler {
	return &EvaluationsHandler{deps: deps, maxLimit: maxLimit}
}

type summary struct {
	ID         string `json:"id"`
	Feature    string `json:"feature"`
	Unit       string `json:"unit"`
	Started    string `json:"started"`
	Finished   string `json:"finished"`
	DurationMs int64  `json:"duration_ms"`
	Statistics int    `json:"statistics"`
	Failures   int    `json:"failures"`
}

type value struct {
	Window     string   `json:"window"`
	Threshold  string   `json:"threshold"`
	Metric     string   `json:"metric"`
	Name       string   `json:"name"`
	Index      int      `json:"index"`
	Value      *float64 `json:"value"` // null when NaN or infinite
	SampleSize int      `json:"sample_size"`
}

type failure struct {
	Window    string `json:"window"`
	Threshold string `json:"threshold"`
	Metric    string `json:"metric"`
	Error     string `json:"error"`
}

type detail struct {
	summary
	Values       []value   `json:"values"`
	FailedMetric []failure `json:"failed"`
}

func summarize(e *repository.Evaluation) summary {
	s := summary{
		ID:         e.ID.String(),
		Feature:    e.Feature,
		Unit:       e.Unit,
		Started:    e.Started.UTC().Format(time.RFC3339Nano),
		Finished:   e.Finished.UTC().Format(time.RFC3339Nano),
		DurationMs: e.Duration.Milliseconds(),
	}
	if e.Results != nil {
		s.Statistics = e.Results.Len()
		s.Failures = len(e.Results.Failures())
	}
	return s
}

func describe(e *repository.Evaluation) detail {
	d := detail{summary: summarize(e), Values: []value{}, FailedMetric: []failure{}}
	if e.Results == nil {
		return d
	}
	for _, k := range e.Results.Keys() {
		for _, s := range e.Results.Get(k) {
			meta := s.Metadata()
			for _, entry := range statistic.Flatten(s) {
				v := value{
					Window:     k.Window.String(),
					Threshold:  k.Threshold.String(),
					Metric:     string(meta.Metric),
					Name:       entry.Name,
					Index:      entry.Index,
					SampleSize: meta.SampleSize,
				}
				if !math.IsNaN(entry.Value) && !math.IsInf(entry.Value, 0) {
					x := entry.Value
					v.Value = &x
				}
				d.Values = append(d.Values, v)
			}
		}
	}
	for _, f := range e.Results.Failures() {
		d.FailedMetric = append(d.FailedMetric, failure{
			Window:    f.Key.Window.String(),
			Threshold: f.Key.Threshold.String(),
			Metric:    string(f.Metric),
			Error:     f.Err.Error(),
		})
	}
	return d
}

// HandleList handles GET /evaluations?limit=N requests. The limit defaults to 10.
func (h *EvaluationsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n := 10
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		n, err = strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest))
			return
		}
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", fmt.Errorf("%w: limit exceeds %d", ErrBadRequest, h.maxLimit))
		return
	}
	evals, err := h.deps.Recent(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	out := make([]summary, 0, len(evals))
	for _, e := range evals {
		out = append(out, summarize(e))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /evaluations/{id} requests.
func (h *EvaluationsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/evaluations/")
	if path == "" || strings.Contains(path, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	id, err := uuid.Parse(path)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	e, err := h.deps.Evaluation(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, describe(e))
}
