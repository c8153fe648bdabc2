package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/leapstack-labs/leapetl/internal/engine"
	"github.com/leapstack-labs/leapetl/pkg/core"
)

// MaxListLimit caps the limit parameter of GET /runs.
const MaxListLimit = 500

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// JobRunView is a job run with its cleaning steps.
type JobRunView struct {
	*core.JobRun
	Steps []core.StepResult `json:"steps"`
}

// RunView is a run with its job runs.
type RunView struct {
	*core.Run
	Jobs []JobRunView `json:"jobs"`
}

// TriggerResponse answers a job trigger.
type TriggerResponse struct {
	Job        string    `json:"job"`
	Downstream bool      `json:"downstream"`
	Status     string    `json:"status"`
	Run        *core.Run `json:"run,omitempty"`
	Error      string    `json:"error,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxListLimit {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", MaxListLimit))
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(limit)
	if err != nil {
		s.logger.Error("failed to list runs", slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []*core.Run{}
	}
	render.JSON(w, r, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := s.store.GetRun(id)
	if errors.Is(err, core.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("failed to get run", slog.String("run_id", id), slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, "failed to get run")
		return
	}

	jobRuns, err := s.store.GetJobRuns(id)
	if err != nil {
		s.logger.Error("failed to get job runs", slog.String("run_id", id), slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, "failed to get job runs")
		return
	}

	view := RunView{Run: run, Jobs: make([]JobRunView, 0, len(jobRuns))}
	for _, jr := range jobRuns {
		steps, err := s.store.GetStepResults(jr.ID)
		if err != nil {
			s.logger.Warn("failed to get step results", slog.String("job_run_id", jr.ID), slog.Any("error", err))
		}
		if steps == nil {
			steps = []core.StepResult{}
		}
		view.Jobs = append(view.Jobs, JobRunView{JobRun: jr, Steps: steps})
	}
	render.JSON(w, r, view)
}

// handleTrigger starts a run of one job. The run happens in the background
// unless wait=true is given, in which case the finished run is returned.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !s.runner.HasJob(name) {
		writeError(w, r, http.StatusNotFound, fmt.Sprintf("unknown job %q", name))
		return
	}

	query := r.URL.Query()
	downstream, _ := strconv.ParseBool(query.Get("downstream"))
	wait, _ := strconv.ParseBool(query.Get("wait"))

	resp := TriggerResponse{Job: name, Downstream: downstream}
	s.logger.Info("job triggered", slog.String("job", name), slog.Bool("downstream", downstream), slog.Bool("wait", wait))

	if !wait {
		go s.trigger(s.baseCtx, name, downstream)
		resp.Status = "accepted"
		render.Status(r, http.StatusAccepted)
		render.JSON(w, r, resp)
		return
	}

	run, err := s.trigger(r.Context(), name, downstream)
	resp.Run = run
	if run != nil {
		resp.Status = string(run.Status)
	}
	if err != nil {
		resp.Error = err.Error()
		if run == nil {
			resp.Status = string(core.RunStatusFailed)
		}
		render.Status(r, http.StatusInternalServerError)
	}
	render.JSON(w, r, resp)
}

func (s *Server) trigger(ctx context.Context, name string, downstream bool) (*core.Run, error) {
	run, err := s.runner.Run(ctx, engine.TriggerServer, []string{name}, downstream)
	if err != nil {
		s.logger.Error("triggered run failed", slog.String("job", name), slog.Any("error", err))
	}
	s.RunFinished(run)
	return run, err
}

// handleEvents streams finished runs as server-sent events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	updates := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case run := <-updates:
			data, err := json.Marshal(run)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: run\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
