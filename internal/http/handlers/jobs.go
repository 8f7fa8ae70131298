package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/domain"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/middleware"
)

type jobResponse struct {
	JobID           string          `json:"job_id"`
	Type            string          `json:"type"`
	Status          string          `json:"status"`
	Attempt         int             `json:"attempt"`
	ProgressPercent int             `json:"progress_percent"`
	CurrentStep     string          `json:"current_step,omitempty"`
	PartialResult   json.RawMessage `json:"partial_result,omitempty"`
	FinalResult     json.RawMessage `json:"final_result,omitempty"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func toJobResponse(job *domain.Job) jobResponse {
	return jobResponse{
		JobID:           job.ID,
		Type:            string(job.Type),
		Status:          string(job.Status),
		Attempt:         job.Attempt,
		ProgressPercent: job.ProgressPercent,
		CurrentStep:     job.CurrentStep,
		PartialResult:   job.PartialResult,
		FinalResult:     job.FinalResult,
		ErrorMessage:    job.ErrorMessage,
		CreatedAt:       job.CreatedAt,
		UpdatedAt:       job.UpdatedAt,
	}
}

// JobsCreate accepts a generation request, validates it and enqueues a job.
func (a *App) JobsCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user identity")
		return
	}

	var input domain.JobInput
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&input); err != nil {
		a.error(w, http.StatusBadRequest, "invalid_json", "request body is not valid JSON")
		return
	}

	locale := middleware.LocaleFromContext(r.Context())
	if err := input.Validate(locale); err != nil {
		a.error(w, http.StatusUnprocessableEntity, "invalid_input", err.Error())
		return
	}

	raw, err := domain.MarshalInput(&input)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "could not encode job input")
		return
	}

	job := &domain.Job{
		ID:        uuid.NewString(),
		OwnerID:   userID,
		Type:      input.Type,
		Status:    domain.JobStatusQueued,
		InputJSON: raw,
	}
	if err := a.Jobs.Create(r.Context(), job); err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("job create failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not enqueue job")
		return
	}

	position, err := a.Jobs.QueuedPosition(r.Context(), job.ID)
	if err != nil {
		position = 0
	}

	a.json(w, http.StatusAccepted, map[string]any{
		"job_id":        job.ID,
		"type":          job.Type,
		"status":        job.Status,
		"position_hint": position,
	})
}

// JobsGet returns the current snapshot of a job owned by the caller.
func (a *App) JobsGet(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	jobID := chi.URLParam(r, "job_id")

	job, err := a.Jobs.GetForOwner(r.Context(), jobID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("job lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not load job")
		return
	}

	a.json(w, http.StatusOK, toJobResponse(job))
}

// JobsCancel requests cancellation. Queued jobs are cancelled immediately;
// running jobs are flagged and stop at the next stage boundary. The call is
// idempotent for jobs that already reached a terminal state.
func (a *App) JobsCancel(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	jobID := chi.URLParam(r, "job_id")

	if _, err := a.Jobs.GetForOwner(r.Context(), jobID, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("job lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not load job")
		return
	}

	if err := a.Jobs.RequestCancel(r.Context(), jobID); err != nil {
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("cancel request failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not request cancellation")
		return
	}

	job, err := a.Jobs.GetForOwner(r.Context(), jobID, userID)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "could not load job")
		return
	}
	if job.Status == domain.JobStatusCancelled {
		a.Hub.Publish(r.Context(), domain.ProgressMessage{
			JobID:   job.ID,
			Status:  job.Status,
			Percent: job.ProgressPercent,
			Step:    "Cancelled",
		})
	}

	a.json(w, http.StatusAccepted, map[string]any{
		"job_id":           job.ID,
		"status":           job.Status,
		"cancel_requested": job.CancelRequested,
	})
}

const (
	streamKeepAlive = 15 * time.Second
)

// JobsStream serves job progress over Server-Sent Events. Clients that miss
// messages (slow consumer, reconnect) reconcile through JobsGet.
func (a *App) JobsStream(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	jobID := chi.URLParam(r, "job_id")

	job, err := a.Jobs.GetForOwner(r.Context(), jobID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("job lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not load job")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		a.error(w, http.StatusInternalServerError, "internal", "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	// The server's write timeout would sever long-lived streams.
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	sub := a.Hub.Subscribe(jobID)
	defer sub.Close()

	// Initial snapshot so late subscribers see the current state immediately.
	_ = writeSSE(w, domain.ProgressMessage{
		JobID:   job.ID,
		Status:  job.Status,
		Percent: job.ProgressPercent,
		Step:    job.CurrentStep,
	})
	flusher.Flush()

	keepalive := time.NewTicker(streamKeepAlive)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case msg, open := <-sub.C:
			if !open {
				return
			}
			if err := writeSSE(w, msg); err != nil {
				return
			}
			flusher.Flush()
			if msg.Status.Terminal() {
				return
			}
		}
	}
}

func writeSSE(w http.ResponseWriter, msg domain.ProgressMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte("event: progress\ndata: ")); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	_, err = w.Write([]byte("\n\n"))
	return err
}
