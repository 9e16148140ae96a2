package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kanpai-app/kanpai/internal/api/response"
	"github.com/kanpai-app/kanpai/internal/progress"
	"github.com/kanpai-app/kanpai/internal/store"
	"github.com/kanpai-app/kanpai/pkg/models"
)

// heartbeatInterval keeps idle SSE connections alive through proxies.
const heartbeatInterval = 15 * time.Second

// NewJobEventsHandler returns an http.HandlerFunc for
// GET /api/v1/jobs/{jobID}/events. Persisted events are replayed first, then
// the stream follows live progress until the job reaches a terminal event or
// the client disconnects. Terminal jobs get the replay only.
func NewJobEventsHandler(st store.Store, prog *progress.Emitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "jobID must be a valid UUID", nil)
			return
		}

		job, err := st.GetGiftJob(r.Context(), jobID)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to load job", nil)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			response.Error(w, http.StatusInternalServerError,
				"STREAMING_UNSUPPORTED", "Response writer does not support streaming", nil)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		var lastReplayed time.Time
		stored, err := st.ListJobEvents(r.Context(), jobID, time.Time{})
		if err == nil {
			for _, event := range stored {
				writeSSE(w, event.EventType, progress.Event{
					Type:      event.EventType,
					Label:     deref(event.Label),
					Message:   deref(event.Message),
					Payload:   event.Payload,
					Timestamp: event.CreatedAt,
				})
				lastReplayed = event.CreatedAt
			}
			flusher.Flush()
		}

		if models.IsTerminalJobStatus(job.Status) || job.RunID == nil || prog == nil {
			return
		}

		events, cancel := prog.Subscribe(*job.RunID)
		defer cancel()

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-heartbeat.C:
				fmt.Fprint(w, ": ping\n\n")
				flusher.Flush()
			case event, open := <-events:
				if !open {
					return
				}
				// The emitter replays its own history; events already sent
				// from the store replay are identified by timestamp.
				if !event.Timestamp.After(lastReplayed) {
					continue
				}
				writeSSE(w, event.Type, event)
				flusher.Flush()
				if event.Type == models.EventTypeFinal || event.Type == models.EventTypeError {
					return
				}
			}
		}
	}
}

func writeSSE(w http.ResponseWriter, eventType string, event progress.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, data)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
