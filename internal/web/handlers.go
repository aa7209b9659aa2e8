package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/e7canasta/orion-strobe/internal/pattern"
	"github.com/e7canasta/orion-strobe/modules/strobe"
)

// sseHeartbeatInterval is how often the event stream sends keep-alive comments.
const sseHeartbeatInterval = 15 * time.Second

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 64 << 10

type healthResponse struct {
	Status  string `json:"status"`
	Uptime  int64  `json:"uptime"`
	Running bool   `json:"running"`
}

type patternRequest struct {
	Text string `json:"text"`
}

type runRequest struct {
	Pattern string `json:"pattern"`
}

type selectionRequest struct {
	Index *int `json:"index"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "alive",
		Uptime:  int64(time.Since(s.started).Seconds()),
		Running: s.ctrl.Running(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.State())
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "capture index must be an integer")
		return
	}

	st := s.ctrl.State()
	if index < 0 || index >= len(st.Captures) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no capture %d (%d captured)", index, len(st.Captures)))
		return
	}
	writeImage(w, st.Captures[index])
}

func (s *Server) handleSelectedCapture(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.ctrl.State().Selected()
	if !ok {
		writeError(w, http.StatusNotFound, "no capture selected")
		return
	}
	writeImage(w, ref)
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	text := req.Pattern
	if text == "" {
		text = s.ctrl.State().PatternInput
	} else {
		s.ctrl.SetPattern(text)
	}

	seq, err := pattern.Parse(text, s.ctrl.TargetLength())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.ctrl.Start(r.Context(), seq); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, strobe.ErrRunInProgress):
			status = http.StatusConflict
		case errors.Is(err, strobe.ErrClosed):
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err.Error())
		return
	}

	slog.Info("web: run started", "pattern", pattern.Format(seq))
	writeJSON(w, http.StatusAccepted, s.ctrl.State())
}

func (s *Server) handleSetPattern(w http.ResponseWriter, r *http.Request) {
	var req patternRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.SetPattern(req.Text))
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Index == nil {
		writeError(w, http.StatusBadRequest, "index is required")
		return
	}

	st, err := s.ctrl.Select(*req.Index)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleEvents streams every published state as text/event-stream.
// A slow client only ever sees the newest snapshot.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	id := "sse-" + ulid.Make().String()
	latest, err := s.bus.SubscribeLatest(id)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	defer s.bus.Unsubscribe(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ctx := r.Context()
	if err := writeEvent(w, s.ctrl.State()); err != nil {
		return
	}
	flusher.Flush()

	var seq uint64
	for {
		waitCtx, cancel := context.WithTimeout(ctx, s.heartbeat)
		st, next, ok := latest.WaitNewer(waitCtx, seq)
		timedOut := waitCtx.Err() != nil
		cancel()

		switch {
		case ok:
			seq = next
			if err := writeEvent(w, st); err != nil {
				return
			}
		case ctx.Err() != nil:
			return
		case timedOut:
			if _, err := fmt.Fprint(w, ":heartbeat\n\n"); err != nil {
				return
			}
		default:
			// receiver closed by bus shutdown
			return
		}
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, st strobe.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: state\ndata: %s\n\n", data)
	return err
}

func writeImage(w http.ResponseWriter, ref strobe.ImageRef) {
	w.Header().Set("Content-Type", ref.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(ref.Data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Header().Set("ETag", `"`+ref.ID+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(ref.Data)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("web: encoding response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
