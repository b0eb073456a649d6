package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/roster/internal/core"
)

// multipartOverhead is the room left for form boundaries and fields on top of
// the file size limit.
const multipartOverhead = 1 << 20

// handleImport starts an asynchronous import of the uploaded file. The
// response carries the run ID; progress is streamed from
// /api/runs/{runID}/progress. With wait=true the handler blocks and returns
// the result instead.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	kind, err := core.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	maxSize := core.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		status := http.StatusBadRequest
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			status = http.StatusRequestEntityTooLarge
			err = fmt.Errorf("%w: %w", errFileTooLarge, err)
		}
		s.respondError(w, r, err, status)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	mode, err := core.ParseMode(formOrQuery(r, "mode"))
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errNoFile, http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Size > maxSize {
		s.respondError(w, r, fmt.Errorf("%w: %d bytes", errFileTooLarge, header.Size), http.StatusRequestEntityTooLarge)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	runID, err := s.service.StartImport(ctx, kind, mode, header.Filename, data)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	if wait, _ := strconv.ParseBool(formOrQuery(r, "wait")); wait {
		result, err := s.service.GetImportResult(r.Context(), runID)
		if err != nil {
			s.respondError(w, r, err, 0)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"runId": runID})
}

func formOrQuery(r *http.Request, key string) string {
	if v := r.FormValue(key); v != "" {
		return v
	}
	return r.URL.Query().Get(key)
}

// handleImportProgress streams progress snapshots as server-sent events. Each
// snapshot is a "progress" event whose id is the whole percentage; a final
// "complete" event carries the result once the run ends.
func (s *Server) handleImportProgress(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	progressCh, err := s.service.SubscribeProgress(runID)
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)

	// Clients reconnecting with Last-Event-ID skip snapshots they have seen.
	filter := progressFilter{lastPct: -1}
	if id, err := strconv.Atoi(r.Header.Get("Last-Event-ID")); err == nil {
		filter.lastPct = id
	}

	for {
		select {
		case progress, ok := <-progressCh:
			if !ok {
				result, err := s.service.GetImportResult(r.Context(), runID)
				if err != nil {
					return
				}
				data, _ := json.Marshal(result)
				fmt.Fprintf(w, "event: complete\ndata: %s\n\n", data)
				_ = rc.Flush()
				return
			}

			if !filter.next(progress) {
				continue
			}
			pct := int(progress.Percent)

			data, _ := json.Marshal(progress)
			fmt.Fprintf(w, "id: %d\nevent: progress\ndata: %s\n\n", pct, data)
			if err := rc.Flush(); err != nil {
				return
			}

		case <-r.Context().Done():
			return
		}
	}
}

// progressFilter drops snapshots that add nothing for the client: the same
// whole percent in the same phase.
type progressFilter struct {
	lastPct   int
	lastPhase core.ImportPhase
}

func (f *progressFilter) next(p core.ImportProgress) bool {
	pct := int(p.Percent)
	send := p.Done() || pct > f.lastPct || (f.lastPhase != "" && p.Phase != f.lastPhase)
	f.lastPhase = p.Phase
	if send && pct > f.lastPct {
		f.lastPct = pct
	}
	return send
}

// handleImportResult returns the result of a finished run, or 202 with the
// current progress while it is still running.
func (s *Server) handleImportResult(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	progress, err := s.service.GetImportProgress(runID)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if !progress.Done() {
		writeJSON(w, http.StatusAccepted, progress)
		return
	}

	result, err := s.service.GetImportResult(r.Context(), runID)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleCancelImport cancels a running import.
func (s *Server) handleCancelImport(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	if err := s.service.CancelImport(runID); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelling", "runId": runID})
}

// handleImportStatus reports the import slots.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.LimiterStatus())
}
