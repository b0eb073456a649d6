package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/roster/internal/blob"
	"github.com/JonMunkholm/roster/internal/core"
	"github.com/JonMunkholm/roster/internal/tabular"
)

// handleExport serializes one kind, or every kind with target "all".
//
// Query parameters: format (csv, xlsx, json; default csv), from and to
// (inclusive dates applied to dated kinds), name (file base name) and save.
// Several CSV files are returned as one zip archive. With save=true the files
// are written to the configured sink and their locations are returned.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	format := tabular.FormatCSV
	if f := q.Get("format"); f != "" {
		parsed, err := tabular.ParseFormat(f)
		if err != nil {
			s.respondError(w, r, err, http.StatusBadRequest)
			return
		}
		format = parsed
	}

	dateRange, err := parseRange(q.Get("from"), q.Get("to"))
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	blobs, err := s.service.Export(r.Context(), core.ExportRequest{
		Format:   format,
		Target:   chi.URLParam(r, "target"),
		Range:    dateRange,
		FileName: q.Get("name"),
	})
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	if save, _ := strconv.ParseBool(q.Get("save")); save {
		s.saveExport(w, r, blobs)
		return
	}

	out := blobs[0]
	if len(blobs) > 1 {
		out, err = blob.Zip(zipName(q.Get("name"), chi.URLParam(r, "target")), blobs, s.now())
		if err != nil {
			s.respondError(w, r, err, http.StatusInternalServerError)
			return
		}
	}
	writeBlob(w, out)
}

func (s *Server) saveExport(w http.ResponseWriter, r *http.Request, blobs []core.Blob) {
	if s.sink == nil {
		s.respondError(w, r, fmt.Errorf("export storage is not configured"), http.StatusNotImplemented)
		return
	}
	locations, err := blob.PutAll(r.Context(), s.sink, blobs)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusCreated, map[string][]string{"locations": locations})
}

// parseRange builds a date range from optional inclusive bounds.
func parseRange(from, to string) (*core.DateRange, error) {
	if from == "" && to == "" {
		return nil, nil
	}
	var r core.DateRange
	if from != "" {
		t, ok := core.ParseDate(from)
		if !ok {
			return nil, fmt.Errorf("invalid date %q for from", from)
		}
		r.Start = t
	}
	if to != "" {
		t, ok := core.ParseDate(to)
		if !ok {
			return nil, fmt.Errorf("invalid date %q for to", to)
		}
		r.End = t
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return nil, fmt.Errorf("invalid date range: %s is after %s", from, to)
	}
	return &r, nil
}

func zipName(name, target string) string {
	base := strings.TrimSpace(name)
	if base == "" {
		base = strings.ToLower(strings.TrimSpace(target))
	}
	return base + ".zip"
}

// writeBlob sends b as a download.
func writeBlob(w http.ResponseWriter, b core.Blob) {
	w.Header().Set("Content-Type", b.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", b.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(b.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b.Data)
}
