package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/roster/internal/core"
	"github.com/JonMunkholm/roster/internal/tabular"
)

type fieldInfo struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Headers  []string `json:"headers"`
	Values   []string `json:"values,omitempty"`
}

type kindInfo struct {
	Kind       core.Kind   `json:"kind"`
	Label      string      `json:"label"`
	NaturalKey string      `json:"naturalKey"`
	DateField  string      `json:"dateField,omitempty"`
	Fields     []fieldInfo `json:"fields"`
}

// handleListKinds describes every importable kind and its columns.
func (s *Server) handleListKinds(w http.ResponseWriter, r *http.Request) {
	catalog := s.service.Catalog()

	out := make([]kindInfo, 0, len(catalog.Kinds()))
	for _, kind := range catalog.Kinds() {
		schema, _ := catalog.Get(kind)
		info := kindInfo{
			Kind:       kind,
			Label:      schema.Label,
			NaturalKey: schema.NaturalKey,
			DateField:  schema.DateField,
		}
		for _, f := range schema.Fields {
			info.Fields = append(info.Fields, fieldInfo{
				Name:     f.Name,
				Label:    f.Label,
				Type:     f.Type.String(),
				Required: f.Required,
				Headers:  f.Candidates(),
				Values:   f.Values,
			})
		}
		out = append(out, info)
	}

	writeJSON(w, http.StatusOK, out)
}

// handleDownloadTemplate serves the example file for a kind.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	kind, err := core.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}

	format := tabular.FormatCSV
	if f := r.URL.Query().Get("format"); f != "" {
		if format, err = tabular.ParseFormat(f); err != nil {
			s.respondError(w, r, err, http.StatusBadRequest)
			return
		}
	}

	b, err := s.service.Template(kind, format)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeBlob(w, b)
}

// handleFieldReference serves the plain-text column reference for a kind.
func (s *Server) handleFieldReference(w http.ResponseWriter, r *http.Request) {
	kind, err := core.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}

	text, err := s.service.FieldReference(kind)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(text))
}

// handleHealth reports liveness and the import slots.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"imports": s.service.LimiterStatus(),
	})
}
