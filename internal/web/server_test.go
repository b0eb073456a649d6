package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/roster/internal/blob"
	"github.com/JonMunkholm/roster/internal/config"
	"github.com/JonMunkholm/roster/internal/core"
	"github.com/JonMunkholm/roster/internal/core/kinds"
	"github.com/JonMunkholm/roster/internal/store/memory"
)

const membersCSV = "FirstName,LastName,Email,MembershipType\n" +
	"Ada,Lovelace,ada@example.com,monthly\n" +
	"Alan,Turing,alan@example.com,annual\n"

type recordingSink struct {
	mu    sync.Mutex
	names []string
}

func (s *recordingSink) Put(_ context.Context, b core.Blob) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, b.Name)
	return "mem://" + b.Name, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, sink blob.Sink) (*Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := core.NewService(core.ServiceConfig{
		Store:   store,
		Catalog: kinds.DefaultCatalog(),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	s := NewServer(svc, cfg, sink)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s, store
}

func uploadRequest(t *testing.T, target, fileName, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, testConfig(), nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestListKinds(t *testing.T) {
	s, _ := newTestServer(t, testConfig(), nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/kinds", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got []kindInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 4)
	assert.Equal(t, core.KindMembers, got[0].Kind)
	assert.Equal(t, "email", got[0].NaturalKey)
}

func TestImport_Wait(t *testing.T) {
	s, store := newTestServer(t, testConfig(), nil)

	req := uploadRequest(t, "/api/import/members?wait=true", "members.csv", membersCSV, map[string]string{"mode": "merge"})
	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result core.ImportResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.ImportedRecords)
	assert.Equal(t, 2, store.Len(core.KindMembers))
}

func TestImport_AsyncResultAndProgress(t *testing.T) {
	s, _ := newTestServer(t, testConfig(), nil)

	rec := serve(s, uploadRequest(t, "/api/import/members", "members.csv", membersCSV, nil))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var started map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	runID := started["runId"]
	require.NotEmpty(t, runID)

	require.Eventually(t, func() bool {
		return serve(s, httptest.NewRequest(http.MethodGet, "/api/runs/"+runID, nil)).Code == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	// A finished run still streams its final snapshot and result.
	stream := serve(s, httptest.NewRequest(http.MethodGet, "/api/runs/"+runID+"/progress", nil))
	assert.Equal(t, "text/event-stream", stream.Header().Get("Content-Type"))
	assert.Contains(t, stream.Body.String(), "event: progress")
	assert.Contains(t, stream.Body.String(), "event: complete")
	assert.Contains(t, stream.Body.String(), `"importedRecords":2`)
}

func TestImport_Errors(t *testing.T) {
	tests := []struct {
		name     string
		req      func(t *testing.T) *http.Request
		wantCode int
		wantErr  string
	}{
		{
			name: "unknown kind",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/api/import/invoices", "x.csv", membersCSV, nil)
			},
			wantCode: http.StatusBadRequest,
			wantErr:  "KND001",
		},
		{
			name: "unknown mode",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/api/import/members", "x.csv", membersCSV, map[string]string{"mode": "append"})
			},
			wantCode: http.StatusBadRequest,
			wantErr:  "KND002",
		},
		{
			name: "no file",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/api/import/members", "", "", map[string]string{"mode": "merge"})
			},
			wantCode: http.StatusBadRequest,
			wantErr:  "FILE005",
		},
		{
			name: "unknown run",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodGet, "/api/runs/nope", nil)
			},
			wantCode: http.StatusNotFound,
			wantErr:  "IMP004",
		},
		{
			name: "cancel unknown run",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/runs/nope/cancel", nil)
			},
			wantCode: http.StatusNotFound,
			wantErr:  "IMP004",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, testConfig(), nil)

			rec := serve(s, tt.req(t))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantErr, decodeError(t, rec).Code)
		})
	}
}

func TestImport_FileTooLarge(t *testing.T) {
	prev := core.MaxFileSize
	core.MaxFileSize = 16
	t.Cleanup(func() { core.MaxFileSize = prev })

	s, _ := newTestServer(t, testConfig(), nil)

	rec := serve(s, uploadRequest(t, "/api/import/members", "members.csv", membersCSV, nil))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "FILE001", decodeError(t, rec).Code)
}

func TestImport_Status(t *testing.T) {
	s, _ := newTestServer(t, testConfig(), nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/import/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var status core.LimiterStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 0, status.Active)
	assert.Equal(t, core.DefaultMaxConcurrentImports, status.MaxConcurrent)
}

func TestExport(t *testing.T) {
	s, _ := newTestServer(t, testConfig(), nil)
	require.Equal(t, http.StatusOK, serve(s, uploadRequest(t, "/api/import/members?wait=true", "m.csv", membersCSV, nil)).Code)

	tests := []struct {
		name        string
		url         string
		wantCode    int
		wantType    string
		wantFile    string
		wantContain string
	}{
		{
			name:        "members csv",
			url:         "/api/export/members",
			wantCode:    http.StatusOK,
			wantType:    "text/csv",
			wantFile:    "members.csv",
			wantContain: "ada@example.com",
		},
		{
			name:        "members json with name",
			url:         "/api/export/members?format=json&name=roster",
			wantCode:    http.StatusOK,
			wantType:    "application/json",
			wantFile:    "roster.json",
			wantContain: "alan@example.com",
		},
		{
			name:     "all as csv is zipped",
			url:      "/api/export/all?format=csv",
			wantCode: http.StatusOK,
			wantType: "application/zip",
			wantFile: "all.zip",
		},
		{
			name:     "all as workbook",
			url:      "/api/export/all?format=xlsx",
			wantCode: http.StatusOK,
			wantType: "spreadsheetml",
			wantFile: "all.xlsx",
		},
		{
			name:     "payments in range",
			url:      "/api/export/payments?from=2024-01-01&to=2024-01-31",
			wantCode: http.StatusOK,
			wantType: "text/csv",
		},
		{name: "bad format", url: "/api/export/members?format=pdf", wantCode: http.StatusBadRequest},
		{name: "bad date", url: "/api/export/payments?from=someday", wantCode: http.StatusBadRequest},
		{name: "reversed range", url: "/api/export/payments?from=2024-02-01&to=2024-01-01", wantCode: http.StatusBadRequest},
		{name: "unknown target", url: "/api/export/invoices", wantCode: http.StatusBadRequest},
		{name: "save without sink", url: "/api/export/members?save=true", wantCode: http.StatusNotImplemented},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, httptest.NewRequest(http.MethodGet, tt.url, nil))

			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantType != "" {
				assert.Contains(t, rec.Header().Get("Content-Type"), tt.wantType)
			}
			if tt.wantFile != "" {
				assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="`+tt.wantFile+`"`)
			}
			if tt.wantContain != "" {
				assert.Contains(t, rec.Body.String(), tt.wantContain)
			}
		})
	}
}

func TestExport_SaveToSink(t *testing.T) {
	sink := &recordingSink{}
	s, _ := newTestServer(t, testConfig(), sink)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/export/all?save=true", nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got["locations"], 4)
	assert.Contains(t, sink.names, "all_members.csv")
}

func TestTemplateAndReference(t *testing.T) {
	s, _ := newTestServer(t, testConfig(), nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/template/classes?format=csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "classes_template.csv")
	assert.Equal(t, 2, strings.Count(strings.TrimSpace(rec.Body.String()), "\n")+1)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/reference/payments", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "Required columns")

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/template/invoices", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret"}}
	s, _ := newTestServer(t, cfg, nil)

	assert.Equal(t, http.StatusUnauthorized, serve(s, httptest.NewRequest(http.MethodGet, "/api/kinds", nil)).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/kinds", nil)
	req.Header.Set("X-API-Key", "secret")
	assert.Equal(t, http.StatusOK, serve(s, req).Code)

	// Health checks stay open.
	assert.Equal(t, http.StatusOK, serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
}

func TestImportRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, ImportLimit: 1}
	s, _ := newTestServer(t, cfg, nil)

	first := serve(s, uploadRequest(t, "/api/import/members?wait=true", "m.csv", membersCSV, nil))
	require.Equal(t, http.StatusOK, first.Code)

	second := serve(s, uploadRequest(t, "/api/import/members?wait=true", "m.csv", membersCSV, nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decodeError(t, second).Code)

	// Other routes use the general budget.
	assert.Equal(t, http.StatusOK, serve(s, httptest.NewRequest(http.MethodGet, "/api/kinds", nil)).Code)
}

func TestParseRange(t *testing.T) {
	r, err := parseRange("", "")
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = parseRange("2024-03-01", "")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.True(t, r.End.IsZero())
	assert.Equal(t, time.March, r.Start.Month())
}

func TestProgressFilter(t *testing.T) {
	snap := func(phase core.ImportPhase, pct float64) core.ImportProgress {
		return core.ImportProgress{Phase: phase, Percent: pct}
	}

	t.Run("phase changes at the same percent", func(t *testing.T) {
		f := progressFilter{lastPct: -1}
		steps := []struct {
			progress core.ImportProgress
			want     bool
		}{
			{snap(core.PhaseStarting, 0), true},
			{snap(core.PhaseParsing, 0), true},
			{snap(core.PhaseParsing, 0), false},
			{snap(core.PhaseValidating, 0), true},
			{snap(core.PhaseCommitting, 0), true},
			{snap(core.PhaseCommitting, 0.4), false},
			{snap(core.PhaseCommitting, 50), true},
			{snap(core.PhaseComplete, 100), true},
		}
		for i, s := range steps {
			assert.Equal(t, s.want, f.next(s.progress), "step %d (%s %.1f)", i, s.progress.Phase, s.progress.Percent)
		}
	})

	t.Run("reconnect skips seen percent", func(t *testing.T) {
		f := progressFilter{lastPct: 40}
		assert.False(t, f.next(snap(core.PhaseCommitting, 40)))
		assert.True(t, f.next(snap(core.PhaseCommitting, 41)))
		assert.True(t, f.next(snap(core.PhaseComplete, 41)))
	})
}
