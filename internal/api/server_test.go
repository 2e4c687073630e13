package api

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
	"testing"
	"time"

	"github.com/dgallion1/docforge/internal/config"
	"github.com/dgallion1/docforge/internal/pipeline"
)

const apiSampleMarkdown = "# Title\n\nSome body text.\n"

func newTestServer(t *testing.T, apiKey string) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Server.APIKey = apiKey
	cfg.Server.WorkerCount = 1
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := pipeline.NewOrchestrator(cfg, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)
	return NewServer(orch, log, cfg)
}

func uploadRequest(t *testing.T, url, field, filename string, data []byte, extra map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fw.Write(data)
	for k, v := range extra {
		mw.WriteField(k, v)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, "")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestAuthRequiredWhenKeyConfigured(t *testing.T) {
	s := newTestServer(t, "secret")

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec.Code)
	}
}

func TestSyncConvertReturnsDocx(t *testing.T) {
	s := newTestServer(t, "")

	req := uploadRequest(t, "/api/convert", "file", "note.md", []byte(apiSampleMarkdown), nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != docxContentType {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "note.docx") {
		t.Errorf("unexpected disposition %q", cd)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Error("expected zip magic in response body")
	}
	if rec.Header().Get("X-Docforge-Warnings") == "" {
		t.Error("expected warning count header")
	}
}

func TestSyncConvertRejectsUnsupportedType(t *testing.T) {
	s := newTestServer(t, "")

	req := uploadRequest(t, "/api/convert", "file", "binary.exe", []byte{0, 1, 2}, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestInspectReturnsReportAndCheckpoint(t *testing.T) {
	s := newTestServer(t, "")

	req := uploadRequest(t, "/api/inspect?ir=true", "file", "note.md", []byte(apiSampleMarkdown), nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Metadata struct {
			Parser string `json:"parser"`
		} `json:"metadata"`
		Report struct {
			TotalNodes int `json:"total_nodes"`
		} `json:"report"`
		Checkpoint json.RawMessage `json:"checkpoint"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Metadata.Parser != "markdown" {
		t.Errorf("unexpected parser %q", resp.Metadata.Parser)
	}
	if resp.Report.TotalNodes == 0 {
		t.Error("expected node counts in report")
	}
	if len(resp.Checkpoint) == 0 {
		t.Error("expected checkpoint payload with ir=true")
	}
}

func TestJobLifecycle(t *testing.T) {
	s := newTestServer(t, "")

	req := uploadRequest(t, "/api/jobs", "file", "note.md", []byte(apiSampleMarkdown), map[string]string{"title": "Note"})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var submitted struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &submitted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if submitted.JobID == "" {
		t.Fatal("expected a job ID")
	}

	deadline := time.Now().Add(5 * time.Second)
	var status string
	for time.Now().Before(deadline) {
		rec = httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/"+submitted.JobID+"/status", nil))
		var snap struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		status = snap.Status
		if status == "completed" || status == "partial" || status == "failed" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if status != "completed" {
		t.Fatalf("expected job to complete, last status %q", status)
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/"+submitted.JobID+"/result", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 result, got %d: %s", rec.Code, rec.Body.String())
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Error("expected docx bytes in result")
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/"+submitted.JobID+"/report", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 report, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "block_counts") {
		t.Error("expected report JSON body")
	}
}

func TestJobResultNotFound(t *testing.T) {
	s := newTestServer(t, "")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/nope/result", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	s := newTestServer(t, "")

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "queue_depth") {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}
