package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dgallion1/docforge/internal/ir"
	"github.com/dgallion1/docforge/internal/report"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// handleConvert runs a conversion inline and streams the docx back. The
// report warning count goes into a response header; the full report is
// only available through the async job endpoints.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Parser.MaxInputBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	filename, data, ok := s.readUpload(w, r, "file")
	if !ok {
		return
	}

	conv := s.orchestrator.Converter()
	out, res, err := conv.ConvertBytes(r.Context(), data, filename, r.FormValue("title"))
	if err != nil {
		s.log.Error("sync conversion failed", "filename", filename, "error", err)
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("X-Docforge-Warnings", fmt.Sprintf("%d", len(res.Report.Warnings)))
	writeDocx(w, docxName(filename), out)
}

// handleInspect parses an upload and returns its report, plus the IR
// checkpoint when ?ir=true.
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Parser.MaxInputBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	filename, data, ok := s.readUpload(w, r, "file")
	if !ok {
		return
	}

	conv := s.orchestrator.Converter()
	doc, err := conv.Parse(r.Context(), bytes.NewReader(data), filename)
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	rep := report.FromDocument(doc, s.cfg.Style.LowConfidenceThreshold)

	resp := map[string]any{
		"metadata": doc.Metadata,
		"report":   rep,
	}
	if r.URL.Query().Get("ir") == "true" {
		cp, err := ir.MarshalCheckpoint(doc)
		if err != nil {
			jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		resp["checkpoint"] = json.RawMessage(cp)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func writeDocx(w http.ResponseWriter, name string, data []byte) {
	w.Header().Set("Content-Type", docxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	w.Write(data)
}

// docxName swaps the source extension for .docx.
func docxName(filename string) string {
	base := filename
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base + ".docx"
}
