package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joelkehle/healthgenie/internal/imaging"
	"github.com/joelkehle/healthgenie/internal/medanalysis"
)

// CaseRunner executes a submitted case. The production implementation is
// Bridge; tests substitute a fake.
type CaseRunner interface {
	Run(ctx context.Context, token string, input CaseInput)
}

// ReportPDFRenderer turns a markdown report into a PDF document.
type ReportPDFRenderer interface {
	Render(ctx context.Context, report string) ([]byte, error)
}

type Server struct {
	runner      CaseRunner
	store       *CaseStore
	webDir      string
	uploadDir   string
	pdfRenderer ReportPDFRenderer
}

func NewServer(runner CaseRunner, store *CaseStore, webDir, uploadDir string) http.Handler {
	return newServer(runner, store, webDir, uploadDir, NewChromiumPDFRenderer(webDir))
}

func newServer(runner CaseRunner, store *CaseStore, webDir, uploadDir string, pdfRenderer ReportPDFRenderer) http.Handler {
	s := &Server{
		runner:      runner,
		store:       store,
		webDir:      webDir,
		uploadDir:   uploadDir,
		pdfRenderer: pdfRenderer,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/submit", s.handleSubmit)
	mux.HandleFunc("/status/", s.handleStatus)
	mux.HandleFunc("/report/", s.handleReport)
	mux.HandleFunc("/report-pdf/", s.handleReportPDF)
	mux.HandleFunc("/report-pdf-inline", s.handleReportPDFInline)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/", s.handleRoot)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]any{"status": "ok"})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	// Prevent stale frontend bundles from breaking the UI after deploys.
	w.Header().Set("Cache-Control", "no-store")
	if r.URL.Path == "/" || r.URL.Path == "/index.html" {
		http.ServeFile(w, r, filepath.Join(s.webDir, "index.html"))
		return
	}
	// Serve static files from web directory.
	path := filepath.Join(s.webDir, filepath.Clean(r.URL.Path))
	if _, err := fs.Stat(os.DirFS(s.webDir), strings.TrimPrefix(filepath.Clean(r.URL.Path), "/")); err == nil {
		http.ServeFile(w, r, path)
		return
	}
	http.NotFound(w, r)
}

type stagedUpload struct {
	name string
	blob []byte
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, 400, "invalid multipart form")
		return
	}

	location := strings.TrimSpace(r.FormValue("location"))
	preferences := strings.TrimSpace(r.FormValue("preferences"))
	caseNumber := strings.TrimSpace(r.FormValue("case_number"))

	var caseID string
	if caseNumber != "" {
		caseID = caseNumber
	} else {
		caseID = fmt.Sprintf("CASE-%d", time.Now().UTC().UnixNano())
	}

	var xrayUp, reportUp *stagedUpload
	if file, header, err := r.FormFile("xray"); err == nil {
		blob, err := readUpload(file, header)
		if err != nil {
			writeError(w, 400, err.Error())
			return
		}
		if err := imaging.Validate(header.Filename, blob); err != nil {
			writeError(w, 400, fmt.Sprintf("x-ray: %v", err))
			return
		}
		xrayUp = &stagedUpload{name: header.Filename, blob: blob}
	}
	if file, header, err := r.FormFile("report"); err == nil {
		blob, err := readUpload(file, header)
		if err != nil {
			writeError(w, 400, err.Error())
			return
		}
		if err := validateReport(header.Filename, blob); err != nil {
			writeError(w, 400, fmt.Sprintf("report: %v", err))
			return
		}
		reportUp = &stagedUpload{name: header.Filename, blob: blob}
	}
	if xrayUp == nil && reportUp == nil {
		writeError(w, 400, "at least one of xray or report is required")
		return
	}

	input := CaseInput{CaseID: caseID, Location: location, Preferences: preferences}
	if xrayUp != nil {
		up, err := s.stageFile("xray", xrayUp)
		if err != nil {
			log.Printf("portal stage_upload_failed case=%s err=%v", caseID, err)
			writeError(w, 500, "failed to save uploaded file")
			return
		}
		input.XRay = up
	}
	if reportUp != nil {
		up, err := s.stageFile("report", reportUp)
		if err != nil {
			log.Printf("portal stage_upload_failed case=%s err=%v", caseID, err)
			writeError(w, 500, "failed to save uploaded file")
			return
		}
		input.Report = up
	}

	token := s.store.Create(caseID)
	log.Printf("portal case_submitted token=%s case=%s xray=%v report=%v", token, caseID, xrayUp != nil, reportUp != nil)

	// The pipeline outlives the request; detach it from the request context.
	go s.runner.Run(context.Background(), token, input)

	writeJSON(w, 200, map[string]any{
		"token":  token,
		"stages": CaseStages,
		"status": "submitted",
	})
}

func readUpload(file multipart.File, header *multipart.FileHeader) ([]byte, error) {
	defer file.Close()
	blob, err := io.ReadAll(io.LimitReader(file, imaging.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %v", header.Filename, err)
	}
	if len(blob) > imaging.MaxUploadBytes {
		return nil, fmt.Errorf("%s exceeds the %d MB upload limit", header.Filename, imaging.MaxUploadBytes>>20)
	}
	if len(blob) == 0 {
		return nil, fmt.Errorf("%s is empty", header.Filename)
	}
	return blob, nil
}

// validateReport accepts a PDF or a supported image.
func validateReport(name string, blob []byte) error {
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		if !medanalysis.IsPDF(blob) {
			return fmt.Errorf("%s is not a valid PDF", name)
		}
		return nil
	}
	if imaging.SupportedExtension(name) {
		return imaging.Validate(name, blob)
	}
	return fmt.Errorf("unsupported format %s; use JPEG, PNG, BMP, or PDF", filepath.Ext(name))
}

// stageFile writes an upload under the upload directory with a unique name.
// The returned Upload keeps the original filename for format detection.
func (s *Server) stageFile(kind string, up *stagedUpload) (*Upload, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	staged := fmt.Sprintf("%s-%d-%s", kind, time.Now().UTC().UnixNano(), sanitizeFilename(filepath.Base(up.name)))
	dst := filepath.Join(s.uploadDir, staged)
	if err := os.WriteFile(dst, up.blob, 0o644); err != nil {
		return nil, fmt.Errorf("write upload: %w", err)
	}
	return &Upload{Name: up.name, Path: dst}, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	token := strings.TrimPrefix(r.URL.Path, "/status/")
	token = strings.TrimSuffix(token, "/")
	if token == "" {
		writeError(w, 400, "token is required")
		return
	}
	snap, ok := s.store.Snapshot(token)
	if !ok {
		writeError(w, 404, "case not found")
		return
	}
	writeJSON(w, 200, snap)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	_, _, report, ok := s.getStageReport(strings.TrimPrefix(r.URL.Path, "/report/"), w)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(200)
	_, _ = w.Write([]byte(report))
}

func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.pdfRenderer == nil {
		writeError(w, 503, "pdf renderer unavailable")
		return
	}
	token, stage, report, ok := s.getStageReport(strings.TrimPrefix(r.URL.Path, "/report-pdf/"), w)
	if !ok {
		return
	}
	pdf, err := s.pdfRenderer.Render(r.Context(), report)
	if err != nil {
		log.Printf("portal render_pdf_failed token=%s stage=%s err=%v", token, stage, err)
		writeError(w, 500, "failed to render pdf")
		return
	}
	filename := fmt.Sprintf("%s-%s.pdf", sanitizeFilename(stage), sanitizeFilename(token))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(200)
	_, _ = w.Write(pdf)
}

func (s *Server) handleReportPDFInline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.pdfRenderer == nil {
		writeError(w, 503, "pdf renderer unavailable")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 5<<20))
	if err != nil {
		writeError(w, 400, "invalid request body")
		return
	}
	report := strings.TrimSpace(string(body))
	if report == "" {
		writeError(w, 400, "report body is required")
		return
	}
	pdf, err := s.pdfRenderer.Render(r.Context(), report)
	if err != nil {
		log.Printf("portal render_inline_pdf_failed err=%v", err)
		writeError(w, 500, "failed to render pdf")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="report.pdf"`)
	w.WriteHeader(200)
	_, _ = w.Write(pdf)
}

// getStageReport resolves /{token}/{stage} paths, writing the error response
// itself when the report cannot be served.
func (s *Server) getStageReport(path string, w http.ResponseWriter) (token, stage, report string, ok bool) {
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		writeError(w, 400, "path must be /{token}/{stage}")
		return "", "", "", false
	}
	token = parts[0]
	stage = strings.TrimSuffix(parts[1], "/")

	snap, found := s.store.Snapshot(token)
	if !found {
		writeError(w, 404, "case not found")
		return "", "", "", false
	}
	st, found := snap.Stages[stage]
	if !found {
		writeError(w, 404, "stage not found")
		return "", "", "", false
	}
	if !st.Ready {
		writeError(w, 404, "report not ready")
		return "", "", "", false
	}
	report, _ = s.store.StageReport(token, stage)
	return token, stage, report, true
}

func sanitizeFilename(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "report"
	}
	v = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '.':
			return r
		default:
			return '-'
		}
	}, v)
	return v
}
