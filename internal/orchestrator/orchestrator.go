package orchestrator

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/rs/zerolog"

    "github.com/local/vitanote/internal/domain"
    "github.com/local/vitanote/internal/logger"
    "github.com/local/vitanote/internal/metrics"
    "github.com/local/vitanote/internal/report"
    "github.com/local/vitanote/internal/statuscheck"
)

type Dependencies struct {
    Extractor Extractor
    Analyzer  Analyzer
    Renderer  Renderer
    Archive   Archive
    Stages    StageStore
    Status    *statuscheck.Checker

    UploadDir      string
    OutputDir      string
    MaxUploadBytes int64
    AllowedOrigins []string
}

type Orchestrator struct {
    deps Dependencies
    log  zerolog.Logger
}

func New(deps Dependencies) *Orchestrator {
    if deps.UploadDir == "" { deps.UploadDir = "uploads" }
    if deps.OutputDir == "" { deps.OutputDir = "output" }
    if deps.MaxUploadBytes <= 0 { deps.MaxUploadBytes = 32 << 20 }
    return &Orchestrator{deps: deps, log: logger.WithComponent("orchestrator")}
}

func (o *Orchestrator) RegisterRoutes(mux *http.ServeMux) {
    mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request){ w.WriteHeader(http.StatusOK); _,_ = w.Write([]byte("ok")) })
    mux.HandleFunc("/health/ready", o.handleReady)
    mux.Handle("/metrics", metrics.Handler())
    mux.HandleFunc("/uploads", o.handleUpload)
    mux.HandleFunc("/chat", o.handleChat)
    mux.HandleFunc("/download/", o.handleDownload)
    mux.HandleFunc("/status/", o.handleStatus)
}

// Handler returns the routed mux wrapped in the request id, access log and
// CORS middleware.
func (o *Orchestrator) Handler() http.Handler {
    mux := http.NewServeMux()
    o.RegisterRoutes(mux)
    return requestIDMiddleware(accessLogMiddleware(o.log, corsMiddleware(o.deps.AllowedOrigins, mux)))
}

type uploadResp struct {
    ExtractedText string `json:"extracted_text"`
    Analysis      string `json:"analysis"`
    DownloadURL   string `json:"download_url"`
}

func (o *Orchestrator) handleUpload(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost { w.WriteHeader(http.StatusMethodNotAllowed); return }
    r.Body = http.MaxBytesReader(w, r.Body, o.deps.MaxUploadBytes)
    if err := r.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
        var tooBig *http.MaxBytesError
        if errors.As(err, &tooBig) {
            writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File exceeds %d bytes", tooBig.Limit)); return
        }
        writeError(w, http.StatusBadRequest, "Invalid multipart form"); return
    }
    file, hdr, err := r.FormFile("file")
    if err != nil { writeError(w, http.StatusBadRequest, "No file uploaded"); return }
    defer file.Close()
    if strings.TrimSpace(hdr.Filename) == "" { writeError(w, http.StatusBadRequest, "Empty file"); return }

    path, err := o.SaveUpload(hdr.Filename, file)
    if err != nil { writeDomainError(w, err); return }

    // the file is already saved, so any pipeline failure is ours
    res, err := o.ProcessUpload(r.Context(), path)
    if err != nil { writeError(w, http.StatusInternalServerError, err.Error()); return }

    writeJSON(w, http.StatusOK, uploadResp{
        ExtractedText: res.Document.Text,
        Analysis:      res.Analysis.Text,
        DownloadURL:   res.DownloadURL,
    })
}

type chatReq struct {
    Message string `json:"message"`
    Context string `json:"context"`
}

func (o *Orchestrator) handleChat(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost { w.WriteHeader(http.StatusMethodNotAllowed); return }
    defer r.Body.Close()
    var req chatReq
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeError(w, http.StatusBadRequest, "Invalid JSON body"); return
    }
    if req.Message == "" || req.Context == "" {
        writeError(w, http.StatusBadRequest, "Missing message or context"); return
    }
    reply, err := o.Chat(r.Context(), req.Message, req.Context)
    if err != nil { writeDomainError(w, err); return }
    writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}

// handleDownload serves a rendered report as an attachment, restoring it
// from the archive when the local copy is gone.
func (o *Orchestrator) handleDownload(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet && r.Method != http.MethodHead { w.WriteHeader(http.StatusMethodNotAllowed); return }
    name := strings.TrimPrefix(r.URL.Path, "/download/")
    w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))

    f, err := report.Open(o.deps.OutputDir, name)
    if err == nil {
        defer f.Close()
        st, err := f.Stat()
        if err != nil { http.Error(w, "failed to read", http.StatusInternalServerError); return }
        w.Header().Set("Content-Type", "application/pdf")
        http.ServeContent(w, r, name, st.ModTime(), f)
        return
    }
    if !errors.Is(err, domain.ErrNotFound) {
        o.log.Error().Err(err).Str("filename", name).Msg("open report failed")
        http.Error(w, "failed to read", http.StatusInternalServerError); return
    }

    if o.deps.Archive != nil && strings.HasSuffix(name, ".pdf") && !strings.ContainsAny(name, `/\`) {
        data, aerr := o.deps.Archive.Get(r.Context(), name)
        if aerr == nil {
            o.log.Info().Str("filename", name).Msg("report served from archive")
            w.Header().Set("Content-Type", "application/pdf")
            http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(data))
            return
        }
        if !errors.Is(aerr, domain.ErrNotFound) {
            o.log.Warn().Err(aerr).Str("filename", name).Msg("archive lookup failed")
        }
    }
    w.Header().Del("Content-Disposition")
    http.Error(w, "File not found", http.StatusNotFound)
}

// handleStatus reports the last recorded stage of a request id.
func (o *Orchestrator) handleStatus(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    id := strings.TrimPrefix(r.URL.Path, "/status/")
    if o.deps.Stages == nil || id == "" { writeError(w, http.StatusNotFound, "Unknown request"); return }
    rec, ok, err := o.deps.Stages.Get(r.Context(), id)
    if err != nil {
        o.log.Error().Err(err).Str("lookup_id", id).Msg("stage lookup failed")
        writeError(w, http.StatusInternalServerError, "Status unavailable"); return
    }
    if !ok { writeError(w, http.StatusNotFound, "Unknown request"); return }
    writeJSON(w, http.StatusOK, rec)
}

func (o *Orchestrator) handleReady(w http.ResponseWriter, r *http.Request) {
    if o.deps.Status == nil { writeJSON(w, http.StatusOK, map[string]bool{"ready": true}); return }
    ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
    defer cancel()
    s := o.deps.Status.Summary(ctx)
    code := http.StatusOK
    if !s.Ready { code = http.StatusServiceUnavailable }
    writeJSON(w, code, s)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(code)
    _ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
    writeJSON(w, code, map[string]string{"error": msg})
}

// writeDomainError maps domain error kinds to status codes; anything
// unclassified is a 500 carrying the error text.
func writeDomainError(w http.ResponseWriter, err error) {
    switch {
    case domain.IsKind(err, domain.ErrInvalidInput):
        writeError(w, http.StatusBadRequest, err.Error())
    case domain.IsKind(err, domain.ErrNotFound):
        writeError(w, http.StatusNotFound, err.Error())
    default:
        writeError(w, http.StatusInternalServerError, err.Error())
    }
}
