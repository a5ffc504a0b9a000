package orchestrator

import (
    "context"
    "net"
    "net/http"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/rs/zerolog"

    "github.com/local/vitanote/internal/metrics"
)

const requestIDHeader = "X-Request-Id"

type requestIDContextKey struct{}

func requestIDFromContext(ctx context.Context) string {
    if ctx == nil { return "" }
    id, _ := ctx.Value(requestIDContextKey{}).(string)
    return id
}

// WithRequestID attaches id to ctx; the CLI uses it for offline runs.
func WithRequestID(ctx context.Context, id string) context.Context {
    return context.WithValue(ctx, requestIDContextKey{}, id)
}

func requestIDMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        id := strings.TrimSpace(r.Header.Get(requestIDHeader))
        if id == "" { id = uuid.NewString() }
        w.Header().Set(requestIDHeader, id)
        next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
    })
}

// corsMiddleware allows the configured origins ("*" for any) and answers
// preflight requests directly.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
    allowAll := len(origins) == 0
    allowed := make(map[string]bool, len(origins))
    for _, o := range origins {
        if o == "*" { allowAll = true }
        allowed[o] = true
    }
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        origin := r.Header.Get("Origin")
        switch {
        case allowAll:
            w.Header().Set("Access-Control-Allow-Origin", "*")
        case origin != "" && allowed[origin]:
            w.Header().Set("Access-Control-Allow-Origin", origin)
            w.Header().Add("Vary", "Origin")
        }
        w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
        w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-Id")
        w.Header().Set("Access-Control-Expose-Headers", "X-Request-Id, Content-Disposition")
        w.Header().Set("Access-Control-Max-Age", "86400")
        if r.Method == http.MethodOptions {
            w.WriteHeader(http.StatusNoContent)
            return
        }
        next.ServeHTTP(w, r)
    })
}

func accessLogMiddleware(log zerolog.Logger, next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()
        rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
        next.ServeHTTP(rec, r)
        dur := time.Since(start)

        remote := r.RemoteAddr
        if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil { remote = host }

        metrics.ObserveHTTP(routeLabel(r.URL.Path), r.Method, rec.statusCode, dur)

        var ev *zerolog.Event
        switch {
        case rec.statusCode >= 500:
            ev = log.Error()
        case rec.statusCode >= 400:
            ev = log.Warn()
        default:
            ev = log.Info()
        }
        ev.Str("request_id", requestIDFromContext(r.Context())).
            Str("method", r.Method).
            Str("path", r.URL.Path).
            Int("status", rec.statusCode).
            Float64("duration_ms", float64(dur.Microseconds())/1000.0).
            Int("bytes", rec.bytesWritten).
            Str("remote_addr", remote).
            Str("user_agent", r.UserAgent()).
            Msg("http_request")
    })
}

// routeLabel keeps metric cardinality bounded.
func routeLabel(path string) string {
    switch {
    case strings.HasPrefix(path, "/download/"):
        return "/download"
    case strings.HasPrefix(path, "/status/"):
        return "/status"
    case path == "/uploads", path == "/chat", path == "/health", path == "/health/ready", path == "/metrics":
        return path
    default:
        return "other"
    }
}

type statusRecorder struct {
    http.ResponseWriter
    statusCode   int
    bytesWritten int
}

func (w *statusRecorder) WriteHeader(code int) {
    w.statusCode = code
    w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
    n, err := w.ResponseWriter.Write(b)
    w.bytesWritten += n
    return n, err
}

func (w *statusRecorder) Flush() {
    if f, ok := w.ResponseWriter.(http.Flusher); ok { f.Flush() }
}
