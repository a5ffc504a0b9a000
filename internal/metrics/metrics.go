package metrics

import (
    "net/http"
    "strconv"
    "sync"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vitanote"

var (
    providerReqs = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "provider_requests_total",
            Help:      "Total model provider requests by provider, model and result",
        },
        []string{"provider", "model", "result"},
    )

    providerLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: namespace,
            Name:      "provider_request_duration_seconds",
            Help:      "Duration of model provider requests by provider and model",
            Buckets:   prometheus.DefBuckets,
        },
        []string{"provider", "model"},
    )

    retriesTotal = prometheus.NewCounter(
        prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "provider_retries_total",
            Help:      "Total number of model call retries",
        },
    )

    breakerEvents = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "breaker_events_total",
            Help:      "Circuit breaker events by provider, model and action",
        },
        []string{"provider", "model", "action"},
    )

    extractions = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "extractions_total",
            Help:      "Text extractions by source (real_ocr, metadata_fallback)",
        },
        []string{"source"},
    )

    ocrPages = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "ocr_pages_total",
            Help:      "Pages recognized by engine and result",
        },
        []string{"engine", "result"},
    )

    ocrInflight = prometheus.NewGauge(
        prometheus.GaugeOpts{
            Namespace: namespace,
            Name:      "ocr_inflight",
            Help:      "OCR runs currently holding a slot",
        },
    )

    analyses = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "analyses_total",
            Help:      "Analyses by outcome (model, fallback) and document type",
        },
        []string{"outcome", "doc_type"},
    )

    reports = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "reports_rendered_total",
            Help:      "Rendered reports by layout and fallback flag",
        },
        []string{"layout", "fallback"},
    )

    stages = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "pipeline_stage_total",
            Help:      "Pipeline state transitions by state",
        },
        []string{"state"},
    )

    httpReqs = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "http_requests_total",
            Help:      "HTTP requests by route, method and status",
        },
        []string{"route", "method", "status"},
    )

    httpLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: namespace,
            Name:      "http_request_duration_seconds",
            Help:      "HTTP request duration by route",
            Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
        },
        []string{"route"},
    )

    once sync.Once
)

// Init registers collectors. Safe to call more than once.
func Init() {
    once.Do(func() {
        prometheus.MustRegister(providerReqs, providerLatency, retriesTotal, breakerEvents,
            extractions, ocrPages, ocrInflight, analyses, reports, stages, httpReqs, httpLatency)
    })
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveProvider(provider, model, result string, dur time.Duration) {
    providerReqs.WithLabelValues(provider, model, result).Inc()
    providerLatency.WithLabelValues(provider, model).Observe(dur.Seconds())
}

func IncRetry() { retriesTotal.Inc() }
func BreakerOpened(provider, model string) { breakerEvents.WithLabelValues(provider, model, "opened").Inc() }
func BreakerClosed(provider, model string) { breakerEvents.WithLabelValues(provider, model, "closed").Inc() }

func IncExtraction(source string) { extractions.WithLabelValues(source).Inc() }

func IncOCRPage(engine string, ok bool) {
    result := "ok"
    if !ok { result = "error" }
    ocrPages.WithLabelValues(engine, result).Inc()
}

func OCRSlotAcquired() { ocrInflight.Inc() }
func OCRSlotReleased() { ocrInflight.Dec() }

func IncAnalysis(outcome, docType string) { analyses.WithLabelValues(outcome, docType).Inc() }

func IncReport(layout string, fallback bool) {
    reports.WithLabelValues(layout, strconv.FormatBool(fallback)).Inc()
}

func IncStage(state string) { stages.WithLabelValues(state).Inc() }

func ObserveHTTP(route, method string, status int, dur time.Duration) {
    httpReqs.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
    httpLatency.WithLabelValues(route).Observe(dur.Seconds())
}
