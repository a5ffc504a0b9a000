package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
    Level        string
    Pretty       bool
    File         string
    MaxSizeMB    int
    MaxBackups   int
    MaxAgeDays   int
    Compress     bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
    Send          bool
    APIKey        string
    OrgID         string
    Dataset       string
    FlushInterval time.Duration
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
    Port           string
    AllowedOrigins []string
    MaxUploadMB    int64
    ReadTimeout    time.Duration
    WriteTimeout   time.Duration
}

// ModelConfig describes the language model providers. Empty keys are valid
// and mean the analyzer runs on templates only.
type ModelConfig struct {
    GroqAPIKey         string
    GroqModel          string
    GroqBaseURL        string
    OpenAIAPIKey       string
    OpenAIModel        string
    AnthropicAPIKey    string
    AnthropicModel     string
    RequestTimeout     time.Duration
    MaxAttempts        int
    RetryBaseDelay     time.Duration
    RetryJitter        time.Duration
    RetryBackoffFactor float64
}

// Configured reports whether at least one provider has credentials.
func (m ModelConfig) Configured() bool {
    return m.GroqAPIKey != "" || m.OpenAIAPIKey != "" || m.AnthropicAPIKey != ""
}

// BreakerConfig controls per-model circuit breaking.
type BreakerConfig struct {
    RedisURL    string
    BaseBackoff time.Duration
    MaxBackoff  time.Duration
}

// OCRConfig selects and tunes the OCR engine.
type OCRConfig struct {
    Engine          string // "tesseract"|"vision"|"none"
    TesseractPath   string
    Language        string
    TessdataDir     string
    DPI             float64
    MaxPages        int
    CredentialsJSON string
    CredentialsFile string
    MaxConcurrent   int
    Timeout         time.Duration
}

// StorageConfig holds local directories and the optional S3 archive.
type StorageConfig struct {
    UploadDir       string
    OutputDir       string
    S3Bucket        string
    S3Prefix        string
    AWSRegion       string
    AWSAccessKey    string
    AWSSecretKey    string
    ArchivePassword string
}

// ArchiveEnabled reports whether rendered reports are copied to S3.
func (s StorageConfig) ArchiveEnabled() bool { return s.S3Bucket != "" }

// Config is the top-level configuration.
type Config struct {
    Logging   LoggingConfig
    Axiom     AxiomConfig
    Server    ServerConfig
    Model     ModelConfig
    Breaker   BreakerConfig
    OCR       OCRConfig
    Storage   StorageConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
    cfg := Config{}

    // Logging defaults
    cfg.Logging = LoggingConfig{
        Level:      getEnv("LOG_LEVEL", "info"),
        Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
        File:       getEnv("LOG_FILE", "logs/vitanote.log"),
        MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
        MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
        MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
        Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
    }

    // Axiom defaults
    baseDataset := getEnv("AXIOM_DATASET", "dev")
    cfg.Axiom = AxiomConfig{
        Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
        APIKey:        getEnv("AXIOM_API_KEY", ""),
        OrgID:         getEnv("AXIOM_ORG_ID", ""),
        Dataset:       baseDataset + "_vitanote",
        FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
    }

    cfg.Server = ServerConfig{
        Port:           getEnv("PORT", "5050"),
        AllowedOrigins: parseList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
        MaxUploadMB:    int64(parseInt(getEnv("MAX_UPLOAD_MB", "32"), 32)),
        ReadTimeout:    parseDuration(getEnv("HTTP_READ_TIMEOUT", "60s"), 60*time.Second),
        WriteTimeout:   parseDuration(getEnv("HTTP_WRITE_TIMEOUT", "5m"), 5*time.Minute),
    }

    // Model defaults; Groq speaks the OpenAI wire format
    cfg.Model = ModelConfig{
        GroqAPIKey:         getEnv("GROQ_API_KEY", ""),
        GroqModel:          getEnv("MODEL_NAME", "llama3-8b-8192"),
        GroqBaseURL:        getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
        OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
        OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
        AnthropicAPIKey:    getEnv("ANTHROPIC_API_KEY", ""),
        AnthropicModel:     getEnv("ANTHROPIC_MODEL", "claude-3-haiku"),
        RequestTimeout:     parseDuration(getEnv("REQUEST_TIMEOUT", "60s"), 60*time.Second),
        MaxAttempts:        parseInt(getEnv("MODEL_MAX_ATTEMPTS", "2"), 2),
        RetryBaseDelay:     parseDuration(getEnv("RETRY_BASE_DELAY", "1s"), time.Second),
        RetryJitter:        parseDuration(getEnv("RETRY_JITTER", "200ms"), 200*time.Millisecond),
        RetryBackoffFactor: parseFloat(getEnv("RETRY_BACKOFF_FACTOR", "2.0"), 2.0),
    }
    if cfg.Model.MaxAttempts < 1 { cfg.Model.MaxAttempts = 1 }

    cfg.Breaker = BreakerConfig{
        RedisURL:    getEnv("REDIS_URL", ""),
        BaseBackoff: parseDuration(getEnv("BREAKER_BASE_BACKOFF", "30s"), 30*time.Second),
        MaxBackoff:  parseDuration(getEnv("BREAKER_MAX_BACKOFF", "5m"), 5*time.Minute),
    }

    cfg.OCR = OCRConfig{
        Engine:          strings.ToLower(getEnv("OCR_ENGINE", "tesseract")),
        TesseractPath:   getEnv("TESSERACT_PATH", "tesseract"),
        Language:        getEnv("OCR_LANGUAGE", "eng"),
        TessdataDir:     getEnv("TESSDATA_DIR", ""),
        DPI:             parseFloat(getEnv("OCR_DPI", "300"), 300),
        MaxPages:        parseInt(getEnv("OCR_MAX_PAGES", "50"), 50),
        CredentialsJSON: getEnv("GOOGLE_CREDENTIALS", ""),
        CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
        MaxConcurrent:   parseInt(getEnv("OCR_MAX_CONCURRENT", "2"), 2),
        Timeout:         parseDuration(getEnv("OCR_TIMEOUT", "2m"), 2*time.Minute),
    }

    cfg.Storage = StorageConfig{
        UploadDir:       getEnv("UPLOAD_DIR", "uploads"),
        OutputDir:       getEnv("OUTPUT_DIR", "output"),
        S3Bucket:        getEnv("S3_BUCKET", ""),
        S3Prefix:        getEnv("S3_PREFIX", "reports"),
        AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
        AWSAccessKey:    getEnv("AWS_ACCESS_KEY_ID", ""),
        AWSSecretKey:    getEnv("AWS_SECRET_ACCESS_KEY", ""),
        ArchivePassword: getEnv("ARCHIVE_PASSWORD", ""),
    }

    return cfg
}

// Helpers
func getEnv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func parseInt(s string, def int) int {
    if s == "" { return def }
    if n, err := strconv.Atoi(s); err == nil { return n }
    return def
}

func parseFloat(s string, def float64) float64 {
    if s == "" { return def }
    if f, err := strconv.ParseFloat(s, 64); err == nil { return f }
    return def
}

func parseBool(s string) bool {
    v := strings.ToLower(strings.TrimSpace(s))
    return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
    if s == "" { return def }
    if d, err := time.ParseDuration(s); err == nil { return d }
    return def
}

func parseList(s string) []string {
    var out []string
    for _, p := range strings.Split(s, ",") {
        if p = strings.TrimSpace(p); p != "" {
            out = append(out, p)
        }
    }
    return out
}

func devDefaultPretty() string {
    env := strings.ToLower(os.Getenv("ENVIRONMENT"))
    if env == "dev" || env == "development" || env == "local" { return "true" }
    return "false"
}
