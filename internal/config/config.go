package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Responder modes.
const (
	ModeMock   = "mock"
	ModeRemote = "remote"
)

// Config aggregates all service configuration.
type Config struct {
	Server    ServerConfig
	Therapist TherapistConfig
	Store     StoreConfig
	Monitor   MonitorConfig
	Telemetry TelemetryConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	therapist, err := loadTherapistConfig()
	if err != nil {
		return nil, err
	}

	store := StoreConfig{
		Path: getEnvOrDefault("SESSION_STORE_PATH", "data/sessions.json"),
	}

	monitor, err := loadMonitorConfig()
	if err != nil {
		return nil, err
	}

	telemetryEnabled, err := parseBoolEnv("TELEMETRY_ENABLED", true)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		Therapist: therapist,
		Store:     store,
		Monitor:   monitor,
		Telemetry: TelemetryConfig{Enabled: telemetryEnabled},
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" verbatim.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// TherapistConfig selects the responder and its upstream backend.
type TherapistConfig struct {
	Mode              string
	UpstreamBaseURL   string
	UpstreamTimeout   time.Duration
	MockResponseDelay time.Duration
	UseRAGDefault     bool
	RAGExamples       int
}

// Remote reports whether turns are forwarded to the external backend.
func (c TherapistConfig) Remote() bool {
	return c.Mode == ModeRemote
}

func loadTherapistConfig() (TherapistConfig, error) {
	mode := strings.ToLower(getEnvOrDefault("RESPONDER_MODE", ModeMock))
	if mode != ModeMock && mode != ModeRemote {
		return TherapistConfig{}, fmt.Errorf("invalid RESPONDER_MODE value: %q", mode)
	}

	baseURL := strings.TrimRight(getEnvOrDefault("UPSTREAM_BASE_URL", "http://localhost:8000"), "/")
	if mode == ModeRemote && baseURL == "" {
		return TherapistConfig{}, fmt.Errorf("UPSTREAM_BASE_URL is required in remote mode")
	}

	timeout, err := parseDurationEnv("UPSTREAM_TIMEOUT", 30*time.Second)
	if err != nil {
		return TherapistConfig{}, err
	}

	mockDelay, err := parseDurationEnv("MOCK_RESPONSE_DELAY", 500*time.Millisecond)
	if err != nil {
		return TherapistConfig{}, err
	}

	useRAG, err := parseBoolEnv("USE_RAG_DEFAULT", true)
	if err != nil {
		return TherapistConfig{}, err
	}

	ragExamples := 3
	if override, err := parseOptionalIntEnv("RAG_EXAMPLES_DEFAULT"); err != nil {
		return TherapistConfig{}, err
	} else if override != nil {
		if *override < 0 {
			return TherapistConfig{}, fmt.Errorf("RAG_EXAMPLES_DEFAULT must not be negative")
		}
		ragExamples = *override
	}

	return TherapistConfig{
		Mode:              mode,
		UpstreamBaseURL:   baseURL,
		UpstreamTimeout:   timeout,
		MockResponseDelay: mockDelay,
		UseRAGDefault:     useRAG,
		RAGExamples:       ragExamples,
	}, nil
}

// StoreConfig locates the persisted session record collection.
type StoreConfig struct {
	Path string
}

// MonitorConfig tunes the video emotion polling loop.
type MonitorConfig struct {
	Interval time.Duration
}

func loadMonitorConfig() (MonitorConfig, error) {
	interval, err := parseDurationEnv("MONITOR_INTERVAL", 3*time.Second)
	if err != nil {
		return MonitorConfig{}, err
	}
	if interval <= 0 {
		return MonitorConfig{}, fmt.Errorf("MONITOR_INTERVAL must be positive")
	}
	return MonitorConfig{Interval: interval}, nil
}

// TelemetryConfig toggles metric export.
type TelemetryConfig struct {
	Enabled bool
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}
