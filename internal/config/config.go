package config

import (
	"os"
	"strconv"
)

// Config holds all configuration for the AgentFlow control plane.
type Config struct {
	Port      int
	Version   string
	DataDir   string
	LLM       LLMConfig
	Telemetry TelemetryConfig
}

// LLMConfig selects the generative provider backing chat, routing,
// evaluation, and drift correction. An empty Provider disables all
// generative features; the rest of the API keeps working.
type LLMConfig struct {
	Provider string
	APIKey   string
	Model    string
	Endpoint string
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:    envInt("AGENTFLOW_PORT", 8080),
		Version: envStr("AGENTFLOW_VERSION", "0.1.0"),
		DataDir: envStr("AGENTFLOW_DATA_DIR", ""),
		LLM: LLMConfig{
			Provider: envStr("AGENTFLOW_LLM_PROVIDER", ""),
			APIKey:   envStr("AGENTFLOW_LLM_API_KEY", ""),
			Model:    envStr("AGENTFLOW_LLM_MODEL", ""),
			Endpoint: envStr("AGENTFLOW_LLM_ENDPOINT", ""),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "agentflow-control-plane"),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
