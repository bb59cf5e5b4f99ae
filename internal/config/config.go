// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates all service configuration.
type Config struct {
	Server ServerConfig
	Store  StoreConfig
	LLM    LLMConfig
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// StoreConfig describes the conversation store backing file.
type StoreConfig struct {
	DBPath string
}

// LLMConfig describes the external generation endpoint.
type LLMConfig struct {
	URL     string
	Timeout time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	llm, err := loadLLMConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		Store:  StoreConfig{DBPath: getEnv("DB_PATH", "./data/chats.db")},
		LLM:    llm,
	}, nil
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(getEnv("PORT", "5000"))

	cfg := ServerConfig{
		AllowedOrigins: splitOrigins(getEnv("ALLOWED_ORIGINS", "*")),
	}

	if strings.Contains(port, ":") {
		// Allow passing ":5000" or "127.0.0.1:5000" directly.
		cfg.Addr = port
		return cfg, nil
	}
	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	cfg.Addr = ":" + port
	return cfg, nil
}

func loadLLMConfig() (LLMConfig, error) {
	url := strings.TrimSpace(os.Getenv("LLM_URL"))
	if url == "" {
		return LLMConfig{}, fmt.Errorf("LLM_URL is required")
	}

	timeout := getEnvInt("LLM_TIMEOUT_SECONDS", 60)
	if timeout <= 0 {
		return LLMConfig{}, fmt.Errorf("LLM_TIMEOUT_SECONDS must be > 0")
	}

	return LLMConfig{
		URL:     url,
		Timeout: time.Duration(timeout) * time.Second,
	}, nil
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
