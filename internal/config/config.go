// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	FrontendURL    string
	DBPath         string
	UploadDir      string
	MaxUploadBytes int64

	Gemini     GeminiConfig
	ElevenLabs ElevenLabsConfig
	Voices     VoiceConfig
}

// GeminiConfig holds settings for the Gemini recognition/chat provider.
type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// ElevenLabsConfig holds settings for the ElevenLabs speech provider.
type ElevenLabsConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// VoiceConfig maps persona modes to ElevenLabs voice identities.
type VoiceConfig struct {
	Tutor     string
	CoStudent string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	maxUpload := getEnvInt("MAX_UPLOAD_BYTES", 16<<20)
	if maxUpload <= 0 {
		maxUpload = 16 << 20
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		FrontendURL:    getEnv("FRONTEND_URL", ""),
		DBPath:         getEnv("DB_PATH", "./data/mathmate.db"),
		UploadDir:      getEnv("UPLOAD_DIR", "./data/uploads"),
		MaxUploadBytes: int64(maxUpload),
		Gemini: GeminiConfig{
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			BaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			Model:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			Timeout: getEnvDuration("GEMINI_TIMEOUT", 30*time.Second),
		},
		ElevenLabs: ElevenLabsConfig{
			APIKey:  getEnv("ELEVENLABS_API_KEY", ""),
			BaseURL: getEnv("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
			Timeout: getEnvDuration("ELEVENLABS_TIMEOUT", 30*time.Second),
		},
		Voices: VoiceConfig{
			Tutor:     getEnv("TUTOR_VOICE_ID", "s3TPKV1kjDlVtZbl4Ksh"),
			CoStudent: getEnv("COSTUDENT_VOICE_ID", "aEO01A4wXwd1O8GPgGlF"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.UploadDir == "" {
		return fmt.Errorf("UPLOAD_DIR cannot be empty")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be > 0")
	}
	if c.Gemini.BaseURL == "" {
		return fmt.Errorf("GEMINI_BASE_URL cannot be empty")
	}
	if c.Gemini.Model == "" {
		return fmt.Errorf("GEMINI_MODEL cannot be empty")
	}
	if c.ElevenLabs.BaseURL == "" {
		return fmt.Errorf("ELEVENLABS_BASE_URL cannot be empty")
	}
	if c.Voices.Tutor == "" || c.Voices.CoStudent == "" {
		return fmt.Errorf("voice identities cannot be empty")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
