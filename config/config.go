// Package config loads the run configuration from the environment.
//
// The configuration is an immutable value threaded through every
// component call; nothing here is process-wide mutable state. CLI
// flags override individual fields after Load.
package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Defaults. Lower chunk budgets tend to improve translation quality.
const (
	DefaultModel          = "gpt-4o-mini"
	DefaultTemperature    = 0
	DefaultTokensPerChunk = 1000
	// SourceLanguage is the language the game ships its files in.
	SourceLanguage = "english"
)

// ErrAPIKeyMissing indicates OPENAI_API_KEY is not set.
var ErrAPIKeyMissing = errors.New("OPENAI_API_KEY environment variable not set")

// Config holds one translation run's settings.
type Config struct {
	// APIKey authenticates against the OpenAI API.
	APIKey string
	// Model is the chat model used for translation.
	Model string
	// Temperature for completions; 0 keeps output deterministic.
	Temperature float32
	// TokensPerChunk is the token budget for one document segment.
	TokensPerChunk int
}

// Load reads configuration from .env (if present) and the process
// environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		APIKey:         os.Getenv("OPENAI_API_KEY"),
		Model:          getEnv("V3LOC_MODEL", DefaultModel),
		Temperature:    getEnvFloat32("V3LOC_TEMPERATURE", DefaultTemperature),
		TokensPerChunk: getEnvInt("V3LOC_TOKENS_PER_CHUNK", DefaultTokensPerChunk),
	}
}

// Validate checks that the configuration can drive a translation run.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return ErrAPIKeyMissing
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat32(key string, fallback float32) float32 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return fallback
	}
	return float32(f)
}
