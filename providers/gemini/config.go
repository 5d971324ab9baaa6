package gemini

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables read by NewClientFromEnv.
const (
	EnvAPIKey  = "GEMINI_API_KEY"
	EnvBaseURL = "GEMINI_API_BASE_URL"
)

// NewClientFromEnv loads a .env file from the working directory when one
// exists, then creates a Client from GEMINI_API_KEY and, when set,
// GEMINI_API_BASE_URL. Variables already present in the environment win
// over the file. opts are applied after the environment.
func NewClientFromEnv(opts ...Option) (*Client, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, configErrorf("load .env: %v", err)
	}

	apiKey := os.Getenv(EnvAPIKey)
	if apiKey == "" {
		return nil, configErrorf("%s is not set", EnvAPIKey)
	}

	envOpts := []Option{WithAPIKey(apiKey)}
	if baseURL := os.Getenv(EnvBaseURL); baseURL != "" {
		envOpts = append(envOpts, WithBaseURL(baseURL))
	}
	return NewClient(append(envOpts, opts...)...), nil
}
