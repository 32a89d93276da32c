// Package config loads the portrait service configuration from environment
// variables. Configuration is read once at startup; the resulting Config is
// treated as immutable afterwards, including the de-duplicated model
// candidate chains derived from it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Gemini Model IDs
//
// | Model Name                  | API Model ID                | Use Case                      |
// |-----------------------------|---------------------------  |-------------------------------|
// | Gemini 3 Pro (Preview)      | gemini-3-pro-preview        | Best for complex reasoning    |
// | Gemini 3 Flash (Preview)    | gemini-3-flash-preview      | Best for speed + intelligence |
// | Gemini 2.5 Flash            | gemini-2.5-flash            | Stable, balanced performance  |
// | Gemini 3 Pro Image          | gemini-3-pro-image-preview  | Advanced image generation     |
const (
	// ModelGemini3ProPreview is the default for analysis and review calls.
	ModelGemini3ProPreview = "gemini-3-pro-preview"

	// ModelGemini3FlashPreview is the fast fallback for analysis calls.
	ModelGemini3FlashPreview = "gemini-3-flash-preview"

	// ModelGemini3ProImage is the default for portrait generation.
	ModelGemini3ProImage = "gemini-3-pro-image-preview"
)

// Iteration and timeout defaults for the generation pipeline.
const (
	DefaultMaxPromptIterations     = 3
	DefaultMaxGenerationIterations = 3
	DefaultRequestTimeout          = 300 * time.Second
	DefaultMaxConcurrentPoses      = 3
	DefaultPort                    = 8080
)

// Config holds everything the service reads from the environment.
type Config struct {
	// APIKey is the Gemini API credential. Required.
	APIKey string

	// InviteCodes is the entitlement list, parsed from a comma-separated
	// INVITE_CODES value. Required; the service refuses requests without it.
	InviteCodes []string

	// APISecret enables request signing when non-empty. When empty the
	// authenticator passes every request through (insecure-by-default mode).
	APISecret string

	// Analysis model chain, highest preference first.
	HighQualityModel         string
	HighQualityModelFallback string
	FastModel                string
	FastModelFallback        string

	// Generation model chain.
	GenerateModel         string
	GenerateModelFallback string

	MaxPromptIterations     int
	MaxGenerationIterations int

	// RequestTimeout bounds one inbound request end to end, including every
	// model call it fans out to.
	RequestTimeout time.Duration

	// MaxConcurrentPoses caps how many pose pipelines run at once.
	MaxConcurrentPoses int

	Port int
}

// Load reads configuration from the environment. Missing required values are
// reported together so a misconfigured deployment fails with one message.
func Load() (*Config, error) {
	cfg := &Config{
		APIKey:                   os.Getenv("GEMINI_API_KEY"),
		APISecret:                os.Getenv("API_SECRET"),
		HighQualityModel:         envOr("HIGH_QUALITY_MODEL", ModelGemini3ProPreview),
		HighQualityModelFallback: os.Getenv("HIGH_QUALITY_MODEL_FALLBACK"),
		FastModel:                os.Getenv("FAST_MODEL"),
		FastModelFallback:        os.Getenv("FAST_MODEL_FALLBACK"),
		GenerateModel:            envOr("GENERATE_MODEL", ModelGemini3ProImage),
		GenerateModelFallback:    os.Getenv("GENERATE_MODEL_FALLBACK"),
		MaxPromptIterations:      envInt("MAX_PROMPT_ITERATIONS", DefaultMaxPromptIterations),
		MaxGenerationIterations:  envInt("MAX_GENERATION_ITERATIONS", DefaultMaxGenerationIterations),
		RequestTimeout:           envSeconds("REQUEST_TIMEOUT_SECONDS", DefaultRequestTimeout),
		MaxConcurrentPoses:       envInt("MAX_CONCURRENT_POSES", DefaultMaxConcurrentPoses),
		Port:                     envInt("PORT", DefaultPort),
	}

	if raw := os.Getenv("INVITE_CODES"); raw != "" {
		for _, code := range strings.Split(raw, ",") {
			if code = strings.TrimSpace(code); code != "" {
				cfg.InviteCodes = append(cfg.InviteCodes, code)
			}
		}
	}

	var missing []string
	if cfg.APIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if len(cfg.InviteCodes) == 0 {
		missing = append(missing, "INVITE_CODES")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

// AnalysisCandidates returns the ordered model chain for text/JSON-producing
// calls (analysis, design, reviews), de-duplicated with first-seen order
// preserved.
func (c *Config) AnalysisCandidates() []string {
	return uniqModels([]string{
		c.HighQualityModel,
		c.HighQualityModelFallback,
		c.FastModel,
		c.FastModelFallback,
	})
}

// GenerationCandidates returns the ordered model chain for image-producing
// calls.
func (c *Config) GenerationCandidates() []string {
	return uniqModels([]string{
		c.GenerateModel,
		c.GenerateModelFallback,
	})
}

func uniqModels(models []string) []string {
	seen := make(map[string]struct{}, len(models))
	var result []string
	for _, m := range models {
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		result = append(result, m)
	}
	return result
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envSeconds(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
