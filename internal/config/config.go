package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the semantic configuration surface, read from the environment.
// main loads .env first via godotenv, so a local file and real env vars both
// work.
type Config struct {
	// YouTube (quota-metered)
	YouTubeAPIKeys []string
	YouTubeEnabled bool
	KeyCooldown    time.Duration
	QuotaCycle     time.Duration
	// KeyRetries: fresh-key retries per call after quota exhaustion.
	// 0 means the default of 1; set YOUTUBE_KEY_RETRIES=-1 to disable.
	KeyRetries int
	MaxVideos  int

	// Reddit (unmetered)
	RedditMode      string // "api", "public" or "mock"
	RedditUserAgent string
	RedditClientID  string
	RedditSecret    string
	RedditUsername  string
	RedditPassword  string
	RedditMaxPosts  int

	// Run defaults
	PerCallTimeout  time.Duration
	MaxConcurrency  int
	PerFetchLimit   int
	TargetCount     int
	NumVariants     int
	OverallTimeout  time.Duration
	DrainGrace      time.Duration
	VariantPatterns string // optional CSV path for the static generator

	// Variant generator
	AnthropicAPIKey string

	// Artifacts
	DataDirectory string
	DashboardPort string
}

// Load reads the environment with defaults. Only the YouTube key set is
// validated here; everything else fails soft to a default.
func Load() (*Config, error) {
	cfg := &Config{
		YouTubeAPIKeys:  splitKeys(os.Getenv("YOUTUBE_API_KEYS")),
		KeyCooldown:     envDuration("KEY_COOLDOWN", 10*time.Minute),
		QuotaCycle:      envDuration("KEY_QUOTA_CYCLE", 24*time.Hour),
		KeyRetries:      envInt("YOUTUBE_KEY_RETRIES", 1),
		MaxVideos:       envInt("YOUTUBE_MAX_VIDEOS", 15),
		RedditMode:      envString("REDDIT_MODE", "public"),
		RedditUserAgent: os.Getenv("REDDIT_USER_AGENT"),
		RedditClientID:  os.Getenv("REDDIT_CLIENT_ID"),
		RedditSecret:    os.Getenv("REDDIT_CLIENT_SECRET"),
		RedditUsername:  os.Getenv("REDDIT_USERNAME"),
		RedditPassword:  os.Getenv("REDDIT_PASSWORD"),
		RedditMaxPosts:  envInt("REDDIT_MAX_POSTS", 10),
		PerCallTimeout:  envDuration("PER_CALL_TIMEOUT", 30*time.Second),
		MaxConcurrency:  envInt("MAX_CONCURRENCY", 8),
		PerFetchLimit:   envInt("PER_FETCH_LIMIT", 500),
		TargetCount:     envInt("TARGET_COMMENTS", 5000),
		NumVariants:     envInt("QUERY_VARIANTS", 10),
		OverallTimeout:  envDuration("OVERALL_TIMEOUT", 60*time.Second),
		DrainGrace:      envDuration("DRAIN_GRACE", 5*time.Second),
		VariantPatterns: os.Getenv("VARIANT_PATTERNS_FILE"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		DataDirectory:   envString("DATA_DIRECTORY", "data"),
		DashboardPort:   envString("PORT", "8080"),
	}
	cfg.YouTubeEnabled = len(cfg.YouTubeAPIKeys) > 0

	if cfg.MaxConcurrency < 1 {
		return nil, fmt.Errorf("MAX_CONCURRENCY must be at least 1")
	}
	return cfg, nil
}

// splitKeys parses the comma-separated key list, dropping blanks.
func splitKeys(raw string) []string {
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func envString(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func envInt(name string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(name))
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(name string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(name))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
