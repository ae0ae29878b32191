package collector

import (
	"fmt"

	"github.com/HamzaaAkmal/Get-Opinion/internal/config"
	"github.com/HamzaaAkmal/Get-Opinion/internal/domain"
	"github.com/HamzaaAkmal/Get-Opinion/internal/keypool"
)

// NewCollectors builds one collector per enabled source. YouTube joins only
// when keys are configured; the Reddit implementation follows REDDIT_MODE.
func NewCollectors(cfg *config.Config, keys *keypool.Pool) ([]domain.Collector, error) {
	var collectors []domain.Collector

	if cfg.YouTubeEnabled {
		if keys == nil {
			return nil, fmt.Errorf("youtube is enabled but no key pool was provided")
		}
		collectors = append(collectors, NewYouTubeClient(keys, YouTubeOptions{
			Timeout:    cfg.PerCallTimeout,
			MaxVideos:  cfg.MaxVideos,
			KeyRetries: cfg.KeyRetries,
		}))
	}

	redditOpts := RedditOptions{Timeout: cfg.PerCallTimeout, MaxPosts: cfg.RedditMaxPosts}
	switch cfg.RedditMode {
	case "api":
		rc, err := NewRedditAPIClient(
			cfg.RedditClientID,
			cfg.RedditSecret,
			cfg.RedditUsername,
			cfg.RedditPassword,
			cfg.RedditUserAgent,
			redditOpts,
		)
		if err != nil {
			return nil, err
		}
		collectors = append(collectors, rc)
	case "public":
		rc, err := NewRedditPublicClient(cfg.RedditUserAgent, redditOpts)
		if err != nil {
			return nil, err
		}
		collectors = append(collectors, rc)
	case "mock":
		collectors = append(collectors, NewMockClient("reddit"))
	case "off":
		// YouTube-only runs are allowed as long as something remains.
	default:
		return nil, fmt.Errorf("unknown REDDIT_MODE: %s (use 'api', 'public', 'mock' or 'off')", cfg.RedditMode)
	}

	if len(collectors) == 0 {
		return nil, fmt.Errorf("no sources configured: set YOUTUBE_API_KEYS or a REDDIT_MODE")
	}
	return collectors, nil
}
