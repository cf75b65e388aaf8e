// internal/workers/intelligence/fetch-live-feed/config.go
package fetchlivefeed

import "time"

const (
	DefaultFeedBaseURL = "https://news.google.com/rss/search"
	DefaultCacheTTL    = 5 * time.Minute
)

type Config struct {
	FeedBaseURL string
	Timeout     time.Duration
	// CacheTTL of zero or less disables the per-company cache.
	CacheTTL time.Duration
}

func LoadConfig() *Config {
	return &Config{
		FeedBaseURL: DefaultFeedBaseURL,
		Timeout:     30 * time.Second,
		CacheTTL:    DefaultCacheTTL,
	}
}
