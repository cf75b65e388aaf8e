// internal/workers/intelligence/scout-chat/config.go
package scoutchat

import "time"

const (
	DefaultTemperature = 0.2
	DefaultMaxTokens   = 1024
)

type Config struct {
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:     60 * time.Second,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	}
}
