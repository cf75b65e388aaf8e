// internal/workers/enrichment/enrich-company/config.go
package enrichcompany

import "time"

type Config struct {
	Timeout     time.Duration
	Temperature float64
}

func LoadConfig() *Config {
	return &Config{
		Timeout:     120 * time.Second,
		Temperature: DefaultTemperature,
	}
}
