// internal/workers/intelligence/fetch-live-feed/models.go
package fetchlivefeed

import "scout-workers/internal/models"

const (
	MaxCompanies      = 10
	DefaultPerCompany = 2
	MaxPerCompany     = 3
	DefaultLimit      = 10
	MaxLimit          = 20
)

type Input struct {
	Companies  []string `json:"companies"`
	PerCompany int      `json:"perCompany,omitempty"`
	Limit      int      `json:"limit,omitempty"`
}

type Output struct {
	Items []models.NewsItem `json:"items"`
}
