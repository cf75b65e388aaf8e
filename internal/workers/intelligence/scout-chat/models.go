// internal/workers/intelligence/scout-chat/models.go
package scoutchat

import (
	"time"

	"scout-workers/internal/models"
)

const (
	MaxCompanies      = 10
	MaxMessageRunes   = 2000
	MaxThesisRunes    = 3000
	maxContextTags    = 8
	maxContextKeyword = 8
	maxContextSignals = 4
)

// Input carries the thesis as the caller sent it. Keys beyond the
// models.Thesis fields still reach the prompt.
type Input struct {
	Message   string                  `json:"message"`
	Thesis    map[string]interface{}  `json:"thesis"`
	Companies []models.CompanyProfile `json:"companies"`
}

type Output struct {
	Reply     string    `json:"reply"`
	Timestamp time.Time `json:"timestamp"`
}
