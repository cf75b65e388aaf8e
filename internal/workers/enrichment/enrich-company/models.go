// internal/workers/enrichment/enrich-company/models.go
package enrichcompany

import "scout-workers/internal/models"

// Input carries the company URL. With CompanyID set the record is also stored
// on that company.
type Input struct {
	URL       string `json:"url"`
	CompanyID string `json:"companyId,omitempty"`
}

type Output struct {
	*models.EnrichmentRecord
	CompanyID string `json:"companyId,omitempty"`
}

// EnrichmentCompletedEvent is published after a record is stored.
type EnrichmentCompletedEvent struct {
	CompanyID string   `json:"companyId"`
	Source    string   `json:"source"`
	Sources   []string `json:"sources"`
	Keywords  []string `json:"keywords"`
	Timestamp string   `json:"timestamp"`
}
