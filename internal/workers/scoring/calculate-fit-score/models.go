// internal/workers/scoring/calculate-fit-score/models.go
package calculatefitscore

import "scout-workers/internal/models"

// Input names a stored company by id or carries the profile inline. An
// inline profile wins when both are set.
type Input struct {
	CompanyID string                 `json:"companyId,omitempty"`
	Company   *models.CompanyProfile `json:"company,omitempty"`
	Thesis    models.Thesis          `json:"thesis"`
	News      []models.NewsItem      `json:"news,omitempty"`
}

type Output struct {
	CompanyID string   `json:"companyId,omitempty"`
	FitScore  int      `json:"fitScore"`
	Tier      string   `json:"tier"`
	Factors   []Factor `json:"factors"`
}
