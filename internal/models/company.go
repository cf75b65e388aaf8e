// internal/models/company.go
package models

// CompanyProfile is a tracked company as stored by the tracking system.
type CompanyProfile struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Domain        string            `json:"domain"`
	Industry      string            `json:"industry"`
	Stage         string            `json:"stage"`
	Location      string            `json:"location"`
	EmployeeCount string            `json:"employee_count"`
	TotalFunding  string            `json:"total_funding"`
	Tags          []string          `json:"tags"`
	Description   string            `json:"description"`
	Enrichment    *EnrichmentRecord `json:"enrichment,omitempty"`
}
