// internal/workers/scoring/calculate-fit-score/scorer.go
package calculatefitscore

import (
	"math"
	"strings"
	"time"

	"scout-workers/internal/models"
)

const (
	baselinePoints = 20

	antiPortfolioPenalty = -30
	antiPortfolioCap     = -60

	sectorPoints    = 15
	sectorCap       = 25
	stagePoints     = 15
	stageCap        = 20
	geographyPoints = 5
	geographyCap    = 10
	keywordPoints   = 5
	keywordCap      = 25

	depthPartCap = 5
	newsCap      = 5
	recencyCap   = 10

	freshWindow  = 7 * 24 * time.Hour
	recentWindow = 30 * 24 * time.Hour

	StrongThreshold   = 75
	ModerateThreshold = 55
)

const (
	TierStrong   = "strong"
	TierModerate = "moderate"
	TierWeak     = "weak"
)

type Factor struct {
	Name    string   `json:"name"`
	Points  float64  `json:"points"`
	Matches []string `json:"matches,omitempty"`
}

type Breakdown struct {
	Score   int      `json:"fitScore"`
	Tier    string   `json:"tier"`
	Factors []Factor `json:"factors"`
}

// Score is Evaluate without the breakdown.
func Score(company *models.CompanyProfile, thesis models.Thesis, news []models.NewsItem, now time.Time) int {
	return Evaluate(company, thesis, news, now).Score
}

// Evaluate scores company against thesis. It reads no clock and no state:
// equal inputs always give equal output.
func Evaluate(company *models.CompanyProfile, thesis models.Thesis, news []models.NewsItem, now time.Time) Breakdown {
	if company == nil {
		company = &models.CompanyProfile{}
	}
	news = newsFor(company.Name, news)
	blob := textBlob(company, news)

	factors := []Factor{{Name: "baseline", Points: baselinePoints}}

	anti := matches(thesis.AntiPortfolio, company.Industry, blob)
	factors = append(factors, Factor{
		Name:    "antiPortfolio",
		Points:  math.Max(float64(len(anti)*antiPortfolioPenalty), antiPortfolioCap),
		Matches: anti,
	})

	sector := matches(thesis.Sectors, company.Industry)
	factors = append(factors, capped("sector", sector, sectorPoints, sectorCap))

	stage := matches(thesis.Stages, company.Stage)
	factors = append(factors, capped("stage", stage, stagePoints, stageCap))

	geo := matches(thesis.Geographies, company.Location)
	factors = append(factors, capped("geography", geo, geographyPoints, geographyCap))

	keywords := matches(thesis.Keywords, blob)
	factors = append(factors, capped("keywords", keywords, keywordPoints, keywordCap))

	factors = append(factors,
		Factor{Name: "enrichmentDepth", Points: enrichmentDepth(company.Enrichment)},
		Factor{Name: "newsVolume", Points: math.Min(float64(len(news)), newsCap)},
		Factor{Name: "recency", Points: recency(news, now)},
	)

	var total float64
	for _, f := range factors {
		total += f.Points
	}
	score := int(math.Round(total))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return Breakdown{Score: score, Tier: TierFor(score), Factors: factors}
}

func TierFor(score int) string {
	switch {
	case score >= StrongThreshold:
		return TierStrong
	case score >= ModerateThreshold:
		return TierModerate
	default:
		return TierWeak
	}
}

func capped(name string, matched []string, per, max int) Factor {
	points := len(matched) * per
	if points > max {
		points = max
	}
	return Factor{Name: name, Points: float64(points), Matches: matched}
}

// matches returns the thesis entries found, case-insensitively, in any
// haystack. Blank entries never match and repeated entries count once.
func matches(entries []string, haystacks ...string) []string {
	lowered := make([]string, len(haystacks))
	for i, h := range haystacks {
		lowered[i] = strings.ToLower(h)
	}

	var out []string
	seen := map[string]bool{}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		needle := strings.ToLower(entry)
		if needle == "" || seen[needle] {
			continue
		}
		seen[needle] = true
		for _, h := range lowered {
			if strings.Contains(h, needle) {
				out = append(out, entry)
				break
			}
		}
	}
	return out
}

func textBlob(company *models.CompanyProfile, news []models.NewsItem) string {
	parts := []string{company.Description}
	parts = append(parts, company.Tags...)
	if e := company.Enrichment; e != nil {
		parts = append(parts, e.Keywords...)
		parts = append(parts, e.DerivedSignals...)
	}
	for _, n := range news {
		parts = append(parts, n.Title)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

func enrichmentDepth(e *models.EnrichmentRecord) float64 {
	if e == nil {
		return 0
	}
	return math.Min(float64(2*len(e.Sources)), depthPartCap) +
		math.Min(float64(2*len(e.DerivedSignals)), depthPartCap) +
		math.Min(float64(len(e.Keywords)), depthPartCap)
}

func recency(news []models.NewsItem, now time.Time) float64 {
	var points float64
	for _, n := range news {
		if n.PublishedAt.IsZero() {
			continue
		}
		age := now.Sub(n.PublishedAt)
		if age < 0 {
			age = 0
		}
		switch {
		case age <= freshWindow:
			points += 3
		case age <= recentWindow:
			points++
		}
	}
	return math.Min(points, recencyCap)
}

// newsFor drops items explicitly tagged with another company.
func newsFor(name string, news []models.NewsItem) []models.NewsItem {
	name = strings.TrimSpace(name)
	if name == "" {
		return news
	}
	out := make([]models.NewsItem, 0, len(news))
	for _, n := range news {
		if n.Company == "" || strings.EqualFold(strings.TrimSpace(n.Company), name) {
			out = append(out, n)
		}
	}
	return out
}
