// internal/models/news.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type NewsItem struct {
	ID          string    `json:"id"`
	Company     string    `json:"company"`
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
}

// NewsItemID is stable for a (company, url) pair.
func NewsItemID(company, url string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(company+"\n"+url)).String()
}
