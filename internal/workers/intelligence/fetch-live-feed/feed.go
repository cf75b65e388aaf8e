// internal/workers/intelligence/fetch-live-feed/feed.go
package fetchlivefeed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"time"

	"scout-workers/internal/models"
)

const defaultSource = "Google News"

var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
}

type rssDocument struct {
	Items []rssItem `xml:"channel>item"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	Source  string `xml:"source"`
	PubDate string `xml:"pubDate"`
}

// FeedURL builds the news search URL for one company.
func FeedURL(base, company string) string {
	query := `"` + company + `" startup OR funding OR product OR hiring`
	escaped := strings.ReplaceAll(url.QueryEscape(query), "+", "%20")
	return base + "?q=" + escaped + "&hl=en-US&gl=US&ceid=US:en"
}

// ParseFeed reads at most limit usable items from an RSS document. Items
// without a title or link are skipped and do not count toward the limit.
func ParseFeed(company string, body []byte, limit int, now time.Time) ([]models.NewsItem, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	var doc rssDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode rss: %w", err)
	}

	items := make([]models.NewsItem, 0, limit)
	for _, it := range doc.Items {
		if len(items) >= limit {
			break
		}
		title := strings.TrimSpace(it.Title)
		link := strings.TrimSpace(it.Link)
		if title == "" || link == "" {
			continue
		}
		source := strings.TrimSpace(it.Source)
		if source == "" {
			source = defaultSource
		}

		items = append(items, models.NewsItem{
			ID:          models.NewsItemID(company, link),
			Company:     company,
			Title:       title,
			Source:      source,
			URL:         link,
			PublishedAt: parsePubDate(it.PubDate, now),
		})
	}
	return items, nil
}

func parsePubDate(raw string, now time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return now.UTC()
}
