// internal/common/webtext/extractor.go
package webtext

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	httpx "scout-workers/internal/common/http"
	"scout-workers/internal/common/logger"
	"scout-workers/internal/common/metrics"
	"scout-workers/internal/common/observability"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
)

// noiseSelector lists elements that never carry readable page content.
const noiseSelector = "script, style, svg, noscript, iframe, link, meta, object, embed"

const DefaultMaxChars = 12000

var whitespaceRe = regexp.MustCompile(`\s+`)

// Page is the readable text of one fetched URL.
type Page struct {
	URL   string   `json:"url"`
	Title string   `json:"title"`
	Text  string   `json:"text"`
	Links []string `json:"-"`
}

// Getter is satisfied by *httpx.Fetcher.
type Getter interface {
	Get(ctx context.Context, url string) (*httpx.Response, error)
}

type Extractor struct {
	getter   Getter
	maxChars int
	logger   logger.Logger
}

func NewExtractor(getter Getter, maxChars int, log logger.Logger) *Extractor {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Extractor{
		getter:   getter,
		maxChars: maxChars,
		logger:   log.WithFields(map[string]interface{}{"component": "webtext"}),
	}
}

// Extract fetches url and returns its visible text. A non-2xx status or a
// page with no body text yields (nil, nil). Transport failures are returned
// so callers can report them, but callers treat them as absent content too.
func (e *Extractor) Extract(ctx context.Context, url string) (page *Page, err error) {
	ctx, span := observability.StartSpan(ctx, "webtext.Extract", attribute.String("url", url))
	defer func() { observability.EndSpan(span, err) }()

	resp, err := e.getter.Get(ctx, url)
	if err != nil {
		metrics.PageFetches.WithLabelValues("error").Inc()
		e.logger.Debug("page fetch failed", map[string]interface{}{"url": url, "error": err.Error()})
		return nil, err
	}
	if !resp.OK() {
		metrics.PageFetches.WithLabelValues("status").Inc()
		e.logger.Debug("page returned non-success status", map[string]interface{}{"url": url, "status": resp.StatusCode})
		return nil, nil
	}

	page, err = Parse(url, resp.Body, e.maxChars)
	if err != nil {
		metrics.PageFetches.WithLabelValues("error").Inc()
		return nil, err
	}
	if page == nil {
		metrics.PageFetches.WithLabelValues("empty").Inc()
		return nil, nil
	}

	metrics.PageFetches.WithLabelValues("ok").Inc()
	return page, nil
}

// Parse turns raw HTML into a Page. Links are collected before noise
// elements are removed so navigation links survive.
func Parse(url string, html []byte, maxChars int) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok && strings.TrimSpace(href) != "" {
			links = append(links, strings.TrimSpace(href))
		}
	})

	doc.Find(noiseSelector).Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	body := Truncate(CollapseWhitespace(doc.Find("body").Text()), maxChars)
	if body == "" {
		return nil, nil
	}

	text := body
	if title != "" {
		text = title + "\n" + body
	}

	return &Page{
		URL:   url,
		Title: title,
		Text:  text,
		Links: links,
	}, nil
}

func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
