// internal/common/crawler/crawler.go
package crawler

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	stderrors "scout-workers/internal/common/errors"
	"scout-workers/internal/common/logger"
	"scout-workers/internal/common/observability"
	"scout-workers/internal/common/webtext"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxPages         = 6
	DefaultMaxCombinedChars = 30000

	sourceSeparator = "\n\n---\n\n"
)

// signalPathRe matches paths likely to describe hiring, shipping or positioning.
var signalPathRe = regexp.MustCompile(`(?i)(career|jobs|hiring|blog|news|changelog|release|product|pricing|about|team)`)

type PageExtractor interface {
	Extract(ctx context.Context, url string) (*webtext.Page, error)
}

type Config struct {
	MaxPages         int
	MaxCombinedChars int
}

type Crawler struct {
	extractor PageExtractor
	config    Config
	logger    logger.Logger
}

type Result struct {
	// Input is the requested URL with its scheme defaulted and no other changes.
	Input    string         `json:"input"`
	Root     string         `json:"root"`
	Host     string         `json:"host"`
	Pages    []webtext.Page `json:"pages"`
	Combined string         `json:"-"`
}

// Sources lists the URLs of the pages that survived extraction.
func (r *Result) Sources() []string {
	out := make([]string, len(r.Pages))
	for i, p := range r.Pages {
		out[i] = p.URL
	}
	return out
}

// New builds a Crawler. MaxPages is capped at DefaultMaxPages.
func New(extractor PageExtractor, cfg Config, log logger.Logger) *Crawler {
	if cfg.MaxPages <= 0 || cfg.MaxPages > DefaultMaxPages {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.MaxCombinedChars <= 0 {
		cfg.MaxCombinedChars = DefaultMaxCombinedChars
	}
	return &Crawler{
		extractor: extractor,
		config:    cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "crawler"}),
	}
}

// WithScheme trims raw and prefixes https:// unless it already names http(s).
func WithScheme(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		raw = "https://" + raw
	}
	return raw
}

// NormalizeURL defaults the scheme to https and requires a hostname.
func NormalizeURL(raw string) (*url.URL, error) {
	raw = WithScheme(raw)
	if raw == "" {
		return nil, stderrors.NewInvalidInputError("url is required")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, stderrors.NewInvalidInputError("url is malformed: " + err.Error())
	}
	if u.Hostname() == "" {
		return nil, stderrors.NewInvalidInputError("url has no hostname")
	}
	if u.Path == "" {
		u.Path = "/"
	}
	u.Fragment = ""
	return u, nil
}

// Crawl extracts the homepage, then up to MaxPages-1 same-host signal pages
// linked from it. Only the homepage is required.
func (c *Crawler) Crawl(ctx context.Context, rawURL string) (result *Result, err error) {
	root, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	host := root.Hostname()

	ctx, span := observability.StartSpan(ctx, "crawler.Crawl", attribute.String("host", host))
	defer func() { observability.EndSpan(span, err) }()

	home, err := c.extractor.Extract(ctx, root.String())
	if err != nil || home == nil {
		return nil, stderrors.NewHomepageUnreachableError(root.String(), err)
	}
	home.URL = root.String()

	candidates := c.candidates(root, home.Links)

	pages := make([]*webtext.Page, len(candidates))
	pages[0] = home

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.MaxPages)
	for i := 1; i < len(candidates); i++ {
		i, target := i, candidates[i]
		g.Go(func() error {
			page, err := c.extractor.Extract(gctx, target)
			if err != nil || page == nil {
				c.logger.Debug("dropping candidate page", map[string]interface{}{
					"url":   target,
					"error": errString(err),
				})
				return nil
			}
			page.URL = target
			pages[i] = page
			return nil
		})
	}
	_ = g.Wait()

	result = &Result{Input: WithScheme(rawURL), Root: root.String(), Host: host}
	for _, p := range pages {
		if p != nil {
			result.Pages = append(result.Pages, *p)
		}
	}
	result.Combined = Combine(result.Pages, c.config.MaxCombinedChars)

	span.SetAttributes(
		attribute.Int("crawler.candidates", len(candidates)),
		attribute.Int("crawler.pages", len(result.Pages)),
	)
	c.logger.Info("crawl completed", map[string]interface{}{
		"root":       result.Root,
		"candidates": len(candidates),
		"pages":      len(result.Pages),
	})
	return result, nil
}

// candidates returns the root followed by matching same-host links in
// discovery order, capped at MaxPages.
func (c *Crawler) candidates(root *url.URL, hrefs []string) []string {
	out := []string{root.String()}
	seen := map[string]bool{root.String(): true}

	for _, href := range hrefs {
		if len(out) >= c.config.MaxPages {
			break
		}
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		abs := root.ResolveReference(ref)
		abs.Fragment = ""
		if abs.Scheme != "http" && abs.Scheme != "https" {
			continue
		}
		if !strings.EqualFold(abs.Hostname(), root.Hostname()) {
			continue
		}
		if !signalPathRe.MatchString(abs.Path) {
			continue
		}
		s := abs.String()
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// Combine renders pages as SOURCE blocks capped at maxChars runes.
func Combine(pages []webtext.Page, maxChars int) string {
	blocks := make([]string, 0, len(pages))
	for _, p := range pages {
		blocks = append(blocks, "SOURCE: "+p.URL+"\n"+p.Text)
	}
	return webtext.Truncate(strings.Join(blocks, sourceSeparator), maxChars)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
