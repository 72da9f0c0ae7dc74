package monitor

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/arcanalyse/encounter-builder/pkg/apiclient"
)

const maxHTMLBodyBytes = 1 << 20 // 1 MiB

// frontendTitle fetches the front-end entry page as text and returns its
// document title.
func (s *Service) frontendTitle(ctx context.Context, rawURL string, headers map[string]string) (string, error) {
	origin, path, err := splitURL(rawURL)
	if err != nil {
		return "", err
	}

	hdrs := map[string]string{"Accept": "text/html,application/xhtml+xml"}
	for k, v := range headers {
		hdrs[k] = v
	}

	body, err := s.clientFor(origin).Send(ctx, apiclient.Request{
		Path:    path,
		Headers: hdrs,
		ParseAs: apiclient.ParseText,
	})
	if err != nil {
		return "", err
	}
	html, _ := body.(string)
	if len(html) > maxHTMLBodyBytes {
		html = html[:maxHTMLBodyBytes]
	}
	return parseTitle(html)
}

// parseTitle prefers <title> and falls back to og:title.
func parseTitle(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	if title := strings.TrimSpace(doc.Find("head title").First().Text()); title != "" {
		return title, nil
	}
	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if og = strings.TrimSpace(og); og != "" {
			return og, nil
		}
	}
	return "", fmt.Errorf("page has no title")
}

// splitURL separates an absolute URL into the client base and request path.
func splitURL(raw string) (string, string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("parse frontend url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", "", fmt.Errorf("frontend url %q must be absolute", raw)
	}

	path := u.RequestURI()
	if path == "" {
		path = "/"
	}
	return u.Scheme + "://" + u.Host, path, nil
}
