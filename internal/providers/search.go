// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Link is an anchor found on a scraped page.
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Page is the readable content of a scraped page.
type Page struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"content"`
	Links []Link `json:"links"`
}

// WebSearcher searches the web and fetches pages.
type WebSearcher interface {
	Search(ctx context.Context, query string, max int) ([]SearchResult, error)
	Scrape(ctx context.Context, pageURL string) (*Page, error)
}

const (
	duckDuckGoHTMLURL = "https://html.duckduckgo.com/html/"
	scrapeTextLimit   = 5000
	scrapeLinkLimit   = 20
	userAgent         = "Mozilla/5.0 (compatible; arya/1.0)"
)

// DuckDuckGo searches through the DuckDuckGo HTML endpoint and scrapes pages
// with goquery.
type DuckDuckGo struct {
	baseURL string
	client  *http.Client
}

// NewDuckDuckGo creates a searcher. An empty baseURL selects the public endpoint.
func NewDuckDuckGo(baseURL string, timeout time.Duration) *DuckDuckGo {
	if baseURL == "" {
		baseURL = duckDuckGoHTMLURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &DuckDuckGo{baseURL: baseURL, client: &http.Client{Timeout: timeout}}
}

// Search returns up to max results for query.
func (d *DuckDuckGo) Search(ctx context.Context, query string, max int) ([]SearchResult, error) {
	if max <= 0 {
		max = 5
	}
	u := d.baseURL + "?" + url.Values{"q": {query}}.Encode()
	doc, err := d.fetch(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	results := []SearchResult{}
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		a := s.Find(".result__a").First()
		href, _ := a.Attr("href")
		title := strings.TrimSpace(a.Text())
		if title == "" || href == "" {
			return true
		}
		results = append(results, SearchResult{
			Title:   title,
			URL:     resolveRedirect(href),
			Snippet: strings.TrimSpace(s.Find(".result__snippet").Text()),
		})
		return len(results) < max
	})
	return results, nil
}

// Scrape fetches a page and returns its title, text and links.
func (d *DuckDuckGo) Scrape(ctx context.Context, pageURL string) (*Page, error) {
	base, err := url.Parse(pageURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, fmt.Errorf("scrape: invalid url %q", pageURL)
	}
	doc, err := d.fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", pageURL, err)
	}

	page := &Page{
		URL:   pageURL,
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
		Links: []Link{},
	}

	doc.Find("script, style, noscript").Remove()
	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	if len(text) > scrapeTextLimit {
		text = truncateUTF8(text, scrapeTextLimit)
	}
	page.Text = text

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return true
		}
		page.Links = append(page.Links, Link{Text: strings.TrimSpace(s.Text()), URL: abs.String()})
		return len(page.Links) < scrapeLinkLimit
	})
	return page, nil
}

func (d *DuckDuckGo) fetch(ctx context.Context, u string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

// resolveRedirect unwraps DuckDuckGo's "/l/?uddg=" redirect links.
func resolveRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func utf8RuneStart(b byte) bool { return b&0xC0 != 0x80 }
