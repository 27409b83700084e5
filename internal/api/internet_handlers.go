// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/traylinx/arya/internal/providers"
)

const (
	defaultSearchResults = 5
	maxSearchResults     = 20
)

type searchRequest struct {
	Query      string `json:"query" binding:"required"`
	MaxResults int    `json:"max_results"`
}

// SearchHandler handles POST /api/internet/search.
func SearchHandler(search providers.WebSearcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		if search == nil {
			unavailable(c, "web search")
			return
		}
		var req searchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		n := req.MaxResults
		if n <= 0 {
			n = defaultSearchResults
		}
		if n > maxSearchResults {
			n = maxSearchResults
		}

		results, err := search.Search(c.Request.Context(), req.Query, n)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		if results == nil {
			results = []providers.SearchResult{}
		}
		c.JSON(http.StatusOK, gin.H{"query": req.Query, "results": results})
	}
}

// ScrapeHandler handles GET /api/internet/scrape?url=...
func ScrapeHandler(search providers.WebSearcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		if search == nil {
			unavailable(c, "web search")
			return
		}
		raw := c.Query("url")
		u, err := url.Parse(raw)
		if raw == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			badRequest(c, errors.New("url must be an absolute http(s) URL"))
			return
		}

		page, err := search.Scrape(c.Request.Context(), u.String())
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, page)
	}
}
