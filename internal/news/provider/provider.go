// Package provider fetches disaster updates from the upstream JSON feed.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"reliefhub/internal/news/models"
)

// Static serves a fixed article list. Used when no feed URL is configured.
type Static struct {
	Articles []models.Article
}

func (s Static) Fetch(context.Context) ([]models.Article, error) {
	return s.Articles, nil
}

// HTTPProvider fetches articles from a JSON feed endpoint. The feed returns
// `{"articles": [...]}` with fields matching models.Article.
type HTTPProvider struct {
	feedURL string
	client  *http.Client
}

func NewHTTP(feedURL string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		feedURL: feedURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type feedResponse struct {
	Articles []models.Article `json:"articles"`
}

// Fetch retrieves the current feed contents.
func (p *HTTPProvider) Fetch(ctx context.Context) ([]models.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	var feed feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	return feed.Articles, nil
}
