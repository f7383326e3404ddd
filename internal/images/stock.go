package images

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// UnsplashProvider queries an Unsplash-compatible photo search endpoint.
type UnsplashProvider struct {
	client    *http.Client
	searchURL string
	accessKey string
}

func NewUnsplashProvider(searchURL, accessKey string, timeout time.Duration) *UnsplashProvider {
	return &UnsplashProvider{
		client:    &http.Client{Timeout: timeout},
		searchURL: searchURL,
		accessKey: accessKey,
	}
}

type unsplashResponse struct {
	Results []struct {
		URLs struct {
			Regular string `json:"regular"`
		} `json:"urls"`
	} `json:"results"`
}

func (p *UnsplashProvider) Search(ctx context.Context, query string) (string, error) {
	u, err := url.Parse(p.searchURL)
	if err != nil {
		return "", fmt.Errorf("stock search url: %w", err)
	}

	q := u.Query()
	q.Set("query", query)
	q.Set("per_page", "1")
	q.Set("orientation", "landscape")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build stock request: %w", err)
	}

	req.Header.Set("Authorization", "Client-ID "+p.accessKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("stock search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("stock search: unexpected status %d", resp.StatusCode)
	}

	var payload unsplashResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode stock response: %w", err)
	}

	if len(payload.Results) == 0 {
		return "", fmt.Errorf("stock search: no results for %q", query)
	}

	return payload.Results[0].URLs.Regular, nil
}
