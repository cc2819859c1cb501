// Package photos wraps the unsplash random-photo endpoint. Callers treat any
// failure here as "no picture": the resolver logs and falls back to null.
package photos

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://api.unsplash.com"

type RandomPhoto struct {
	URLs struct {
		Small string `json:"small"`
	} `json:"urls"`
}

type Client struct {
	baseURL   string
	accessKey string
	http      *http.Client
}

func NewClient(accessKey string) *Client {
	return &Client{
		baseURL:   defaultBaseURL,
		accessKey: accessKey,
		http:      &http.Client{Timeout: 5 * time.Second},
	}
}

// NewClientWithBaseURL exists for tests pointed at a local server.
func NewClientWithBaseURL(accessKey, baseURL string) *Client {
	c := NewClient(accessKey)
	c.baseURL = baseURL
	return c
}

// Random fetches one random photo for the query and orientation and returns
// its small URL.
func (c *Client) Random(ctx context.Context, query, orientation string) (string, error) {
	if c.accessKey == "" {
		return "", fmt.Errorf("no unsplash access key configured")
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("orientation", orientation)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/photos/random?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unsplash returned status %d", resp.StatusCode)
	}

	var photo RandomPhoto
	if err := json.NewDecoder(resp.Body).Decode(&photo); err != nil {
		return "", err
	}

	return photo.URLs.Small, nil
}
