package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultWikipediaBaseURL = "https://en.wikipedia.org/w/api.php"

// Article is one wikipedia search hit with its fetched plain-text extract.
type Article struct {
	Title   string
	Snippet string
	URL     string
	Extract string
}

// WikipediaClient queries the MediaWiki search and extract APIs.
type WikipediaClient struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// NewWikipediaClient creates a client against the public English wikipedia.
func NewWikipediaClient(logger *zap.Logger) *WikipediaClient {
	return &WikipediaClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultWikipediaBaseURL,
		logger:     logger.Named("wikipedia_client"),
	}
}

// NewWikipediaClientWithBaseURL creates a client against a custom endpoint.
// Used by tests to point at a local server.
func NewWikipediaClientWithBaseURL(baseURL string, logger *zap.Logger) *WikipediaClient {
	c := NewWikipediaClient(logger)
	c.baseURL = baseURL
	return c
}

type searchResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
}

type extractResponse struct {
	Query struct {
		Pages map[string]struct {
			Extract string `json:"extract"`
		} `json:"pages"`
	} `json:"query"`
}

// Search returns up to limit articles matching query, without extracts.
func (c *WikipediaClient) Search(ctx context.Context, query string, limit int) ([]Article, error) {
	params := url.Values{
		"action":   {"query"},
		"format":   {"json"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {fmt.Sprintf("%d", limit)},
		"srprop":   {"snippet"},
	}

	var resp searchResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, fmt.Errorf("wikipedia search failed: %w", err)
	}

	articles := make([]Article, 0, len(resp.Query.Search))
	for _, item := range resp.Query.Search {
		articles = append(articles, Article{
			Title:   item.Title,
			Snippet: item.Snippet,
			URL:     "https://en.wikipedia.org/wiki/" + strings.ReplaceAll(item.Title, " ", "_"),
		})
	}
	return articles, nil
}

// FetchExtract returns the plain-text intro extract for an article title.
func (c *WikipediaClient) FetchExtract(ctx context.Context, title string) (string, error) {
	params := url.Values{
		"action":      {"query"},
		"format":      {"json"},
		"prop":        {"extracts"},
		"explaintext": {"1"},
		"exintro":     {"1"},
		"titles":      {title},
	}

	var resp extractResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return "", fmt.Errorf("wikipedia extract fetch failed: %w", err)
	}
	for _, page := range resp.Query.Pages {
		if page.Extract != "" {
			return page.Extract, nil
		}
	}
	return "", fmt.Errorf("no extract found for %q", title)
}

func (c *WikipediaClient) get(ctx context.Context, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
