package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://openlibrary.org"
	DefaultCoversURL = "https://covers.openlibrary.org"
)

type Client struct {
	httpClient *http.Client
	userAgent  string
	baseURL    string
	coversURL  string
	limiter    *rate.Limiter
}

type Options struct {
	BaseURL   string
	CoversURL string
	UserAgent string
	// RPS caps outgoing requests per second; 0 disables the limiter.
	RPS int
	// Timeout is applied per request; 0 means none.
	Timeout time.Duration
}

func NewClient(opts Options) *Client {
	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Every(time.Second / time.Duration(opts.RPS))
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	coversURL := opts.CoversURL
	if coversURL == "" {
		coversURL = DefaultCoversURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		userAgent: opts.UserAgent,
		baseURL:   strings.TrimRight(baseURL, "/"),
		coversURL: strings.TrimRight(coversURL, "/"),
		limiter:   rate.NewLimiter(limit, 1),
	}
}

// SearchResponse matches search.json when only the isbn field is requested.
type SearchResponse struct {
	NumFound int `json:"numFound"`
	Docs     []struct {
		ISBN []string `json:"isbn"`
	} `json:"docs"`
}

// SearchISBNs returns the ISBN candidates of the single best match for q.
// An empty slice means no match.
func (c *Client) SearchISBNs(ctx context.Context, q string) ([]string, error) {
	u := fmt.Sprintf("%s/search.json?q=%s&limit=1&fields=isbn", c.baseURL, url.QueryEscape(q))

	var res SearchResponse
	if err := c.get(ctx, u, &res); err != nil {
		return nil, err
	}
	if len(res.Docs) == 0 {
		return nil, nil
	}
	return res.Docs[0].ISBN, nil
}

// CoverURL is the direct medium-size cover image for isbn.
func (c *Client) CoverURL(isbn string) string {
	return fmt.Sprintf("%s/b/isbn/%s-M.jpg", c.coversURL, url.PathEscape(isbn))
}

// CoverExists probes the cover endpoint with a HEAD request. default=false
// makes the service answer 404 instead of serving a blank image.
func (c *Client) CoverExists(ctx context.Context, isbn string) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.CoverURL(isbn)+"?default=false", nil)
	if err != nil {
		return false, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

func (c *Client) get(ctx context.Context, url string, target interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
}
