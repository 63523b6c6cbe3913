package tmview

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	errs "tmscraper/pkg/errors"
	"tmscraper/pkg/logger"
	"tmscraper/pkg/models"
	"tmscraper/pkg/queryspace"
	"tmscraper/pkg/ratelimit"
)

const (
	// DefaultEndpoint is the TMview search results API
	DefaultEndpoint = "https://www.tmdn.org/tmview/api/search/results"

	maxImageSize    = 32 << 20
	maxResponseSize = 16 << 20
	maxPreviewSize  = 200
)

// Options configures a Client
type Options struct {
	Endpoint        string
	UserAgent       string
	Origin          string
	Referer         string
	RequestTimeout  time.Duration
	DownloadTimeout time.Duration

	// HTTPClient carries the identity transport; http.DefaultClient when nil
	HTTPClient *http.Client
	// Limiter paces search requests; unlimited when nil
	Limiter ratelimit.Limiter
	Logger  logger.Logger
}

// Client talks to the TMview search API and its image hosts
type Client struct {
	httpClient      *http.Client
	headers         map[string]string
	endpoint        string
	requestTimeout  time.Duration
	downloadTimeout time.Duration
	limiter         ratelimit.Limiter
	logger          logger.Logger
}

// NewClient creates a new TMview client
func NewClient(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}

	headers := map[string]string{
		"Accept":          "application/json, text/plain, */*",
		"Accept-Language": "en-US,en;q=0.9",
	}
	if opts.UserAgent != "" {
		headers["User-Agent"] = opts.UserAgent
	}
	if opts.Origin != "" {
		headers["Origin"] = opts.Origin
	}
	if opts.Referer != "" {
		headers["Referer"] = opts.Referer
	}

	return &Client{
		httpClient:      opts.HTTPClient,
		headers:         headers,
		endpoint:        opts.Endpoint,
		requestTimeout:  opts.RequestTimeout,
		downloadTimeout: opts.DownloadTimeout,
		limiter:         opts.Limiter,
		logger:          opts.Logger.WithField("component", "tmview"),
	}
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.DebugWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.Network(fmt.Sprintf("%s %s", req.Method, req.URL.Redacted()), err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// FetchPage requests one page of results for q. It never retries: every
// failure is returned classified for the caller to act on. An empty result
// list yields errors.ErrExhausted.
func (c *Client) FetchPage(ctx context.Context, q queryspace.Query, page int) (*models.Page, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(q.Payload(page))
	if err != nil {
		return nil, fmt.Errorf("failed to encode search payload: %w", err)
	}

	ctx, cancel := withTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, errs.Status(resp.StatusCode, fmt.Sprintf("search returned %s", resp.Status))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, errs.Network("failed to read response body", err)
	}
	if len(data) > maxResponseSize {
		return nil, errs.Parsing("search response exceeds size limit", nil)
	}

	var result models.SearchResponse
	if err := json.Unmarshal(data, &result); err != nil {
		preview := string(data)
		if len(preview) > maxPreviewSize {
			preview = preview[:maxPreviewSize] + "..."
		}
		c.logger.WarnWithFields("failed to parse search response", map[string]interface{}{
			"query":        q.String(),
			"page":         page,
			"body_preview": preview,
		})
		return nil, errs.Parsing("failed to parse search response", err)
	}

	if len(result.TradeMarks) == 0 {
		return nil, fmt.Errorf("%s page %d: %w", q, page, errs.ErrExhausted)
	}

	items := make([]models.Item, 0, len(result.TradeMarks))
	noImage := 0
	for _, tm := range result.TradeMarks {
		item := tm.ToItem()
		if item.ImageURL == "" {
			noImage++
			continue
		}
		if item.ID == "" {
			c.logger.WarnWithFields("search hit without identifier skipped", map[string]interface{}{
				"query":     q.String(),
				"page":      page,
				"image_url": item.ImageURL,
			})
			continue
		}
		items = append(items, item)
	}

	if noImage > 0 {
		c.logger.DebugWithFields("search hits without image skipped", map[string]interface{}{
			"query":   q.String(),
			"page":    page,
			"skipped": noImage,
		})
	}

	return &models.Page{Number: page, Items: items}, nil
}

// DownloadImage fetches the image at url. Anything but a 200 is an error.
func (c *Client) DownloadImage(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := withTimeout(ctx, c.downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeDownload, "invalid image url", 0, err)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, errs.New(errs.ErrorTypeDownload,
			fmt.Sprintf("image returned %s", resp.Status), resp.StatusCode, nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize+1))
	if err != nil {
		return nil, errs.Network("failed to read image body", err)
	}
	if len(data) > maxImageSize {
		return nil, errs.New(errs.ErrorTypeDownload, "image exceeds size limit", resp.StatusCode, nil)
	}

	return data, nil
}
