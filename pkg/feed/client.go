package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/config"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/errors"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/logger"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/models"
)

// Client talks to the favorites listing API
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	apiURL     string
	pageSize   int
	logger     logger.Logger
}

// NewClient creates a client from the feed configuration
func NewClient(cfg config.FeedConfig, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	headers := map[string]string{
		"User-Agent":      cfg.UserAgent,
		"Referer":         cfg.Referer,
		"Accept":          "application/json, text/plain, */*",
		"Accept-Language": "zh-CN,zh;q=0.9,en;q=0.8",
	}
	if cfg.Cookie != "" {
		headers["Cookie"] = cfg.Cookie
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		headers:    headers,
		apiURL:     cfg.APIURL,
		pageSize:   cfg.PageSize,
		logger:     log.WithField("component", "feed"),
	}
}

// SetHeader sets a custom header sent with every request
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		if value != "" {
			req.Header.Set(key, value)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.WarnWithFields("Feed request failed", map[string]interface{}{
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errors.TransientFetch("feed request", 0, err)
	}

	c.logger.DebugWithFields("Feed request completed", map[string]interface{}{
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})
	return resp, nil
}

// GetJSON performs a GET and decodes the JSON body into target
func (c *Client) GetJSON(ctx context.Context, url string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.MalformedRequest(fmt.Sprintf("invalid feed request: %v", err))
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.TransientFetch(fmt.Sprintf("feed returned %s", resp.Status), resp.StatusCode, nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.TransientFetch("read feed body", resp.StatusCode, err)
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.WarnWithFields("Failed to parse feed response", map[string]interface{}{
			"url":          url,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return errors.TransientFetch("parse feed response", resp.StatusCode, err)
	}
	return nil
}

// FetchPage fetches one page of favorites starting at cursor
func (c *Client) FetchPage(ctx context.Context, cursor int64) (*models.FavoritesResponse, error) {
	pageURL, err := GetPageURL(c.apiURL, cursor, c.pageSize)
	if err != nil {
		return nil, errors.MalformedRequest(err.Error())
	}

	var page models.FavoritesResponse
	if err := c.GetJSON(ctx, pageURL, &page); err != nil {
		return nil, err
	}
	if page.StatusCode != 0 {
		// Non-zero status usually means the cookie expired
		return nil, errors.SourceUnavailable(
			fmt.Sprintf("feed status %d: %s", page.StatusCode, page.StatusMsg), nil)
	}
	return &page, nil
}
