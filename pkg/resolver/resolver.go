// Package resolver turns a pasted share link into the fields the wall needs
// to play a video: its page URL, a direct stream URL, a title and a cover.
package resolver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/errors"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/logger"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/models"
)

const (
	// MobileUserAgent gets the lightweight share page with inline JSON
	MobileUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Mobile/15E148 Safari/604.1"

	DefaultTitle  = "未命名视频"
	DefaultAuthor = "未知作者"

	maxPageBytes = 5 * 1024 * 1024
)

var (
	videoIDPattern  = regexp.MustCompile(`/video/(\d+)`)
	srcPattern      = regexp.MustCompile(`"src":"(https?://[^"]+?)"`)
	playAddrPattern = regexp.MustCompile(`"playAddr":\[\{"src":"(https?://[^"]+?)"`)
	coverPattern    = regexp.MustCompile(`"cover":"(https?://[^"]+?)"`)
	nicknamePattern = regexp.MustCompile(`"nickname":"([^"]+?)"`)
	titleSuffix     = regexp.MustCompile(` - 抖音.*`)
)

// Resolver fetches share pages
type Resolver struct {
	client *http.Client
	now    func() time.Time
	logger logger.Logger
}

// New creates a Resolver whose fetches are bounded by timeout
func New(timeout time.Duration, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.GetLogger()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Resolver{
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
		logger: log.WithField("component", "resolver"),
	}
}

// Resolve follows shareURL's redirects and scrapes the landing page. Fields
// that cannot be found keep their defaults; only an invalid URL or a failed
// fetch is an error.
func (r *Resolver) Resolve(ctx context.Context, shareURL string) (models.ResolvedVideo, error) {
	u, err := url.Parse(strings.TrimSpace(shareURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return models.ResolvedVideo{}, errors.MalformedRequest("invalid url parameter")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return models.ResolvedVideo{}, errors.MalformedRequest("invalid url parameter")
	}
	req.Header.Set("User-Agent", MobileUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := r.client.Do(req)
	if err != nil {
		return models.ResolvedVideo{}, errors.TransientFetch("fetch share page", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return models.ResolvedVideo{}, errors.TransientFetch(
			fmt.Sprintf("share page returned %s", resp.Status), resp.StatusCode, nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return models.ResolvedVideo{}, errors.TransientFetch("read share page", resp.StatusCode, err)
	}

	result := r.extract(resp.Request.URL.String(), string(body))
	r.logger.DebugWithFields("Resolved share link", map[string]interface{}{
		"share_url": shareURL,
		"id":        result.ID,
		"playable":  result.RealVideoURL != "",
	})
	return result, nil
}

func (r *Resolver) extract(finalURL, page string) models.ResolvedVideo {
	result := models.ResolvedVideo{
		Title:    DefaultTitle,
		Author:   DefaultAuthor,
		VideoURL: finalURL,
	}

	if m := videoIDPattern.FindStringSubmatch(finalURL); m != nil {
		result.ID = m[1]
	} else {
		result.ID = fmt.Sprintf("import_%d", r.now().Unix())
	}

	if title := pageTitle(page); title != "" {
		if t := strings.TrimSpace(titleSuffix.ReplaceAllString(title, "")); t != "" {
			result.Title = t
		}
	}

	for _, m := range srcPattern.FindAllStringSubmatch(page, -1) {
		src := unescape(m[1])
		if (strings.Contains(src, "/video/") || strings.Contains(src, "aweme")) &&
			!strings.Contains(src, ".mp3") && !strings.Contains(src, "avatar") {
			result.RealVideoURL = src
			break
		}
	}
	if result.RealVideoURL == "" {
		if m := playAddrPattern.FindStringSubmatch(page); m != nil {
			result.RealVideoURL = unescape(m[1])
		}
	}

	if m := coverPattern.FindStringSubmatch(page); m != nil {
		result.CoverURL = unescape(m[1])
	}
	if m := nicknamePattern.FindStringSubmatch(page); m != nil {
		result.Author = m[1]
	}

	return result
}

// pageTitle returns the text of the document's first <title> element
func pageTitle(page string) string {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return ""
	}

	var title string
	var find func(*html.Node) bool
	find = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			var sb strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
				}
			}
			title = strings.TrimSpace(sb.String())
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if find(c) {
				return true
			}
		}
		return false
	}
	find(doc)

	return title
}

// unescape undoes the JSON escaping of & inside inline script data
func unescape(s string) string {
	return strings.ReplaceAll(s, `\u0026`, "&")
}
