package feed

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/models"
)

const (
	// VideoPageBase is the public page prefix for a video id
	VideoPageBase = "https://www.douyin.com/video/"

	// DefaultPageSize is the number of items requested per page
	DefaultPageSize = 20

	// MaxPageSize is the largest page the listing endpoint accepts
	MaxPageSize = 50

	// MaxTitleRunes bounds the stored title length
	MaxTitleRunes = 100
)

// GetPageURL builds the listing URL for the page starting at cursor
func GetPageURL(apiURL string, cursor int64, count int) (string, error) {
	if count <= 0 {
		count = DefaultPageSize
	} else if count > MaxPageSize {
		count = MaxPageSize
	}

	u, err := url.Parse(apiURL)
	if err != nil {
		return "", fmt.Errorf("invalid feed url: %w", err)
	}
	q := u.Query()
	q.Set("cursor", strconv.FormatInt(cursor, 10))
	q.Set("count", strconv.Itoa(count))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// GetVideoPageURL returns the canonical page URL for a video id
func GetVideoPageURL(id string) string {
	if id == "" {
		return ""
	}
	return VideoPageBase + id
}

// ToRawItem maps an API entry to a RawItem. Entries without an id or a
// cover are not usable on the wall and report false.
func ToRawItem(a models.Aweme) (models.RawItem, bool) {
	if a.AwemeID == "" {
		return models.RawItem{}, false
	}
	cover := a.Video.Cover.First()
	if cover == "" {
		cover = a.Video.OriginCover.First()
	}
	if cover == "" {
		return models.RawItem{}, false
	}

	return models.RawItem{
		ID:         a.AwemeID,
		Title:      TruncateTitle(a.Desc),
		Author:     a.Author.Nickname,
		AuthorID:   a.Author.SecUID,
		CoverURL:   cover,
		VideoURL:   GetVideoPageURL(a.AwemeID),
		CreateTime: a.CreateTime,
	}, true
}

// TruncateTitle trims whitespace and keeps at most MaxTitleRunes runes
func TruncateTitle(s string) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) > MaxTitleRunes {
		return string(r[:MaxTitleRunes])
	}
	return s
}
