package models

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Item is one favorited video as persisted in the manifest
type Item struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	AuthorID   string `json:"author_id"`
	CoverURL   string `json:"cover_url"`
	VideoURL   string `json:"video_url"`
	CreateTime int64  `json:"create_time"`
	LocalCover string `json:"local_cover,omitempty"`

	// Extra holds fields written by other clients of the manifest, such as
	// the wall's real_video_url on imported cards. They are kept verbatim.
	Extra map[string]json.RawMessage `json:"-"`
}

// itemFields has Item's layout without its JSON methods
type itemFields Item

var itemKeys = map[string]bool{
	"id": true, "title": true, "author": true, "author_id": true, "cover_url": true,
	"video_url": true, "create_time": true, "local_cover": true,
}

// MarshalJSON writes the known fields followed by Extra in key order
func (it Item) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(itemFields(it)); err != nil {
		return nil, err
	}
	out := bytes.TrimRight(buf.Bytes(), "\n")
	if len(it.Extra) == 0 {
		return out, nil
	}

	keys := make([]string, 0, len(it.Extra))
	for k := range it.Extra {
		if !itemKeys[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out = out[:len(out)-1]
	for _, k := range keys {
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		out = append(out, ',')
		out = append(out, name...)
		out = append(out, ':')
		out = append(out, it.Extra[k]...)
	}
	return append(out, '}'), nil
}

// UnmarshalJSON reads the known fields and keeps everything else in Extra
func (it *Item) UnmarshalJSON(data []byte) error {
	var f itemFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k := range itemKeys {
		delete(all, k)
	}

	*it = Item(f)
	it.Extra = nil
	if len(all) > 0 {
		it.Extra = all
	}
	return nil
}

// RawItem is a single observation of an item from a feed source
type RawItem struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	AuthorID   string `json:"author_id"`
	CoverURL   string `json:"cover_url"`
	VideoURL   string `json:"video_url"`
	CreateTime int64  `json:"create_time"`
}

// NewItem builds an Item from its first observation
func NewItem(raw RawItem) Item {
	return Item{
		ID:         raw.ID,
		Title:      raw.Title,
		Author:     raw.Author,
		AuthorID:   raw.AuthorID,
		CoverURL:   raw.CoverURL,
		VideoURL:   raw.VideoURL,
		CreateTime: raw.CreateTime,
	}
}

// Merge folds a later observation into the item. ID and CreateTime keep their
// first observed value; the mutable fields take the newest non-empty value.
// It reports whether anything changed.
func (it *Item) Merge(raw RawItem) bool {
	changed := false
	set := func(dst *string, v string) {
		if v != "" && *dst != v {
			*dst = v
			changed = true
		}
	}

	set(&it.Title, raw.Title)
	set(&it.Author, raw.Author)
	set(&it.AuthorID, raw.AuthorID)
	set(&it.CoverURL, raw.CoverURL)
	set(&it.VideoURL, raw.VideoURL)

	if it.CreateTime == 0 && raw.CreateTime != 0 {
		it.CreateTime = raw.CreateTime
		changed = true
	}
	return changed
}

// ResolvedVideo is the result of resolving a share link to a playable stream
type ResolvedVideo struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Author       string `json:"author"`
	CoverURL     string `json:"cover_url"`
	VideoURL     string `json:"video_url"`
	RealVideoURL string `json:"real_video_url"`
}

// FavoritesResponse is one page of the favorites listing API
type FavoritesResponse struct {
	StatusCode int     `json:"status_code"`
	StatusMsg  string  `json:"status_msg,omitempty"`
	AwemeList  []Aweme `json:"aweme_list"`
	Cursor     int64   `json:"cursor"`
	HasMore    int     `json:"has_more"`
}

type Aweme struct {
	AwemeID    string `json:"aweme_id"`
	Desc       string `json:"desc"`
	CreateTime int64  `json:"create_time"`
	Author     Author `json:"author"`
	Video      Video  `json:"video"`
}

type Author struct {
	Nickname string `json:"nickname"`
	SecUID   string `json:"sec_uid"`
}

type Video struct {
	Cover       URLList `json:"cover"`
	OriginCover URLList `json:"origin_cover"`
}

type URLList struct {
	URLList []string `json:"url_list"`
}

// First returns the first URL or ""
func (u URLList) First() string {
	if len(u.URLList) == 0 {
		return ""
	}
	return u.URLList[0]
}
