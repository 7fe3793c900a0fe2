// Package pagination implements opaque keyset cursors for list endpoints.
// Snowflake ids are time-ordered, so a descending id keyset walks rows
// newest to oldest without a timestamp tiebreak.
package pagination

import (
	"encoding/base64"
	"encoding/json"
)

const (
	// DefaultPageSize applies when the client sends no page_size.
	DefaultPageSize = 50
	// MaxPageSize caps what a client can request per page.
	MaxPageSize = 100
)

// Pagination binds the cursor query params of a list request.
type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

// Limit returns the effective page size, clamped to [1, MaxPageSize].
func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}

// Cursor marks the last row of a page. The token the client echoes back is
// its base64 form.
type Cursor struct {
	ID string `json:"id"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(c Cursor) string {
	b, _ := json.Marshal(c)
	return base64.StdEncoding.EncodeToString(b)
}

func DecodeCursor(token string) (*Cursor, error) {
	b, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, err
	}
	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}
	return &cursor, nil
}

// TrimPage cuts the probe row fetched beyond the page size and builds the
// page info, with a next token pointing at the last row kept.
func TrimPage[T any](rows []*T, size int, cursorFor func(*T) string) ([]*T, *PageInfo) {
	info := &PageInfo{}
	if len(rows) > size {
		info.HasMore = true
		rows = rows[:size]
	}
	if len(rows) > 0 {
		info.NextPageToken = cursorFor(rows[len(rows)-1])
	}
	return rows, info
}
