package library

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("manga not found")
	ErrEmptyURL     = errors.New("url is required")
	ErrInvalidURL   = errors.New("url must be an absolute http(s) address")
	ErrEmptyChapter = errors.New("chapter is required")
)

// Entry is one tracked manga.
type Entry struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Chapter    string    `json:"chapter"`
	URL        string    `json:"url"`
	CoverImage string    `json:"cover_image,omitempty"`
	Synopsis   string    `json:"synopsis,omitempty"`
	Source     string    `json:"source,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
