package models

import "time"

type User struct {
	ID        string
	Phone     string
	Bookmarks []*Bookmark
}

// Bookmark — сохранённый пользователем трек. TrackNumber есть всегда,
// даже если ссылки на Tracking ещё нет.
type Bookmark struct {
	ID          uint64
	UserID      string
	TrackingID  *uint64
	Tracking    *Tracking
	TrackNumber string
	Description *string
	CreatedAt   time.Time
}

type EnrichedBookmark struct {
	ID           uint64           `json:"id"`
	TrackID      *uint64          `json:"trackId"`
	TrackNumber  string           `json:"trackNumber"`
	Description  *string          `json:"description"`
	CreatedAt    time.Time        `json:"createdAt"`
	TrackDetails *Tracking        `json:"trackDetails"`
	History      []*TrackingEvent `json:"history"`
}

type UnresolvedBookmark struct {
	TrackNumber string    `json:"trackNumber"`
	CreatedAt   time.Time `json:"createdAt"`
	Description *string   `json:"description"`
}

type BookmarksPage struct {
	UpdatedBookmarks  []EnrichedBookmark   `json:"updatedBookmarks"`
	NotFoundBookmarks []UnresolvedBookmark `json:"notFoundBookmarks"`
	TotalPages        int                  `json:"totalPages"`
	TotalBookmarks    int                  `json:"totalBookmarks"`
}

func NewEnrichedBookmark(b *Bookmark, t *Tracking) EnrichedBookmark {
	history := t.History
	if history == nil {
		history = []*TrackingEvent{}
	}
	return EnrichedBookmark{
		ID:           b.ID,
		TrackID:      b.TrackingID,
		TrackNumber:  b.TrackNumber,
		Description:  b.Description,
		CreatedAt:    b.CreatedAt,
		TrackDetails: t,
		History:      history,
	}
}

func NewUnresolvedBookmark(b *Bookmark) UnresolvedBookmark {
	return UnresolvedBookmark{
		TrackNumber: b.TrackNumber,
		CreatedAt:   b.CreatedAt,
		Description: b.Description,
	}
}
