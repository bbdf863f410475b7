package models

import (
	"errors"
	"time"
)

// StatusReceived — терминальный статус: посылка получена, закладка больше не интересна.
const StatusReceived = "Получено"

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrTrackingNotFound = errors.New("tracking not found")
)

type Tracking struct {
	ID        uint64           `json:"id"`
	Track     string           `json:"track"`
	Owner     *string          `json:"user,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
	History   []*TrackingEvent `json:"history,omitempty"`
}

type TrackingEvent struct {
	ID         uint64    `json:"id"`
	TrackingID uint64    `json:"trackingId"`
	StatusID   *uint64   `json:"statusId,omitempty"`
	StatusText string    `json:"statusText"`
	Location   *string   `json:"location,omitempty"`
	EventTime  time.Time `json:"eventTime"`
}

// IsReceived reports whether any history event carries the terminal status.
func (t *Tracking) IsReceived() bool {
	if t == nil {
		return false
	}
	for _, e := range t.History {
		if e != nil && e.StatusText == StatusReceived {
			return true
		}
	}
	return false
}
