package messages

import "time"

// TrackingClaimed публикуется, когда трек без владельца привязывается к пользователю
// при разборе его закладок.
type TrackingClaimed struct {
	EventID    string    `json:"event_id"`
	TrackingID uint64    `json:"tracking_id"`
	Owner      string    `json:"owner"`
	ClaimedAt  time.Time `json:"claimed_at"`
}
