package pgtracking

import (
	"context"

	"github.com/BearBump/trackmarks/internal/models"
	"github.com/pkg/errors"
)

func (s *Storage) ListTrackingHistory(ctx context.Context, trackingID uint64) ([]*models.TrackingEvent, error) {
	rows, err := s.db.Query(ctx, `
SELECT
  h.id, h.tracking_id, h.status_id,
  COALESCE(st.status_text, ''), h.location, h.event_time
FROM tracking_history h
LEFT JOIN statuses st ON st.id = h.status_id
WHERE h.tracking_id = $1
ORDER BY h.id ASC
`, trackingID)
	if err != nil {
		return nil, errors.Wrap(err, "select history")
	}
	defer rows.Close()

	out := []*models.TrackingEvent{}
	for rows.Next() {
		var e models.TrackingEvent
		var statusID *uint64
		var location *string
		if err := rows.Scan(
			&e.ID, &e.TrackingID, &statusID,
			&e.StatusText, &location, &e.EventTime,
		); err != nil {
			return nil, errors.Wrap(err, "scan history event")
		}
		e.StatusID = statusID
		e.Location = location
		out = append(out, &e)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
