package pgtracking

import (
	"context"
	"time"

	"github.com/BearBump/trackmarks/internal/models"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// GetUserWithBookmarks загружает пользователя и его закладки в порядке добавления.
// Привязанный трек (если есть) материализуется через LEFT JOIN, без истории.
func (s *Storage) GetUserWithBookmarks(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRow(ctx, `SELECT id, phone FROM users WHERE id = $1`, userID).Scan(&u.ID, &u.Phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select user")
	}

	query, args, err := s.qb.Select(
		"b.id", "b.user_id", "b.tracking_id", "b.track_number", "b.description", "b.created_at",
		"t.id", "t.track", "t.owner", "t.created_at", "t.updated_at",
	).
		From("bookmarks b").
		LeftJoin("trackings t ON t.id = b.tracking_id").
		Where(sq.Eq{"b.user_id": userID}).
		OrderBy("b.id ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build bookmarks query")
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select bookmarks")
	}
	defer rows.Close()

	u.Bookmarks = []*models.Bookmark{}
	for rows.Next() {
		var b models.Bookmark
		var trackingID *uint64
		var description *string
		var tID *uint64
		var tTrack *string
		var tOwner *string
		var tCreatedAt *time.Time
		var tUpdatedAt *time.Time
		if err := rows.Scan(
			&b.ID, &b.UserID, &trackingID, &b.TrackNumber, &description, &b.CreatedAt,
			&tID, &tTrack, &tOwner, &tCreatedAt, &tUpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan bookmark")
		}
		b.TrackingID = trackingID
		b.Description = description

		if tID != nil {
			t := &models.Tracking{ID: *tID, Owner: tOwner}
			if tTrack != nil {
				t.Track = *tTrack
			}
			if tCreatedAt != nil {
				t.CreatedAt = *tCreatedAt
			}
			if tUpdatedAt != nil {
				t.UpdatedAt = *tUpdatedAt
			}
			b.Tracking = t
		}

		u.Bookmarks = append(u.Bookmarks, &b)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return &u, nil
}
