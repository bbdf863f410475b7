package pgtracking

import (
	"context"

	"github.com/BearBump/trackmarks/internal/models"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

var trackingColumns = []string{"id", "track", "owner", "created_at", "updated_at"}

// FindTrackingByCode возвращает (nil, nil), если трека с таким кодом нет.
func (s *Storage) FindTrackingByCode(ctx context.Context, code string) (*models.Tracking, error) {
	query, args, err := s.qb.Select(trackingColumns...).
		From("trackings").
		Where(sq.Eq{"track": code}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build tracking by code query")
	}
	return s.selectTracking(ctx, query, args...)
}

// GetTracking возвращает (nil, nil), если трека нет. С withHistory подгружается
// история со статусами, разрешёнными в текст.
func (s *Storage) GetTracking(ctx context.Context, id uint64, withHistory bool) (*models.Tracking, error) {
	query, args, err := s.qb.Select(trackingColumns...).
		From("trackings").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build tracking by id query")
	}
	t, err := s.selectTracking(ctx, query, args...)
	if err != nil || t == nil {
		return t, err
	}
	if !withHistory {
		return t, nil
	}

	history, err := s.ListTrackingHistory(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.History = history
	return t, nil
}

func (s *Storage) UpdateTrackingOwner(ctx context.Context, trackingID uint64, owner string) error {
	_, err := s.db.Exec(ctx, `UPDATE trackings SET owner = $2, updated_at = now() WHERE id = $1`, trackingID, owner)
	return errors.Wrap(err, "update tracking owner")
}

func (s *Storage) selectTracking(ctx context.Context, query string, args ...any) (*models.Tracking, error) {
	var t models.Tracking
	var owner *string
	err := s.db.QueryRow(ctx, query, args...).Scan(&t.ID, &t.Track, &owner, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select tracking")
	}
	t.Owner = owner
	return &t, nil
}
