package bookmarks

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/BearBump/trackmarks/internal/metrics"
	"github.com/BearBump/trackmarks/internal/models"
	"github.com/BearBump/trackmarks/internal/services/claims"
	"github.com/pkg/errors"
)

type UserStore interface {
	GetUserWithBookmarks(ctx context.Context, userID string) (*models.User, error)
}

type TrackingStore interface {
	FindTrackingByCode(ctx context.Context, code string) (*models.Tracking, error)
	GetTracking(ctx context.Context, id uint64, withHistory bool) (*models.Tracking, error)
}

type Query struct {
	UserID string
	Page   int
	Search string
}

type Service struct {
	logger      *slog.Logger
	users       UserStore
	trackings   TrackingStore
	claimer     claims.Claimer
	concurrency int
}

func New(logger *slog.Logger, users UserStore, trackings TrackingStore, claimer claims.Claimer) *Service {
	if claimer == nil {
		claimer = claims.Noop{}
	}
	return &Service{
		logger:      logger.With(slog.String("service", "bookmarks")),
		users:       users,
		trackings:   trackings,
		claimer:     claimer,
		concurrency: 1,
	}
}

// WithConcurrency задаёт, сколько закладок разбирается параллельно. При 1 строго по очереди.
func (s *Service) WithConcurrency(n int) *Service {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// GetUserBookmarks: загрузка -> поиск -> разбор треков -> пагинация.
// Ответ либо целиком, либо ошибка: частичных результатов нет.
func (s *Service) GetUserBookmarks(ctx context.Context, q Query) (models.BookmarksPage, error) {
	if q.UserID == "" {
		return models.BookmarksPage{}, errors.New("userId is required")
	}
	start := time.Now()

	user, err := s.load(ctx, q.UserID)
	if err != nil {
		return models.BookmarksPage{}, err
	}

	candidates := FilterBookmarks(user.Bookmarks, strings.TrimSpace(q.Search))

	res, err := s.resolveAll(ctx, user, candidates)
	if err != nil {
		return models.BookmarksPage{}, err
	}

	page := Paginate(res.enriched, res.unresolved, q.Page)

	metrics.ObservePipeline(time.Since(start).Seconds())
	s.logger.DebugContext(ctx, "bookmarks resolved",
		slog.String("user_id", user.ID),
		slog.Int("bookmarks", len(user.Bookmarks)),
		slog.Int("candidates", len(candidates)),
		slog.Int("enriched", len(res.enriched)),
		slog.Int("unresolved", len(res.unresolved)),
		slog.Int("received", res.received),
	)
	return page, nil
}
