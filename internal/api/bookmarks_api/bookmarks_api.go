package bookmarks_api

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/BearBump/trackmarks/internal/cache/rediscache"
	"github.com/BearBump/trackmarks/internal/models"
	"github.com/BearBump/trackmarks/internal/services/bookmarks"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const (
	msgUserNotFound    = "user not found"
	msgInternal        = "failed to get bookmarks"
	msgTooManyRequests = "too many requests"
)

type BookmarksGetter interface {
	GetUserBookmarks(ctx context.Context, q bookmarks.Query) (models.BookmarksPage, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (rediscache.Decision, error)
}

type BookmarksAPI struct {
	logger   *slog.Logger
	validate *validator.Validate
	svc      BookmarksGetter

	rl          RateLimiter
	rlPerMinute int64
	now         func() time.Time
}

func New(logger *slog.Logger, svc BookmarksGetter) *BookmarksAPI {
	return &BookmarksAPI{
		logger:   logger.With(slog.String("handler", "bookmarks")),
		validate: validator.New(),
		svc:      svc,
		now:      time.Now,
	}
}

// WithRateLimit ограничивает число запросов закладок одного пользователя в минуту.
func (a *BookmarksAPI) WithRateLimit(rl RateLimiter, perMinute int) *BookmarksAPI {
	if rl != nil && perMinute > 0 {
		a.rl = rl
		a.rlPerMinute = int64(perMinute)
	}
	return a
}

func (a *BookmarksAPI) Init(r chi.Router) {
	r.Get("/bookmarks/{userId}", a.GetUserBookmarks)
}

// request не ограничивает длину полей: незнакомый userId любой длины отдаёт 404.
type request struct {
	UserID string `validate:"required"`
	Page   int    `validate:"gte=1"`
	Search string
}

// GetUserBookmarks
// @Summary  Закладки пользователя с историей треков
// @Param    userId  path   string  true   "ID пользователя"
// @Param    page    query  int     false  "Страница, с 1"
// @Param    search  query  string  false  "Поиск по описанию, номеру и коду трека"
// @Success  200  {object}  models.BookmarksPage
// @Failure  404  {object}  ErrorResponse
// @Failure  500  {object}  ErrorResponse
// @Router   /bookmarks/{userId} [get]
func (a *BookmarksAPI) GetUserBookmarks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req := request{
		UserID: chi.URLParam(r, "userId"),
		Page:   bookmarks.NormalizePage(r.URL.Query().Get("page")),
		Search: r.URL.Query().Get("search"),
	}
	if err := a.validate.Struct(req); err != nil {
		writeError(w, msgUserNotFound, http.StatusNotFound)
		return
	}

	if !a.allow(w, r, req.UserID) {
		writeError(w, msgTooManyRequests, http.StatusTooManyRequests)
		return
	}

	page, err := a.svc.GetUserBookmarks(ctx, bookmarks.Query{
		UserID: req.UserID,
		Page:   req.Page,
		Search: req.Search,
	})
	if errors.Is(err, models.ErrUserNotFound) {
		writeError(w, msgUserNotFound, http.StatusNotFound)
		return
	}
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to get user bookmarks",
			slog.String("user_id", req.UserID),
			slog.Int("page", req.Page),
			slog.Any("error", err),
		)
		writeError(w, msgInternal, http.StatusInternalServerError)
		return
	}

	writeJSON(w, page, http.StatusOK)
}

// allow пропускает запрос, если Redis недоступен: лимит не должен ронять чтение.
func (a *BookmarksAPI) allow(w http.ResponseWriter, r *http.Request, userID string) bool {
	if a.rl == nil {
		return true
	}
	ctx := r.Context()
	key := rediscache.MinuteKey("bookmarks", userID, a.now())
	d, err := a.rl.Allow(ctx, key, a.rlPerMinute, time.Minute)
	if err != nil {
		a.logger.WarnContext(ctx, "rate limiter unavailable", slog.Any("error", err))
		return true
	}

	w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(a.rlPerMinute, 10))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
	if !d.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.ResetIn.Seconds()))))
		a.logger.WarnContext(ctx, "rate limit exceeded", slog.String("user_id", userID), slog.Int64("count", d.Count))
	}
	return d.Allowed
}
