package bookmarks

import (
	"context"
	"fmt"

	"github.com/BearBump/trackmarks/internal/models"
)

// load оборачивает любые ошибки хранилища, models.ErrUserNotFound остаётся доступен через errors.Is.
// nil-пользователь тоже означает models.ErrUserNotFound.
func (s *Service) load(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetUserWithBookmarks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user %q: %w", userID, err)
	}
	if user == nil {
		return nil, models.ErrUserNotFound
	}
	return user, nil
}
