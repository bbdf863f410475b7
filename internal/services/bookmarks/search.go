package bookmarks

import (
	"regexp"
	"strings"

	"github.com/BearBump/trackmarks/internal/models"
)

// FilterBookmarks оставляет закладки, у которых описание, номер или код привязанного
// трека содержат search без учёта регистра. Пустой search не фильтрует.
func FilterBookmarks(in []*models.Bookmark, search string) []*models.Bookmark {
	if search == "" {
		return in
	}
	// regexp не компилирует невалидный UTF-8, битые байты заменяем на U+FFFD
	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(strings.ToValidUTF8(search, "\uFFFD")))

	out := make([]*models.Bookmark, 0, len(in))
	for _, b := range in {
		if matchBookmark(re, b) {
			out = append(out, b)
		}
	}
	return out
}

func matchBookmark(re *regexp.Regexp, b *models.Bookmark) bool {
	desc := ""
	if b.Description != nil {
		desc = *b.Description
	}
	if re.MatchString(desc) || re.MatchString(b.TrackNumber) {
		return true
	}
	// Ищем только по уже известным полям: код трека есть лишь у привязанных закладок.
	return b.Tracking != nil && re.MatchString(b.Tracking.Track)
}
