package bookmarks

import (
	"strconv"
	"strings"

	"github.com/BearBump/trackmarks/internal/models"
)

const PageSize = 20

// NormalizePage разбирает номер страницы; всё, что не положительное целое, даёт 1.
func NormalizePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Paginate режет только найденные закладки. Ненайденные отдаются целиком,
// но учитываются в totalBookmarks/totalPages.
func Paginate(enriched []models.EnrichedBookmark, unresolved []models.UnresolvedBookmark, page int) models.BookmarksPage {
	if page < 1 {
		page = 1
	}
	total := len(enriched) + len(unresolved)

	items := []models.EnrichedBookmark{}
	// сравниваем номера страниц, а не смещения: (page-1)*PageSize может переполниться
	if page-1 < (len(enriched)+PageSize-1)/PageSize {
		skip := (page - 1) * PageSize
		items = enriched[skip:min(skip+PageSize, len(enriched))]
	}
	if unresolved == nil {
		unresolved = []models.UnresolvedBookmark{}
	}

	return models.BookmarksPage{
		UpdatedBookmarks:  items,
		NotFoundBookmarks: unresolved,
		TotalPages:        (total + PageSize - 1) / PageSize,
		TotalBookmarks:    total,
	}
}
