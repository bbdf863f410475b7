package bookmarks

import (
	"context"
	"fmt"

	"github.com/BearBump/trackmarks/internal/metrics"
	"github.com/BearBump/trackmarks/internal/models"
	"golang.org/x/sync/errgroup"
)

type resolutionKind int

const (
	// resolutionLinked: у закладки уже есть ссылка на трек.
	resolutionLinked resolutionKind = iota
	// resolutionUnlinkedFound: ссылки нет, трек найден по номеру, его нужно «забрать».
	resolutionUnlinkedFound
	// resolutionUnlinkedNotFound: ссылки нет и трека с таким номером нет.
	resolutionUnlinkedNotFound
)

type resolution struct {
	kind       resolutionKind
	trackingID uint64
}

type outcome struct {
	enriched   *models.EnrichedBookmark
	unresolved *models.UnresolvedBookmark
}

type resolveResult struct {
	enriched   []models.EnrichedBookmark
	unresolved []models.UnresolvedBookmark
	received   int
}

func (s *Service) classify(ctx context.Context, b *models.Bookmark) (resolution, error) {
	if b.TrackingID != nil {
		return resolution{kind: resolutionLinked, trackingID: *b.TrackingID}, nil
	}
	t, err := s.trackings.FindTrackingByCode(ctx, b.TrackNumber)
	if err != nil {
		return resolution{}, fmt.Errorf("find tracking by code %q: %w", b.TrackNumber, err)
	}
	if t == nil {
		return resolution{kind: resolutionUnlinkedNotFound}, nil
	}
	return resolution{kind: resolutionUnlinkedFound, trackingID: t.ID}, nil
}

// isActive: единственное место, где применяется правило исключения полученных посылок.
func isActive(t *models.Tracking) bool {
	return !t.IsReceived()
}

func (s *Service) resolveOne(ctx context.Context, user *models.User, b *models.Bookmark) (outcome, error) {
	r, err := s.classify(ctx, b)
	if err != nil {
		return outcome{}, err
	}

	switch r.kind {
	case resolutionUnlinkedNotFound:
		u := models.NewUnresolvedBookmark(b)
		return outcome{unresolved: &u}, nil
	case resolutionUnlinkedFound:
		// владелец записывается до повторной загрузки трека
		if err := s.claimer.Claim(ctx, r.trackingID, user.Phone); err != nil {
			return outcome{}, err
		}
	case resolutionLinked:
	}

	t, err := s.trackings.GetTracking(ctx, r.trackingID, true)
	if err != nil {
		return outcome{}, fmt.Errorf("get tracking %d: %w", r.trackingID, err)
	}
	if t == nil {
		return outcome{}, fmt.Errorf("get tracking %d: %w", r.trackingID, models.ErrTrackingNotFound)
	}

	e := models.NewEnrichedBookmark(b, t)
	return outcome{enriched: &e}, nil
}

// resolveAll сохраняет порядок закладок независимо от concurrency: каждый результат
// пишется в свой слот. Первая ошибка отменяет остальные и возвращается целиком.
func (s *Service) resolveAll(ctx context.Context, user *models.User, bookmarks []*models.Bookmark) (resolveResult, error) {
	slots := make([]outcome, len(bookmarks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, b := range bookmarks {
		if gctx.Err() != nil {
			break
		}
		i, b := i, b
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			o, err := s.resolveOne(gctx, user, b)
			if err != nil {
				return err
			}
			slots[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return resolveResult{}, err
	}

	res := resolveResult{
		enriched:   []models.EnrichedBookmark{},
		unresolved: []models.UnresolvedBookmark{},
	}
	for _, o := range slots {
		switch {
		case o.unresolved != nil:
			res.unresolved = append(res.unresolved, *o.unresolved)
			metrics.ObserveOutcome(metrics.OutcomeUnresolved)
		case o.enriched != nil && isActive(o.enriched.TrackDetails):
			res.enriched = append(res.enriched, *o.enriched)
			metrics.ObserveOutcome(metrics.OutcomeEnriched)
		case o.enriched != nil:
			res.received++
			metrics.ObserveOutcome(metrics.OutcomeReceived)
		}
	}
	return res, nil
}
