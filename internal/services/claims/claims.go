package claims

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/BearBump/trackmarks/internal/broker/messages"
	"github.com/BearBump/trackmarks/internal/metrics"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Claimer перезаписывает владельца трека, найденного по номеру из закладки.
type Claimer interface {
	Claim(ctx context.Context, trackingID uint64, ownerTag string) error
}

type OwnerStore interface {
	UpdateTrackingOwner(ctx context.Context, trackingID uint64, owner string) error
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type Service struct {
	logger   *slog.Logger
	store    OwnerStore
	producer Producer
	topic    string
	now      func() time.Time
}

// New собирает Claimer. producer может быть nil: тогда события не публикуются.
func New(logger *slog.Logger, store OwnerStore, producer Producer, topic string) *Service {
	return &Service{
		logger:   logger.With(slog.String("service", "claims")),
		store:    store,
		producer: producer,
		topic:    topic,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Claim(ctx context.Context, trackingID uint64, ownerTag string) error {
	if trackingID == 0 {
		return errors.New("trackingId is required")
	}
	if err := s.store.UpdateTrackingOwner(ctx, trackingID, ownerTag); err != nil {
		return fmt.Errorf("claim tracking %d: %w", trackingID, err)
	}
	metrics.IncClaimed()

	if s.producer == nil || s.topic == "" {
		return nil
	}

	// Событие лишь уведомление: владелец уже записан, ошибка публикации запрос не валит.
	msg := messages.TrackingClaimed{
		EventID:    uuid.NewString(),
		TrackingID: trackingID,
		Owner:      ownerTag,
		ClaimedAt:  s.now(),
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "marshal claim event")
	}
	key := []byte(strconv.FormatUint(trackingID, 10))
	if err := s.producer.Publish(ctx, s.topic, key, b); err != nil {
		metrics.IncClaimPublishFailed()
		s.logger.WarnContext(ctx, "publish claim event", slog.Uint64("tracking_id", trackingID), slog.Any("error", err))
	}
	return nil
}

// Noop отключает захват владельца.
type Noop struct{}

func (Noop) Claim(context.Context, uint64, string) error { return nil }
