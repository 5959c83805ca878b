package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/actuallystonmai/viewing-service/internal/domain"
	"github.com/actuallystonmai/viewing-service/internal/logging"
	"github.com/actuallystonmai/viewing-service/internal/metrics"
	"github.com/google/uuid"
)

// CreateViewing stores a new viewing for ownerID. When the request carries an
// idempotency key that is already taken, the existing viewing is returned
// with created=false instead of a second record.
func (s *Service) CreateViewing(ctx context.Context, ownerID string, in domain.NewViewing) (*domain.Viewing, bool, error) {
	if err := in.Check(); err != nil {
		return nil, false, err
	}

	ctx, span := tracer.Start(ctx, "Service.CreateViewing")
	defer span.End()

	circles := dedupStrings(in.CircleIDs)
	if len(circles) > 0 {
		mine, err := s.viewerCircles(ctx, ownerID)
		if err != nil {
			return nil, false, fmt.Errorf("fetch circles: %w", err)
		}
		for _, c := range circles {
			if !slices.Contains(mine, c) {
				return nil, false, fmt.Errorf("%w: %s", domain.ErrNotCircleMember, c)
			}
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, false, fmt.Errorf("generate id: %w", err)
	}

	v := &domain.Viewing{
		ID:             id.String(),
		OwnerID:        ownerID,
		Type:           in.Type,
		ExternalID:     in.ExternalID,
		Rating:         in.Rating,
		Comment:        in.Comment,
		WatchedAt:      in.WatchedAt,
		SeasonNumber:   in.SeasonNumber,
		EpisodeNumber:  in.EpisodeNumber,
		IdempotencyKey: in.IdempotencyKey,
		CircleIDs:      circles,
	}

	err = s.store.InsertViewing(ctx, v)
	if errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
		return s.replay(ctx, ownerID, *in.IdempotencyKey)
	}
	if err != nil {
		return nil, false, fmt.Errorf("insert viewing: %w", err)
	}

	metrics.ViewingCreates.WithLabelValues("created").Inc()
	if err := s.publisher.PublishViewingCreated(ctx, v); err != nil {
		logging.Warn().Err(err).Str("viewing_id", v.ID).Msg("publish viewing.created failed")
	}
	return v, true, nil
}

// replay resolves a lost insert race or a client retry to the stored record.
func (s *Service) replay(ctx context.Context, ownerID, key string) (*domain.Viewing, bool, error) {
	existing, err := s.store.GetViewingByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("re-read by idempotency key: %w", err)
	}
	if existing.OwnerID != ownerID {
		return nil, false, domain.ErrIdempotencyConflict
	}
	metrics.ViewingCreates.WithLabelValues("replayed").Inc()
	logging.Debug().Str("viewing_id", existing.ID).Msg("idempotent create replayed")
	return existing, false, nil
}

// DeleteViewing removes a viewing owned by requesterID.
func (s *Service) DeleteViewing(ctx context.Context, requesterID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrInvalidID
	}

	v, err := s.store.GetViewing(ctx, id)
	if err != nil {
		return err
	}
	if v.OwnerID != requesterID {
		return domain.ErrForbidden
	}

	if err := s.store.DeleteViewing(ctx, id, requesterID); err != nil {
		return err
	}

	if err := s.publisher.PublishViewingDeleted(ctx, id, requesterID); err != nil {
		logging.Warn().Err(err).Str("viewing_id", id).Msg("publish viewing.deleted failed")
	}
	return nil
}

func dedupStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
