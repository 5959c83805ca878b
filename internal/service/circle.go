package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/actuallystonmai/viewing-service/internal/domain"
	"github.com/actuallystonmai/viewing-service/internal/logging"
	"github.com/google/uuid"
)

const maxCircleName = 100

func (s *Service) CreateCircle(ctx context.Context, ownerID, name string) (*domain.Circle, error) {
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > maxCircleName {
		return nil, &domain.FieldError{Field: "name", Message: "name must be between 1 and 100 characters"}
	}

	c := &domain.Circle{
		ID:        uuid.NewString(),
		Name:      name,
		OwnerID:   ownerID,
		Members:   []string{ownerID},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateCircle(ctx, c); err != nil {
		return nil, fmt.Errorf("create circle: %w", err)
	}
	s.clearMemberships(ctx, ownerID)
	return c, nil
}

func (s *Service) ListCircles(ctx context.Context, userID string) ([]domain.Circle, error) {
	circles, err := s.store.ListCircles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list circles: %w", err)
	}
	return circles, nil
}

// AddCircleMember lets a circle's owner add userID. Adding an existing
// member is a no-op.
func (s *Service) AddCircleMember(ctx context.Context, requesterID, circleID, userID string) error {
	c, err := s.ownedCircle(ctx, circleID)
	if err != nil {
		return err
	}
	if c.OwnerID != requesterID {
		return domain.ErrForbidden
	}
	if strings.TrimSpace(userID) == "" {
		return &domain.FieldError{Field: "userId", Message: "userId is required"}
	}
	if c.IsMember(userID) {
		return nil
	}

	if err := s.store.AddCircleMember(ctx, circleID, userID); err != nil {
		return fmt.Errorf("add circle member: %w", err)
	}
	s.clearMemberships(ctx, userID)
	return nil
}

// RemoveCircleMember is allowed to the circle owner, or to a member leaving.
// Removing a non-member is a no-op.
func (s *Service) RemoveCircleMember(ctx context.Context, requesterID, circleID, userID string) error {
	c, err := s.ownedCircle(ctx, circleID)
	if err != nil {
		return err
	}
	if c.OwnerID != requesterID && userID != requesterID {
		return domain.ErrForbidden
	}
	if userID == c.OwnerID {
		return &domain.FieldError{Field: "userId", Message: "circle owner cannot be removed"}
	}
	if !c.IsMember(userID) {
		return nil
	}

	if err := s.store.RemoveCircleMember(ctx, circleID, userID); err != nil {
		return fmt.Errorf("remove circle member: %w", err)
	}
	s.clearMemberships(ctx, userID)
	return nil
}

func (s *Service) ownedCircle(ctx context.Context, circleID string) (*domain.Circle, error) {
	if _, err := uuid.Parse(circleID); err != nil {
		return nil, domain.ErrInvalidID
	}
	return s.store.GetCircle(ctx, circleID)
}

func (s *Service) clearMemberships(ctx context.Context, userID string) {
	if err := s.cache.ClearCircles(ctx, userID); err != nil {
		logging.Warn().Err(err).Str("user_id", userID).Msg("membership cache invalidation failed")
	}
}
