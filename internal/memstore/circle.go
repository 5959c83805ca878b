package memstore

import (
	"context"
	"sort"

	"github.com/actuallystonmai/viewing-service/internal/domain"
)

func (s *Store) CreateCircle(_ context.Context, c *domain.Circle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *c
	stored.Members = nil
	s.circles[c.ID] = &stored
	s.members[c.ID] = map[string]struct{}{c.OwnerID: {}}
	for _, m := range c.Members {
		s.members[c.ID][m] = struct{}{}
	}
	return nil
}

func (s *Store) GetCircle(_ context.Context, id string) (*domain.Circle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.circles[id]
	if !ok {
		return nil, domain.ErrCircleNotFound
	}
	return s.withMembers(c), nil
}

func (s *Store) ListCircles(_ context.Context, userID string) ([]domain.Circle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Circle{}
	for id, c := range s.circles {
		if _, ok := s.members[id][userID]; ok {
			out = append(out, *s.withMembers(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) AddCircleMember(_ context.Context, circleID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.circles[circleID]; !ok {
		return domain.ErrCircleNotFound
	}
	s.members[circleID][userID] = struct{}{}
	return nil
}

func (s *Store) RemoveCircleMember(_ context.Context, circleID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.circles[circleID]; !ok {
		return domain.ErrCircleNotFound
	}
	delete(s.members[circleID], userID)
	return nil
}

func (s *Store) UserCircleIDs(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := []string{}
	for id, m := range s.members {
		if _, ok := m[userID]; ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) withMembers(c *domain.Circle) *domain.Circle {
	out := *c
	out.Members = make([]string, 0, len(s.members[c.ID]))
	for m := range s.members[c.ID] {
		out.Members = append(out.Members, m)
	}
	sort.Strings(out.Members)
	return &out
}
