// Package memstore is an in-process implementation of the storage port. It
// keeps the same guarantees as the Postgres store: idempotency keys are
// unique, createdAt never decreases, and deletes are conditional on owner.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/actuallystonmai/viewing-service/internal/domain"
	"github.com/actuallystonmai/viewing-service/internal/feed"
)

type Store struct {
	mu       sync.RWMutex
	now      func() time.Time
	last     time.Time
	viewings map[string]*domain.Viewing
	byKey    map[string]string
	circles  map[string]*domain.Circle
	members  map[string]map[string]struct{}
}

type Option func(*Store)

// WithClock overrides the time source used for createdAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		now:      time.Now,
		viewings: make(map[string]*domain.Viewing),
		byKey:    make(map[string]string),
		circles:  make(map[string]*domain.Circle),
		members:  make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) InsertViewing(_ context.Context, v *domain.Viewing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v.IdempotencyKey != nil {
		if _, taken := s.byKey[*v.IdempotencyKey]; taken {
			return domain.ErrDuplicateIdempotencyKey
		}
	}
	for _, c := range v.CircleIDs {
		if _, ok := s.circles[c]; !ok {
			return domain.ErrCircleNotFound
		}
	}

	now := s.now().UTC()
	if now.Before(s.last) {
		now = s.last
	}
	s.last = now
	v.CreatedAt = now

	s.viewings[v.ID] = cloneViewing(v)
	if v.IdempotencyKey != nil {
		s.byKey[*v.IdempotencyKey] = v.ID
	}
	return nil
}

func (s *Store) GetViewing(_ context.Context, id string) (*domain.Viewing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.viewings[id]
	if !ok {
		return nil, domain.ErrViewingNotFound
	}
	return cloneViewing(v), nil
}

func (s *Store) GetViewingByIdempotencyKey(ctx context.Context, key string) (*domain.Viewing, error) {
	s.mu.RLock()
	id, ok := s.byKey[key]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrViewingNotFound
	}
	return s.GetViewing(ctx, id)
}

func (s *Store) DeleteViewing(_ context.Context, id, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.viewings[id]
	if !ok || v.OwnerID != ownerID {
		return domain.ErrViewingNotFound
	}
	if v.IdempotencyKey != nil {
		delete(s.byKey, *v.IdempotencyKey)
	}
	delete(s.viewings, id)
	return nil
}

func (s *Store) ListFeed(ctx context.Context, f feed.Filter, b *feed.Boundary, dir feed.Direction, n int) ([]feed.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.match(f, func(v *domain.Viewing) bool {
		return b == nil || b.Admits(v)
	})
	sortViewings(matched, dir)
	if len(matched) > n {
		matched = matched[:n]
	}
	return joinRows(f, matched), nil
}

func (s *Store) ListOwned(ctx context.Context, f feed.Filter, offset, limit int) ([]feed.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	f.Scope = feed.ScopeMine
	matched := s.match(f, nil)
	sortViewings(matched, feed.Desc)
	if offset >= len(matched) {
		return []feed.Row{}, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return joinRows(f, matched), nil
}

func (s *Store) match(f feed.Filter, extra func(*domain.Viewing) bool) []*domain.Viewing {
	var out []*domain.Viewing
	for _, v := range s.viewings {
		if !f.Match(v) {
			continue
		}
		if extra != nil && !extra(v) {
			continue
		}
		out = append(out, cloneViewing(v))
	}
	return out
}

// joinRows mirrors the SQL visibility join: one row per visible circle, or
// a single circle-less row for records seen only through ownership.
func joinRows(f feed.Filter, viewings []*domain.Viewing) []feed.Row {
	rows := make([]feed.Row, 0, len(viewings))
	for _, v := range viewings {
		circles := f.VisibleCircles(v)
		if len(circles) == 0 {
			rows = append(rows, feed.Row{Viewing: *v})
			continue
		}
		for _, c := range circles {
			rows = append(rows, feed.Row{Viewing: *v, CircleID: c})
		}
	}
	return rows
}

func sortViewings(vs []*domain.Viewing, dir feed.Direction) {
	sort.Slice(vs, func(i, j int) bool {
		if dir == feed.Asc {
			return feed.Less(vs[i].CreatedAt, vs[i].ID, vs[j].CreatedAt, vs[j].ID)
		}
		return feed.Less(vs[j].CreatedAt, vs[j].ID, vs[i].CreatedAt, vs[i].ID)
	})
}

func cloneViewing(v *domain.Viewing) *domain.Viewing {
	c := *v
	c.CircleIDs = append([]string(nil), v.CircleIDs...)
	return &c
}
