package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/actuallystonmai/viewing-service/internal/cache"
	"github.com/actuallystonmai/viewing-service/internal/domain"
	"github.com/actuallystonmai/viewing-service/internal/events"
	"github.com/actuallystonmai/viewing-service/internal/feed"
	"github.com/actuallystonmai/viewing-service/internal/memstore"
)

type recordingPublisher struct {
	mu      sync.Mutex
	created []string
	deleted []string
}

func (p *recordingPublisher) PublishViewingCreated(_ context.Context, v *domain.Viewing) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, v.ID)
	return nil
}

func (p *recordingPublisher) PublishViewingDeleted(_ context.Context, id, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, id)
	return nil
}

// mapCache is a MembershipCache that never expires entries.
type mapCache struct {
	mu sync.Mutex
	m  map[string][]string
}

func (c *mapCache) GetCircles(_ context.Context, userID string) ([]string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids, ok := c.m[userID]
	return ids, ok, nil
}

func (c *mapCache) SetCircles(_ context.Context, userID string, ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[userID] = ids
	return nil
}

func (c *mapCache) ClearCircles(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, userID)
	return nil
}

var _ MembershipCache = cache.Nop{}
var _ Publisher = events.Nop{}

func newTestService(opts ...memstore.Option) (*Service, *memstore.Store) {
	store := memstore.New(opts...)
	return NewService(store, cache.Nop{}, events.Nop{}, feed.NewCodec("test-secret"), 5*time.Second), store
}

// sequenceClock returns the given instants in order, then keeps the last.
func sequenceClock(times ...time.Time) memstore.Option {
	i := 0
	return memstore.WithClock(func() time.Time {
		t := times[min(i, len(times)-1)]
		i++
		return t
	})
}

func movie(externalID string) domain.NewViewing {
	return domain.NewViewing{Type: domain.ContentMovie, ExternalID: externalID}
}

func mustCreate(t *testing.T, s *Service, owner string, in domain.NewViewing) *domain.Viewing {
	t.Helper()
	v, _, err := s.CreateViewing(context.Background(), owner, in)
	if err != nil {
		t.Fatalf("CreateViewing failed: %v", err)
	}
	return v
}

func mustCircle(t *testing.T, s *Service, owner string, members ...string) string {
	t.Helper()
	ctx := context.Background()
	c, err := s.CreateCircle(ctx, owner, "circle")
	if err != nil {
		t.Fatalf("CreateCircle failed: %v", err)
	}
	for _, m := range members {
		if err := s.AddCircleMember(ctx, owner, c.ID, m); err != nil {
			t.Fatalf("AddCircleMember failed: %v", err)
		}
	}
	return c.ID
}

func ids(vs []domain.Viewing) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// slowStore blocks membership lookups until the caller's context ends.
type slowStore struct {
	*memstore.Store
}

func (s slowStore) UserCircleIDs(ctx context.Context, _ string) ([]string, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// countingStore counts membership writes that reach storage.
type countingStore struct {
	*memstore.Store
	mu      sync.Mutex
	adds    int
	removes int
}

func (s *countingStore) AddCircleMember(ctx context.Context, circleID, userID string) error {
	s.mu.Lock()
	s.adds++
	s.mu.Unlock()
	return s.Store.AddCircleMember(ctx, circleID, userID)
}

func (s *countingStore) RemoveCircleMember(ctx context.Context, circleID, userID string) error {
	s.mu.Lock()
	s.removes++
	s.mu.Unlock()
	return s.Store.RemoveCircleMember(ctx, circleID, userID)
}
