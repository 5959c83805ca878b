package service

import (
	"context"
	"time"

	"github.com/actuallystonmai/viewing-service/internal/domain"
	"github.com/actuallystonmai/viewing-service/internal/feed"
	"github.com/actuallystonmai/viewing-service/internal/logging"
	"go.opentelemetry.io/otel"
)

const (
	DefaultLimit       = 20
	MaxLimit           = 100
	DefaultLegacyLimit = 20
	MaxLegacyLimit     = 100
	MaxLegacyPage      = 10000
)

var tracer = otel.Tracer("github.com/actuallystonmai/viewing-service/internal/service")

// Store is the storage port. Implementations must enforce idempotency key
// uniqueness atomically and report collisions as
// domain.ErrDuplicateIdempotencyKey.
type Store interface {
	// InsertViewing stores v with its circle links and sets v.CreatedAt.
	InsertViewing(ctx context.Context, v *domain.Viewing) error
	GetViewing(ctx context.Context, id string) (*domain.Viewing, error)
	GetViewingByIdempotencyKey(ctx context.Context, key string) (*domain.Viewing, error)
	// DeleteViewing removes the viewing only if ownerID owns it.
	DeleteViewing(ctx context.Context, id, ownerID string) error
	// ListFeed returns the visibility-join rows of the first n distinct
	// viewings matching f and admitted by b (nil for the first page), in
	// dir order.
	ListFeed(ctx context.Context, f feed.Filter, b *feed.Boundary, dir feed.Direction, n int) ([]feed.Row, error)
	ListOwned(ctx context.Context, f feed.Filter, offset, limit int) ([]feed.Row, error)

	CreateCircle(ctx context.Context, c *domain.Circle) error
	GetCircle(ctx context.Context, id string) (*domain.Circle, error)
	ListCircles(ctx context.Context, userID string) ([]domain.Circle, error)
	AddCircleMember(ctx context.Context, circleID, userID string) error
	RemoveCircleMember(ctx context.Context, circleID, userID string) error
	UserCircleIDs(ctx context.Context, userID string) ([]string, error)

	Ping(ctx context.Context) error
}

// MembershipCache caches a user's circle ids.
type MembershipCache interface {
	GetCircles(ctx context.Context, userID string) ([]string, bool, error)
	SetCircles(ctx context.Context, userID string, circleIDs []string) error
	ClearCircles(ctx context.Context, userID string) error
}

// Publisher announces viewing lifecycle events.
type Publisher interface {
	PublishViewingCreated(ctx context.Context, v *domain.Viewing) error
	PublishViewingDeleted(ctx context.Context, id, ownerID string) error
}

type Service struct {
	store        Store
	cache        MembershipCache
	publisher    Publisher
	codec        *feed.Codec
	queryTimeout time.Duration
}

func NewService(store Store, cache MembershipCache, pub Publisher, codec *feed.Codec, queryTimeout time.Duration) *Service {
	return &Service{
		store:        store,
		cache:        cache,
		publisher:    pub,
		codec:        codec,
		queryTimeout: queryTimeout,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// viewerCircles resolves the viewer's memberships, cache first.
func (s *Service) viewerCircles(ctx context.Context, userID string) ([]string, error) {
	ids, found, err := s.cache.GetCircles(ctx, userID)
	if err != nil {
		logging.Warn().Err(err).Str("user_id", userID).Msg("membership cache get failed")
	}
	if found {
		return ids, nil
	}

	ids, err = s.store.UserCircleIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetCircles(ctx, userID, ids); err != nil {
		logging.Warn().Err(err).Str("user_id", userID).Msg("membership cache set failed")
	}
	return ids, nil
}
