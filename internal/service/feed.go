package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/actuallystonmai/viewing-service/internal/domain"
	"github.com/actuallystonmai/viewing-service/internal/feed"
	"github.com/actuallystonmai/viewing-service/internal/metrics"
	"go.opentelemetry.io/otel/attribute"
)

// ListFeed returns one cursor page of viewings visible to viewerID under f.
func (s *Service) ListFeed(ctx context.Context, viewerID string, f feed.Filter, cursor string, dir feed.Direction, limit int) (feed.Page, error) {
	limit = clampLimit(limit, DefaultLimit, MaxLimit)

	ctx, span := tracer.Start(ctx, "Service.ListFeed")
	defer span.End()
	span.SetAttributes(
		attribute.String("feed.scope", string(f.Scope)),
		attribute.String("feed.sort", string(dir)),
		attribute.Int("feed.limit", limit),
		attribute.Bool("feed.cursor", cursor != ""),
	)

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	f, err := s.scopeFilter(ctx, viewerID, f)
	if err != nil {
		return feed.Page{}, err
	}

	var boundary *feed.Boundary
	if cursor != "" {
		boundary, err = s.resolveCursor(ctx, f, cursor, dir)
		if err != nil {
			return feed.Page{}, err
		}
	}

	rows, err := s.store.ListFeed(ctx, f, boundary, dir, limit+1)
	if err != nil {
		return feed.Page{}, fmt.Errorf("list feed: %w", err)
	}

	items := feed.Collapse(rows)
	return feed.Assemble(items, limit, dir, s.codec), nil
}

// ListOwnViewings is the legacy offset listing of the viewer's own records,
// newest first.
func (s *Service) ListOwnViewings(ctx context.Context, viewerID string, f feed.Filter, page, limit int) ([]domain.Viewing, error) {
	limit = clampLimit(limit, DefaultLegacyLimit, MaxLegacyLimit)
	if page < 1 {
		page = 1
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	f.Scope = feed.ScopeMine
	f, err := s.scopeFilter(ctx, viewerID, f)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.ListOwned(ctx, f, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("list own viewings: %w", err)
	}
	return feed.Collapse(rows), nil
}

func (s *Service) scopeFilter(ctx context.Context, viewerID string, f feed.Filter) (feed.Filter, error) {
	f.ViewerID = viewerID
	circles, err := s.viewerCircles(ctx, viewerID)
	if err != nil {
		return f, fmt.Errorf("fetch circles: %w", err)
	}
	f.Circles = circles

	if f.OnlyCircle != "" && !slices.Contains(circles, f.OnlyCircle) {
		return f, fmt.Errorf("%w: %s", domain.ErrNotCircleMember, f.OnlyCircle)
	}
	return f, nil
}

// resolveCursor turns a token into a boundary using the referenced record's
// stored sort key. A record that is gone, or one the viewer cannot see under
// this scope, does not make a usable boundary.
func (s *Service) resolveCursor(ctx context.Context, f feed.Filter, token string, dir feed.Direction) (*feed.Boundary, error) {
	c, err := s.codec.Decode(token)
	if err != nil {
		metrics.InvalidCursors.WithLabelValues("decode").Inc()
		return nil, err
	}

	v, err := s.store.GetViewing(ctx, c.ID)
	if errors.Is(err, domain.ErrViewingNotFound) {
		metrics.InvalidCursors.WithLabelValues("missing").Inc()
		return nil, fmt.Errorf("%w: record %s no longer exists", domain.ErrInvalidCursor, c.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve cursor: %w", err)
	}
	if !f.Visible(v) {
		metrics.InvalidCursors.WithLabelValues("scope").Inc()
		return nil, fmt.Errorf("%w: record outside scope", domain.ErrInvalidCursor)
	}

	return &feed.Boundary{CreatedAt: v.CreatedAt, ID: v.ID, Dir: dir}, nil
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
