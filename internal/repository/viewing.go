package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/actuallystonmai/viewing-service/internal/domain"
	"github.com/actuallystonmai/viewing-service/internal/feed"
	"github.com/jackc/pgx/v5"
)

const selectViewing = `SELECT v.id::text, v.owner_id, v.content_type, v.external_id, v.rating, v.comment,
		v.watched_at, v.season_number, v.episode_number, v.idempotency_key, v.created_at,
		COALESCE(array_agg(vc.circle_id::text ORDER BY vc.circle_id)
			FILTER (WHERE vc.circle_id IS NOT NULL), '{}')
	FROM viewings v
	LEFT JOIN viewing_circles vc ON vc.viewing_id = v.id`

// InsertViewing writes the viewing and its circle links in one transaction.
// A taken idempotency key surfaces as domain.ErrDuplicateIdempotencyKey.
func (r *Repository) InsertViewing(ctx context.Context, v *domain.Viewing) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert viewing: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO viewings (id, owner_id, content_type, external_id, rating, comment,
			watched_at, season_number, episode_number, idempotency_key)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`,
		v.ID, v.OwnerID, string(v.Type), v.ExternalID, v.Rating, v.Comment,
		v.WatchedAt, v.SeasonNumber, v.EpisodeNumber, v.IdempotencyKey,
	).Scan(&v.CreatedAt)
	if err != nil {
		if code, constraint := pgCode(err); code == pgUniqueViolation && constraint == idempotencyKeyConstraint {
			return domain.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("insert viewing %s: %w", v.ID, err)
	}

	if len(v.CircleIDs) > 0 {
		_, err = tx.Exec(ctx,
			`INSERT INTO viewing_circles (viewing_id, circle_id)
			SELECT $1::uuid, c FROM unnest($2::uuid[]) AS c`,
			v.ID, v.CircleIDs,
		)
		if err != nil {
			if code, _ := pgCode(err); code == pgForeignKeyViolation {
				return domain.ErrCircleNotFound
			}
			return fmt.Errorf("link viewing %s to circles: %w", v.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit viewing %s: %w", v.ID, err)
	}
	return nil
}

func (r *Repository) GetViewing(ctx context.Context, id string) (*domain.Viewing, error) {
	return r.getViewing(ctx, selectViewing+` WHERE v.id = $1::uuid GROUP BY v.id`, id)
}

func (r *Repository) GetViewingByIdempotencyKey(ctx context.Context, key string) (*domain.Viewing, error) {
	return r.getViewing(ctx, selectViewing+` WHERE v.idempotency_key = $1 GROUP BY v.id`, key)
}

func (r *Repository) getViewing(ctx context.Context, sql string, arg any) (*domain.Viewing, error) {
	v := &domain.Viewing{}
	var contentType string

	err := r.pool.QueryRow(ctx, sql, arg).Scan(
		&v.ID, &v.OwnerID, &contentType, &v.ExternalID, &v.Rating, &v.Comment,
		&v.WatchedAt, &v.SeasonNumber, &v.EpisodeNumber, &v.IdempotencyKey, &v.CreatedAt,
		&v.CircleIDs,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrViewingNotFound
		}
		return nil, fmt.Errorf("query viewing %v: %w", arg, err)
	}
	v.Type = domain.ContentType(contentType)
	return v, nil
}

// DeleteViewing deletes only when ownerID still owns the row; circle links
// go with it through ON DELETE CASCADE.
func (r *Repository) DeleteViewing(ctx context.Context, id, ownerID string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM viewings WHERE id = $1::uuid AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete viewing %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrViewingNotFound
	}
	return nil
}

func (r *Repository) ListFeed(ctx context.Context, f feed.Filter, b *feed.Boundary, dir feed.Direction, n int) ([]feed.Row, error) {
	sql, args := buildFeedQuery(f, b, dir, n, 0)
	return r.queryRows(ctx, sql, args)
}

func (r *Repository) ListOwned(ctx context.Context, f feed.Filter, offset, limit int) ([]feed.Row, error) {
	f.Scope = feed.ScopeMine
	sql, args := buildFeedQuery(f, nil, feed.Desc, limit, offset)
	return r.queryRows(ctx, sql, args)
}

func (r *Repository) queryRows(ctx context.Context, sql string, args []any) ([]feed.Row, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query feed: %w", err)
	}
	defer rows.Close()

	var out []feed.Row
	for rows.Next() {
		var (
			row         feed.Row
			contentType string
		)
		v := &row.Viewing
		if err := rows.Scan(
			&v.ID, &v.OwnerID, &contentType, &v.ExternalID, &v.Rating, &v.Comment,
			&v.WatchedAt, &v.SeasonNumber, &v.EpisodeNumber, &v.CreatedAt, &row.CircleID,
		); err != nil {
			return nil, fmt.Errorf("scan feed row: %w", err)
		}
		v.Type = domain.ContentType(contentType)
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feed rows: %w", err)
	}
	return out, nil
}
