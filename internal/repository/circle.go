package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/actuallystonmai/viewing-service/internal/domain"
	"github.com/jackc/pgx/v5"
)

const selectCircle = `SELECT c.id::text, c.name, c.owner_id, c.created_at,
		COALESCE(array_agg(m.user_id ORDER BY m.user_id) FILTER (WHERE m.user_id IS NOT NULL), '{}')
	FROM circles c
	LEFT JOIN circle_members m ON m.circle_id = c.id`

func (r *Repository) CreateCircle(ctx context.Context, c *domain.Circle) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create circle: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO circles (id, name, owner_id, created_at) VALUES ($1::uuid, $2, $3, $4)`,
		c.ID, c.Name, c.OwnerID, c.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert circle %s: %w", c.ID, err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO circle_members (circle_id, user_id) VALUES ($1::uuid, $2)`,
		c.ID, c.OwnerID,
	); err != nil {
		return fmt.Errorf("insert circle owner %s: %w", c.ID, err)
	}
	return tx.Commit(ctx)
}

func (r *Repository) GetCircle(ctx context.Context, id string) (*domain.Circle, error) {
	c := &domain.Circle{}
	err := r.pool.QueryRow(ctx, selectCircle+` WHERE c.id = $1::uuid GROUP BY c.id`, id).
		Scan(&c.ID, &c.Name, &c.OwnerID, &c.CreatedAt, &c.Members)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCircleNotFound
		}
		return nil, fmt.Errorf("query circle %s: %w", id, err)
	}
	return c, nil
}

func (r *Repository) ListCircles(ctx context.Context, userID string) ([]domain.Circle, error) {
	rows, err := r.pool.Query(ctx, selectCircle+`
		WHERE c.id IN (SELECT circle_id FROM circle_members WHERE user_id = $1)
		GROUP BY c.id
		ORDER BY c.created_at, c.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query circles for user %s: %w", userID, err)
	}
	defer rows.Close()

	circles := []domain.Circle{}
	for rows.Next() {
		var c domain.Circle
		if err := rows.Scan(&c.ID, &c.Name, &c.OwnerID, &c.CreatedAt, &c.Members); err != nil {
			return nil, fmt.Errorf("scan circle: %w", err)
		}
		circles = append(circles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate circles: %w", err)
	}
	return circles, nil
}

func (r *Repository) AddCircleMember(ctx context.Context, circleID, userID string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO circle_members (circle_id, user_id) VALUES ($1::uuid, $2)
		ON CONFLICT (circle_id, user_id) DO NOTHING`, circleID, userID)
	if err != nil {
		if code, _ := pgCode(err); code == pgForeignKeyViolation {
			return domain.ErrCircleNotFound
		}
		return fmt.Errorf("add member %s to circle %s: %w", userID, circleID, err)
	}
	return nil
}

func (r *Repository) RemoveCircleMember(ctx context.Context, circleID, userID string) error {
	if _, err := r.pool.Exec(ctx,
		`DELETE FROM circle_members WHERE circle_id = $1::uuid AND user_id = $2`, circleID, userID,
	); err != nil {
		return fmt.Errorf("remove member %s from circle %s: %w", userID, circleID, err)
	}
	return nil
}

func (r *Repository) UserCircleIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT circle_id::text FROM circle_members WHERE user_id = $1 ORDER BY circle_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query circle ids for user %s: %w", userID, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan circle id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate circle ids: %w", err)
	}
	return ids, nil
}
