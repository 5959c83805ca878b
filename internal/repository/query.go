package repository

import (
	"fmt"
	"strings"

	"github.com/actuallystonmai/viewing-service/internal/feed"
)

const viewingColumns = `v.id, v.owner_id, v.content_type, v.external_id, v.rating, v.comment,
		v.watched_at, v.season_number, v.episode_number, v.created_at`

// query accumulates WHERE clauses and positional arguments.
type query struct {
	where []string
	args  []any
}

func (q *query) arg(v any) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

func (q *query) and(clause string) {
	q.where = append(q.where, clause)
}

func (q *query) whereSQL() string {
	if len(q.where) == 0 {
		return "TRUE"
	}
	return strings.Join(q.where, "\n\t\t  AND ")
}

// applyFilter renders f over the viewings alias v.
func (q *query) applyFilter(f feed.Filter) {
	sharedWithViewer := func() string {
		return fmt.Sprintf(`EXISTS (SELECT 1 FROM viewing_circles x
			WHERE x.viewing_id = v.id AND x.circle_id = ANY(%s::uuid[]))`, q.arg(circlesArg(f.Circles)))
	}

	switch f.Scope {
	case feed.ScopeCircles:
		q.and(sharedWithViewer())
	case feed.ScopeAll:
		owner := q.arg(f.ViewerID)
		q.and(fmt.Sprintf("(v.owner_id = %s OR %s)", owner, sharedWithViewer()))
	default:
		q.and("v.owner_id = " + q.arg(f.ViewerID))
	}

	if f.OnlyCircle != "" {
		q.and(fmt.Sprintf(`EXISTS (SELECT 1 FROM viewing_circles oc
			WHERE oc.viewing_id = v.id AND oc.circle_id = %s::uuid)`, q.arg(f.OnlyCircle)))
	}
	if f.Type != "" {
		q.and("v.content_type = " + q.arg(string(f.Type)))
	}
	if f.CreatedFrom != nil {
		q.and("v.created_at >= " + q.arg(*f.CreatedFrom))
	}
	if f.CreatedUntil != nil {
		q.and("v.created_at < " + q.arg(*f.CreatedUntil))
	}
	if f.WatchedFrom != nil {
		q.and("v.watched_at >= " + q.arg(*f.WatchedFrom))
	}
	if f.WatchedUntil != nil {
		q.and("v.watched_at < " + q.arg(*f.WatchedUntil))
	}
}

func (q *query) applyBoundary(b *feed.Boundary) {
	if b == nil {
		return
	}
	op := "<"
	if b.Dir == feed.Asc {
		op = ">"
	}
	q.and(fmt.Sprintf("(v.created_at, v.id) %s (%s, %s::uuid)", op, q.arg(b.CreatedAt), q.arg(b.ID)))
}

func orderBy(dir feed.Direction, alias string) string {
	if dir == feed.Asc {
		return fmt.Sprintf("%[1]s.created_at ASC, %[1]s.id ASC", alias)
	}
	return fmt.Sprintf("%[1]s.created_at DESC, %[1]s.id DESC", alias)
}

// buildFeedQuery selects the first n distinct viewings in a CTE, then joins
// them back to the viewer's circles. The join can return several rows per
// viewing; the page size is fixed before it, so duplicates never eat into n.
func buildFeedQuery(f feed.Filter, b *feed.Boundary, dir feed.Direction, n, offset int) (string, []any) {
	q := &query{}
	q.applyFilter(f)
	q.applyBoundary(b)

	limit := q.arg(n)
	paging := "LIMIT " + limit
	if offset > 0 {
		paging += " OFFSET " + q.arg(offset)
	}
	circles := q.arg(circlesArg(f.Circles))

	sql := fmt.Sprintf(`WITH page AS (
		SELECT %s
		FROM viewings v
		WHERE %s
		ORDER BY %s
		%s
	)
	SELECT p.id::text, p.owner_id, p.content_type, p.external_id, p.rating, p.comment,
		p.watched_at, p.season_number, p.episode_number, p.created_at,
		COALESCE(vc.circle_id::text, '')
	FROM page p
	LEFT JOIN viewing_circles vc
		ON vc.viewing_id = p.id AND vc.circle_id = ANY(%s::uuid[])
	ORDER BY %s, vc.circle_id`,
		viewingColumns, q.whereSQL(), orderBy(dir, "v"), paging, circles, orderBy(dir, "p"))

	return sql, q.args
}

func circlesArg(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
