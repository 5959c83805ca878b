package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/actuallystonmai/viewing-service/internal/domain"
	"github.com/actuallystonmai/viewing-service/internal/feed"
)

func TestBuildFeedQueryMineFirstPage(t *testing.T) {
	f := feed.Filter{ViewerID: "user-1", Scope: feed.ScopeMine}

	sql, args := buildFeedQuery(f, nil, feed.Desc, 21, 0)

	if !strings.Contains(sql, "v.owner_id = $1") {
		t.Errorf("expected owner predicate, got:\n%s", sql)
	}
	if !strings.Contains(sql, "ORDER BY v.created_at DESC, v.id DESC") {
		t.Errorf("expected desc ordering with id tie-break, got:\n%s", sql)
	}
	if !strings.Contains(sql, "LIMIT $2") {
		t.Errorf("expected limit placeholder $2, got:\n%s", sql)
	}
	if strings.Contains(sql, "(v.created_at, v.id)") {
		t.Errorf("first page must not have a boundary predicate:\n%s", sql)
	}
	if len(args) != 3 {
		t.Fatalf("expected 3 args, got %d: %v", len(args), args)
	}
	if args[0] != "user-1" || args[1] != 21 {
		t.Errorf("unexpected args %v", args)
	}
}

func TestBuildFeedQueryBoundaryDirection(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	id := "0190f3e0-0000-7000-8000-000000000001"

	tests := []struct {
		dir  feed.Direction
		want string
		ord  string
	}{
		{feed.Desc, "(v.created_at, v.id) < ($2, $3::uuid)", "v.created_at DESC, v.id DESC"},
		{feed.Asc, "(v.created_at, v.id) > ($2, $3::uuid)", "v.created_at ASC, v.id ASC"},
	}

	for _, tt := range tests {
		b := &feed.Boundary{CreatedAt: ts, ID: id, Dir: tt.dir}
		sql, args := buildFeedQuery(feed.Filter{ViewerID: "u"}, b, tt.dir, 3, 0)

		if !strings.Contains(sql, tt.want) {
			t.Errorf("%s: expected %q in:\n%s", tt.dir, tt.want, sql)
		}
		if !strings.Contains(sql, tt.ord) {
			t.Errorf("%s: expected ordering %q in:\n%s", tt.dir, tt.ord, sql)
		}
		if args[1] != ts || args[2] != id {
			t.Errorf("%s: unexpected boundary args %v", tt.dir, args)
		}
	}
}

func TestBuildFeedQueryFilters(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	until := from.AddDate(0, 1, 0)
	f := feed.Filter{
		ViewerID:     "u",
		Scope:        feed.ScopeAll,
		Circles:      []string{"c1", "c2"},
		OnlyCircle:   "c1",
		Type:         domain.ContentTV,
		CreatedFrom:  &from,
		CreatedUntil: &until,
		WatchedFrom:  &from,
	}

	sql, args := buildFeedQuery(f, nil, feed.Desc, 10, 0)

	for _, want := range []string{
		"(v.owner_id = $1 OR EXISTS",
		"x.circle_id = ANY($2::uuid[])",
		"oc.circle_id = $3::uuid",
		"v.content_type = $4",
		"v.created_at >= $5",
		"v.created_at < $6",
		"v.watched_at >= $7",
		"LIMIT $8",
		"vc.circle_id = ANY($9::uuid[])",
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("expected %q in:\n%s", want, sql)
		}
	}
	if len(args) != 9 {
		t.Errorf("expected 9 args, got %d", len(args))
	}
}

func TestBuildFeedQueryOffset(t *testing.T) {
	sql, args := buildFeedQuery(feed.Filter{ViewerID: "u"}, nil, feed.Desc, 20, 40)

	if !strings.Contains(sql, "LIMIT $2 OFFSET $3") {
		t.Errorf("expected offset paging, got:\n%s", sql)
	}
	if args[2] != 40 {
		t.Errorf("expected offset arg 40, got %v", args[2])
	}
}

func TestCirclesArgNeverNil(t *testing.T) {
	if got := circlesArg(nil); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}
