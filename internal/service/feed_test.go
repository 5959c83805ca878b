package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/actuallystonmai/viewing-service/internal/cache"
	"github.com/actuallystonmai/viewing-service/internal/domain"
	"github.com/actuallystonmai/viewing-service/internal/events"
	"github.com/actuallystonmai/viewing-service/internal/feed"
	"github.com/actuallystonmai/viewing-service/internal/memstore"
)

func TestListFeedPagesThroughTies(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc, _ := newTestService(sequenceClock(base, base, base.Add(time.Second), base.Add(2*time.Second), base.Add(2*time.Second)))
	ctx := context.Background()

	var r []*domain.Viewing
	for i := range 5 {
		r = append(r, mustCreate(t, svc, "u1", movie(fmt.Sprintf("m%d", i+1))))
	}

	want := [][]string{
		{r[4].ID, r[3].ID},
		{r[2].ID, r[1].ID},
		{r[0].ID},
	}

	f := feed.Filter{Scope: feed.ScopeMine}
	cursor := ""
	for i, expected := range want {
		page, err := svc.ListFeed(ctx, "u1", f, cursor, feed.Desc, 2)
		if err != nil {
			t.Fatalf("page %d: %v", i+1, err)
		}
		if got := ids(page.Items); !equalIDs(got, expected) {
			t.Errorf("page %d: expected %v, got %v", i+1, expected, got)
		}

		last := i == len(want)-1
		if page.HasMore == last || (page.NextCursor == nil) != last {
			t.Errorf("page %d: hasMore=%v cursor=%v", i+1, page.HasMore, page.NextCursor)
		}
		if page.NextCursor != nil {
			cursor = *page.NextCursor
		}
	}
}

func TestListFeedCompleteInBothDirections(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	offsets := []int{0, 0, 0, 1, 3, 3, 4, 9, 9, 9, 9}
	var times []time.Time
	for _, o := range offsets {
		times = append(times, base.Add(time.Duration(o)*time.Millisecond))
	}
	svc, _ := newTestService(sequenceClock(times...))
	ctx := context.Background()

	for i := range offsets {
		mustCreate(t, svc, "u1", movie(fmt.Sprintf("m%d", i)))
	}

	for _, dir := range []feed.Direction{feed.Asc, feed.Desc} {
		var all []domain.Viewing
		cursor := ""
		for pages := 0; ; pages++ {
			if pages > len(offsets) {
				t.Fatalf("%s: pagination did not terminate", dir)
			}
			page, err := svc.ListFeed(ctx, "u1", feed.Filter{}, cursor, dir, 3)
			if err != nil {
				t.Fatalf("%s: %v", dir, err)
			}
			all = append(all, page.Items...)
			if !page.HasMore {
				break
			}
			cursor = *page.NextCursor
		}

		// Every record exactly once, in strict sort order
		if len(all) != len(offsets) {
			t.Fatalf("%s: expected %d items, got %d", dir, len(offsets), len(all))
		}
		for i := 1; i < len(all); i++ {
			prev, cur := all[i-1], all[i]
			inOrder := feed.Less(prev.CreatedAt, prev.ID, cur.CreatedAt, cur.ID)
			if dir == feed.Desc {
				inOrder = feed.Less(cur.CreatedAt, cur.ID, prev.CreatedAt, prev.ID)
			}
			if !inOrder {
				t.Errorf("%s: items %d and %d out of order", dir, i-1, i)
			}
		}
	}
}

func TestListFeedDeduplicatesAcrossCircles(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	c1 := mustCircle(t, svc, "owner", "viewer")
	c2 := mustCircle(t, svc, "owner", "viewer")

	older := movie("older")
	older.CircleIDs = []string{c1}
	mustCreate(t, svc, "owner", older)
	in := movie("shared")
	in.CircleIDs = []string{c1, c2}
	shared := mustCreate(t, svc, "owner", in)

	page, err := svc.ListFeed(ctx, "viewer", feed.Filter{Scope: feed.ScopeCircles}, "", feed.Desc, 1)
	if err != nil {
		t.Fatalf("ListFeed failed: %v", err)
	}

	// Shared record appears once, with both badges, and the limit counts it once
	if len(page.Items) != 1 || page.Items[0].ID != shared.ID {
		t.Fatalf("expected only the shared record, got %v", ids(page.Items))
	}
	wantCircles := []string{c1, c2}
	if c1 > c2 {
		wantCircles = []string{c2, c1}
	}
	if !equalIDs(page.Items[0].CircleIDs, wantCircles) {
		t.Errorf("expected circles %v, got %v", wantCircles, page.Items[0].CircleIDs)
	}
	if !page.HasMore {
		t.Error("expected another page")
	}

	next, err := svc.ListFeed(ctx, "viewer", feed.Filter{Scope: feed.ScopeCircles}, *page.NextCursor, feed.Desc, 1)
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(next.Items) != 1 || next.Items[0].ID == shared.ID || next.HasMore {
		t.Errorf("unexpected second page: %v hasMore=%v", ids(next.Items), next.HasMore)
	}
}

func TestListFeedBadgesOnlyViewerCircles(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	visible := mustCircle(t, svc, "owner", "viewer")
	hidden := mustCircle(t, svc, "owner")

	in := movie("m")
	in.CircleIDs = []string{visible, hidden}
	mustCreate(t, svc, "owner", in)

	page, err := svc.ListFeed(ctx, "viewer", feed.Filter{Scope: feed.ScopeAll}, "", feed.Desc, 10)
	if err != nil {
		t.Fatalf("ListFeed failed: %v", err)
	}
	if len(page.Items) != 1 || !equalIDs(page.Items[0].CircleIDs, []string{visible}) {
		t.Errorf("expected only the viewer's circle, got %+v", page.Items)
	}
}

func TestListFeedScopes(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	c := mustCircle(t, svc, "friend", "me")
	own := mustCreate(t, svc, "me", movie("own"))
	sharedIn := movie("shared")
	sharedIn.CircleIDs = []string{c}
	shared := mustCreate(t, svc, "friend", sharedIn)
	mustCreate(t, svc, "friend", movie("private"))

	cases := map[feed.Scope][]string{
		feed.ScopeMine:    {own.ID},
		feed.ScopeCircles: {shared.ID},
		feed.ScopeAll:     {shared.ID, own.ID},
	}
	for scope, want := range cases {
		page, err := svc.ListFeed(ctx, "me", feed.Filter{Scope: scope}, "", feed.Desc, 10)
		if err != nil {
			t.Fatalf("%s: %v", scope, err)
		}
		if got := ids(page.Items); !equalIDs(got, want) {
			t.Errorf("%s: expected %v, got %v", scope, want, got)
		}
	}
}

func TestListFeedOnlyCircleRequiresMembership(t *testing.T) {
	svc, _ := newTestService()
	c := mustCircle(t, svc, "owner")

	_, err := svc.ListFeed(context.Background(), "stranger", feed.Filter{Scope: feed.ScopeAll, OnlyCircle: c}, "", feed.Desc, 10)
	if !errors.Is(err, domain.ErrNotCircleMember) {
		t.Errorf("expected ErrNotCircleMember, got %v", err)
	}
}

func TestListFeedRejectsBadCursors(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for i := range 3 {
		mustCreate(t, svc, "u1", movie(fmt.Sprintf("m%d", i)))
	}
	page, err := svc.ListFeed(ctx, "u1", feed.Filter{}, "", feed.Desc, 1)
	if err != nil || page.NextCursor == nil {
		t.Fatalf("first page: %v", err)
	}
	cursor := *page.NextCursor

	// Tampered token
	tampered := strings.Replace(cursor, cursor[:4], "AAAA", 1)
	if _, err := svc.ListFeed(ctx, "u1", feed.Filter{}, tampered, feed.Desc, 1); !errors.Is(err, domain.ErrInvalidCursor) {
		t.Errorf("tampered: expected ErrInvalidCursor, got %v", err)
	}

	// Another viewer cannot reuse a cursor pointing at a record they cannot see
	if _, err := svc.ListFeed(ctx, "u2", feed.Filter{}, cursor, feed.Desc, 1); !errors.Is(err, domain.ErrInvalidCursor) {
		t.Errorf("out of scope: expected ErrInvalidCursor, got %v", err)
	}

	// Deleting the referenced record invalidates the cursor
	if err := svc.DeleteViewing(ctx, "u1", page.Items[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.ListFeed(ctx, "u1", feed.Filter{}, cursor, feed.Desc, 1); !errors.Is(err, domain.ErrInvalidCursor) {
		t.Errorf("deleted: expected ErrInvalidCursor, got %v", err)
	}
}

func TestListFeedSeesMembershipChanges(t *testing.T) {
	store := memstore.New()
	svc := NewService(store, &mapCache{m: map[string][]string{}}, events.Nop{}, feed.NewCodec("s"), 5*time.Second)
	ctx := context.Background()

	c := mustCircle(t, svc, "owner")
	in := movie("m")
	in.CircleIDs = []string{c}
	mustCreate(t, svc, "owner", in)

	// Warm the cache with no memberships
	page, _ := svc.ListFeed(ctx, "viewer", feed.Filter{Scope: feed.ScopeCircles}, "", feed.Desc, 10)
	if len(page.Items) != 0 {
		t.Fatalf("expected nothing before joining, got %v", ids(page.Items))
	}

	if err := svc.AddCircleMember(ctx, "owner", c, "viewer"); err != nil {
		t.Fatalf("AddCircleMember: %v", err)
	}
	page, _ = svc.ListFeed(ctx, "viewer", feed.Filter{Scope: feed.ScopeCircles}, "", feed.Desc, 10)
	if len(page.Items) != 1 {
		t.Errorf("expected shared record after joining, got %v", ids(page.Items))
	}
}

func TestListFeedClampsLimit(t *testing.T) {
	svc, _ := newTestService()
	page, err := svc.ListFeed(context.Background(), "u1", feed.Filter{}, "", feed.Desc, 1000)
	if err != nil {
		t.Fatalf("ListFeed failed: %v", err)
	}
	if page.Limit != MaxLimit {
		t.Errorf("expected limit %d, got %d", MaxLimit, page.Limit)
	}
}

func TestListOwnViewings(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	c := mustCircle(t, svc, "friend", "me")
	var mine []*domain.Viewing
	for i := range 5 {
		mine = append(mine, mustCreate(t, svc, "me", movie(fmt.Sprintf("m%d", i))))
	}
	other := movie("other")
	other.CircleIDs = []string{c}
	mustCreate(t, svc, "friend", other)

	items, err := svc.ListOwnViewings(ctx, "me", feed.Filter{Scope: feed.ScopeAll}, 2, 2)
	if err != nil {
		t.Fatalf("ListOwnViewings failed: %v", err)
	}

	// Newest first, page 2 of size 2, own records only
	want := []string{mine[2].ID, mine[1].ID}
	if got := ids(items); !equalIDs(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestListFeedQueryTimeout(t *testing.T) {
	store := slowStore{Store: memstore.New()}
	svc := NewService(store, cache.Nop{}, events.Nop{}, feed.NewCodec("s"), 20*time.Millisecond)

	start := time.Now()
	_, err := svc.ListFeed(context.Background(), "u1", feed.Filter{Scope: feed.ScopeAll}, "", feed.Desc, 10)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("query ran for %v, timeout not applied", elapsed)
	}
}
