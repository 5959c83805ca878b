package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/actuallystonmai/viewing-service/internal/cache"
	"github.com/actuallystonmai/viewing-service/internal/domain"
	"github.com/actuallystonmai/viewing-service/internal/events"
	"github.com/actuallystonmai/viewing-service/internal/feed"
	"github.com/actuallystonmai/viewing-service/internal/memstore"
)

func TestCreateCircle(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	c, err := svc.CreateCircle(ctx, "owner", "  friends  ")
	if err != nil {
		t.Fatalf("CreateCircle failed: %v", err)
	}
	if c.Name != "friends" || !c.IsMember("owner") {
		t.Errorf("unexpected circle: %+v", c)
	}

	for _, name := range []string{"", "   ", strings.Repeat("x", 101)} {
		var ferr *domain.FieldError
		if _, err := svc.CreateCircle(ctx, "owner", name); !errors.As(err, &ferr) || ferr.Field != "name" {
			t.Errorf("name %q: expected name field error, got %v", name, err)
		}
	}
}

func TestListCircles(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	mustCircle(t, svc, "a", "b")
	mustCircle(t, svc, "c")

	circles, err := svc.ListCircles(ctx, "b")
	if err != nil {
		t.Fatalf("ListCircles failed: %v", err)
	}
	if len(circles) != 1 || circles[0].OwnerID != "a" {
		t.Errorf("expected a's circle, got %+v", circles)
	}
}

func TestAddCircleMemberOwnerOnly(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	c := mustCircle(t, svc, "owner", "member")

	if err := svc.AddCircleMember(ctx, "member", c, "friend"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if err := svc.AddCircleMember(ctx, "owner", "bad-id", "friend"); !errors.Is(err, domain.ErrInvalidID) {
		t.Errorf("expected ErrInvalidID, got %v", err)
	}
	if err := svc.AddCircleMember(ctx, "owner", "6f1c1c1e-2f7a-4d7b-9a53-4c1d2e3f4a5b", "friend"); !errors.Is(err, domain.ErrCircleNotFound) {
		t.Errorf("expected ErrCircleNotFound, got %v", err)
	}

	// Adding twice is a no-op
	if err := svc.AddCircleMember(ctx, "owner", c, "member"); err != nil {
		t.Errorf("re-adding member: %v", err)
	}
}

func TestRemoveCircleMember(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	c := mustCircle(t, svc, "owner", "a", "b")

	if err := svc.RemoveCircleMember(ctx, "a", c, "b"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("member removing another: expected ErrForbidden, got %v", err)
	}
	if err := svc.RemoveCircleMember(ctx, "a", c, "a"); err != nil {
		t.Errorf("member leaving: %v", err)
	}
	if err := svc.RemoveCircleMember(ctx, "owner", c, "b"); err != nil {
		t.Errorf("owner removing member: %v", err)
	}

	var ferr *domain.FieldError
	if err := svc.RemoveCircleMember(ctx, "owner", c, "owner"); !errors.As(err, &ferr) {
		t.Errorf("owner removal: expected field error, got %v", err)
	}

	circles, _ := svc.ListCircles(ctx, "a")
	if len(circles) != 0 {
		t.Errorf("a should have left, got %+v", circles)
	}
}

func TestMembershipNoOpsSkipStorage(t *testing.T) {
	store := &countingStore{Store: memstore.New()}
	svc := NewService(store, cache.Nop{}, events.Nop{}, feed.NewCodec("s"), time.Second)
	ctx := context.Background()

	c := mustCircle(t, svc, "owner", "member")
	if store.adds != 1 {
		t.Fatalf("expected 1 add, got %d", store.adds)
	}

	// Existing members and non-members need no write
	if err := svc.AddCircleMember(ctx, "owner", c, "member"); err != nil {
		t.Errorf("re-add: %v", err)
	}
	if err := svc.AddCircleMember(ctx, "owner", c, "owner"); err != nil {
		t.Errorf("add owner: %v", err)
	}
	if err := svc.RemoveCircleMember(ctx, "owner", c, "stranger"); err != nil {
		t.Errorf("remove non-member: %v", err)
	}
	if store.adds != 1 || store.removes != 0 {
		t.Errorf("expected no extra writes, got adds=%d removes=%d", store.adds, store.removes)
	}

	if err := svc.RemoveCircleMember(ctx, "owner", c, "member"); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	if store.removes != 1 {
		t.Errorf("expected 1 remove, got %d", store.removes)
	}
}
