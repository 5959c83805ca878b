package seeds

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/actuallystonmai/viewing-service/internal/domain"
	"github.com/actuallystonmai/viewing-service/internal/logging"
	"github.com/actuallystonmai/viewing-service/internal/service"
	"github.com/google/uuid"
)

// Users are fixed so dev tokens can be minted for them with `server token`.
var Users = []string{
	"00000000-0000-4000-8000-000000000001",
	"00000000-0000-4000-8000-000000000002",
	"00000000-0000-4000-8000-000000000003",
	"00000000-0000-4000-8000-000000000004",
	"00000000-0000-4000-8000-000000000005",
}

var titles = map[domain.ContentType][]string{
	domain.ContentMovie: {
		"Die Hard", "Mad Max: Fury Road", "John Wick", "The Dark Knight",
		"The Shawshank Redemption", "Parasite", "Whiplash", "Hot Fuzz",
		"Se7en", "Zodiac", "Blade Runner 2049", "Arrival",
	},
	domain.ContentTV: {
		"The Wire", "Breaking Bad", "Severance", "The Bear",
		"Succession", "Fargo", "Dark", "Mr. Robot",
	},
}

// Setup creates circles and viewings for the fixed users. It goes through the
// service so idempotency keys make reruns a no-op for viewings.
func Setup(ctx context.Context, svc *service.Service) error {
	rng := rand.New(rand.NewSource(42))

	logging.Info().Msg("[seed] creating circles")
	circles, err := seedCircles(ctx, svc)
	if err != nil {
		return fmt.Errorf("seed circles: %w", err)
	}

	logging.Info().Msg("[seed] creating viewings")
	created, err := seedViewings(ctx, svc, rng, circles, 120)
	if err != nil {
		return fmt.Errorf("seed viewings: %w", err)
	}

	logging.Info().Int("viewings", created).Msg("[seed] seeding complete")
	return nil
}

// seedCircles gives the first two users one circle each, shared with the
// next two users. Returns the circles keyed by member.
func seedCircles(ctx context.Context, svc *service.Service) (map[string][]string, error) {
	memberships := make(map[string][]string)
	for i, owner := range Users[:2] {
		c, err := svc.CreateCircle(ctx, owner, fmt.Sprintf("Watch party %d", i+1))
		if err != nil {
			return nil, err
		}
		memberships[owner] = append(memberships[owner], c.ID)

		for _, member := range Users[i+1 : i+3] {
			if err := svc.AddCircleMember(ctx, owner, c.ID, member); err != nil {
				return nil, err
			}
			memberships[member] = append(memberships[member], c.ID)
		}
	}
	return memberships, nil
}

func seedViewings(ctx context.Context, svc *service.Service, rng *rand.Rand, circles map[string][]string, n int) (int, error) {
	types := []domain.ContentType{domain.ContentMovie, domain.ContentTV}
	typeWeights := []float64{0.6, 0.4}

	created := 0
	for i := range n {
		// skew activity towards the first users
		u := int(math.Floor(math.Pow(rng.Float64(), 1.5) * float64(len(Users))))
		owner := Users[min(u, len(Users)-1)]

		ct := weightedChoice(rng, types, typeWeights)
		list := titles[ct]
		title := list[rng.Intn(len(list))]

		watchedAt := time.Now().UTC().AddDate(0, 0, -rng.Intn(180)).Truncate(time.Minute)
		key := fmt.Sprintf("seed-%d", i)

		in := domain.NewViewing{
			Type:           ct,
			ExternalID:     externalID(title),
			WatchedAt:      &watchedAt,
			IdempotencyKey: &key,
		}
		if rng.Float64() < 0.7 {
			rating := rng.Intn(5) + 1
			in.Rating = &rating
		}
		if ct == domain.ContentTV {
			season, episode := rng.Intn(5)+1, rng.Intn(10)+1
			in.SeasonNumber, in.EpisodeNumber = &season, &episode
		}
		if mine := circles[owner]; len(mine) > 0 && rng.Float64() < 0.5 {
			in.CircleIDs = mine[:rng.Intn(len(mine))+1]
		}

		_, isNew, err := svc.CreateViewing(ctx, owner, in)
		if err != nil {
			return created, err
		}
		if isNew {
			created++
		}
	}
	return created, nil
}

// externalID derives a stable catalog id from a title.
func externalID(title string) string {
	slug := strings.ToLower(strings.NewReplacer(" ", "-", ":", "", ".", "", "'", "").Replace(title))
	return "cat:" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(slug)).String()[:8] + ":" + slug
}

func weightedChoice[T any](rng *rand.Rand, choices []T, weights []float64) T {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	r := rng.Float64() * total
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if r <= cumulative {
			return choices[i]
		}
	}
	return choices[len(choices)-1]
}
