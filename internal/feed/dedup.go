package feed

import (
	"sort"

	"github.com/actuallystonmai/viewing-service/internal/domain"
)

// Row is one result of the per-membership visibility join: a viewing paired
// with a circle it is seen through. CircleID is empty for rows visible by
// ownership alone.
type Row struct {
	Viewing  domain.Viewing
	CircleID string
}

// Collapse keeps the first occurrence of every viewing id, in input order,
// and merges the circle ids of all its rows into CircleIDs.
func Collapse(rows []Row) []domain.Viewing {
	out := make([]domain.Viewing, 0, len(rows))
	index := make(map[string]int, len(rows))
	seen := make(map[string]map[string]struct{}, len(rows))

	for _, r := range rows {
		i, ok := index[r.Viewing.ID]
		if !ok {
			v := r.Viewing
			v.CircleIDs = nil
			i = len(out)
			index[v.ID] = i
			seen[v.ID] = make(map[string]struct{})
			out = append(out, v)
		}
		if r.CircleID == "" {
			continue
		}
		if _, dup := seen[r.Viewing.ID][r.CircleID]; dup {
			continue
		}
		seen[r.Viewing.ID][r.CircleID] = struct{}{}
		out[i].CircleIDs = append(out[i].CircleIDs, r.CircleID)
	}

	for i := range out {
		if out[i].CircleIDs == nil {
			out[i].CircleIDs = []string{}
		}
		sort.Strings(out[i].CircleIDs)
	}
	return out
}
