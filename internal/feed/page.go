package feed

import "github.com/actuallystonmai/viewing-service/internal/domain"

type Page struct {
	Items      []domain.Viewing `json:"items"`
	NextCursor *string          `json:"nextCursor"`
	HasMore    bool             `json:"hasMore"`
	Limit      int              `json:"limit"`
	Sort       Direction        `json:"sort"`
}

// Assemble builds a page from up to limit+1 deduplicated items. The extra
// item only signals that more exist; the cursor points at the last item kept.
func Assemble(items []domain.Viewing, limit int, dir Direction, codec *Codec) Page {
	p := Page{Limit: limit, Sort: dir}

	if len(items) > limit {
		p.HasMore = true
		items = items[:limit]
	}
	if items == nil {
		items = []domain.Viewing{}
	}
	p.Items = items

	if p.HasMore && len(items) > 0 {
		next := codec.Encode(items[len(items)-1])
		p.NextCursor = &next
	} else {
		p.HasMore = false
	}
	return p
}
