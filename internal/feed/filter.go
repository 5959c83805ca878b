package feed

import (
	"time"

	"github.com/actuallystonmai/viewing-service/internal/domain"
	"github.com/actuallystonmai/viewing-service/internal/validation"
)

// Scope selects which ownership/visibility rule a listing uses.
type Scope string

const (
	ScopeMine    Scope = "mine"
	ScopeCircles Scope = "circles"
	ScopeAll     Scope = "all"
)

// Query holds raw listing parameters as they arrive on the URL.
type Query struct {
	Type         string `query:"type" validate:"omitempty,oneof=movie tv"`
	Start        string `query:"start" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	End          string `query:"end" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	WatchedStart string `query:"watchedStart" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	WatchedEnd   string `query:"watchedEnd" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Scope        string `query:"scope" validate:"omitempty,oneof=mine circles all"`
	Circle       string `query:"circle" validate:"omitempty,uuid"`
}

// Filter is the normalized conjunctive predicate over viewings. Time ranges
// are half-open: From is inclusive, Until is exclusive.
type Filter struct {
	ViewerID string
	Scope    Scope

	// Circles are the viewer's memberships. They decide circle visibility
	// and which badges a listed record carries.
	Circles []string

	// OnlyCircle, when set, keeps records shared into that circle only.
	OnlyCircle string

	Type         domain.ContentType
	CreatedFrom  *time.Time
	CreatedUntil *time.Time
	WatchedFrom  *time.Time
	WatchedUntil *time.Time
}

// BuildFilter validates q and turns it into a Filter for viewerID. It never
// returns a partial filter: any bad field fails the whole build.
func BuildFilter(viewerID string, q Query) (Filter, error) {
	if verr := validation.Struct(&q); verr != nil {
		return Filter{}, verr
	}

	f := Filter{
		ViewerID:   viewerID,
		Scope:      ScopeMine,
		Type:       domain.ContentType(q.Type),
		OnlyCircle: q.Circle,
	}
	if q.Scope != "" {
		f.Scope = Scope(q.Scope)
	}

	verr := &validation.Error{}
	bound := func(field, s string) *time.Time {
		t, err := parseTime(s)
		if err != nil {
			verr.Add(field, field+" must be a valid RFC3339 timestamp")
		}
		return t
	}
	f.CreatedFrom = bound("start", q.Start)
	f.CreatedUntil = bound("end", q.End)
	f.WatchedFrom = bound("watchedStart", q.WatchedStart)
	f.WatchedUntil = bound("watchedEnd", q.WatchedEnd)

	if f.CreatedFrom != nil && f.CreatedUntil != nil && !f.CreatedFrom.Before(*f.CreatedUntil) {
		verr.Add("end", "end must be after start")
	}
	if f.WatchedFrom != nil && f.WatchedUntil != nil && !f.WatchedFrom.Before(*f.WatchedUntil) {
		verr.Add("watchedEnd", "watchedEnd must be after watchedStart")
	}
	if len(verr.Fields) > 0 {
		return Filter{}, verr
	}
	return f, nil
}

// parseTime returns nil for an empty string.
func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

// VisibleCircles returns the viewer's circles that v is shared into.
func (f Filter) VisibleCircles(v *domain.Viewing) []string {
	var out []string
	for _, c := range f.Circles {
		if v.HasCircle(c) {
			out = append(out, c)
		}
	}
	return out
}

// Visible reports whether the viewer may see v under the filter's scope.
func (f Filter) Visible(v *domain.Viewing) bool {
	own := v.OwnerID == f.ViewerID
	shared := len(f.VisibleCircles(v)) > 0

	switch f.Scope {
	case ScopeCircles:
		return shared
	case ScopeAll:
		return own || shared
	default:
		return own
	}
}

// Match evaluates the whole predicate against v.
func (f Filter) Match(v *domain.Viewing) bool {
	if !f.Visible(v) {
		return false
	}
	if f.OnlyCircle != "" && !v.HasCircle(f.OnlyCircle) {
		return false
	}
	if f.Type != "" && v.Type != f.Type {
		return false
	}
	if !inRange(v.CreatedAt, f.CreatedFrom, f.CreatedUntil) {
		return false
	}
	if f.WatchedFrom != nil || f.WatchedUntil != nil {
		if v.WatchedAt == nil || !inRange(*v.WatchedAt, f.WatchedFrom, f.WatchedUntil) {
			return false
		}
	}
	return true
}

func inRange(t time.Time, from, until *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if until != nil && !t.Before(*until) {
		return false
	}
	return true
}
