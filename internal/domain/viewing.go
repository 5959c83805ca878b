package domain

import "time"

type ContentType string

const (
	ContentMovie ContentType = "movie"
	ContentTV    ContentType = "tv"
)

func (t ContentType) Valid() bool {
	return t == ContentMovie || t == ContentTV
}

const MaxCommentLength = 1000

// Viewing is a user's record of having watched a movie or a TV episode.
// CircleIDs holds the circles the record is shared into; in listings it is
// narrowed to the circles through which the viewer can see it.
type Viewing struct {
	ID             string      `json:"id"`
	OwnerID        string      `json:"ownerId"`
	Type           ContentType `json:"type"`
	ExternalID     string      `json:"externalId"`
	Rating         *int        `json:"rating,omitempty"`
	Comment        *string     `json:"comment,omitempty"`
	WatchedAt      *time.Time  `json:"watchedAt,omitempty"`
	SeasonNumber   *int        `json:"seasonNumber,omitempty"`
	EpisodeNumber  *int        `json:"episodeNumber,omitempty"`
	CircleIDs      []string    `json:"circleIds"`
	IdempotencyKey *string     `json:"-"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// NewViewing is the owner-supplied part of a viewing.
type NewViewing struct {
	Type           ContentType
	ExternalID     string
	Rating         *int
	Comment        *string
	WatchedAt      *time.Time
	SeasonNumber   *int
	EpisodeNumber  *int
	IdempotencyKey *string
	CircleIDs      []string
}

// Check enforces the invariants storage relies on. Request-level schema
// validation happens earlier; this guards callers that bypass the handler.
func (n NewViewing) Check() error {
	if !n.Type.Valid() {
		return &FieldError{Field: "type", Message: "type must be one of: movie tv"}
	}
	if n.ExternalID == "" {
		return &FieldError{Field: "externalId", Message: "externalId is required"}
	}
	if n.Rating != nil && (*n.Rating < 1 || *n.Rating > 5) {
		return &FieldError{Field: "rating", Message: "rating must be between 1 and 5"}
	}
	if n.Comment != nil && len([]rune(*n.Comment)) > MaxCommentLength {
		return &FieldError{Field: "comment", Message: "comment must be at most 1000 characters"}
	}
	if n.EpisodeNumber != nil && n.SeasonNumber == nil {
		return &FieldError{Field: "episodeNumber", Message: "episodeNumber requires seasonNumber"}
	}
	return nil
}

// HasCircle reports whether the viewing is shared into circleID.
func (v *Viewing) HasCircle(circleID string) bool {
	for _, id := range v.CircleIDs {
		if id == circleID {
			return true
		}
	}
	return false
}
