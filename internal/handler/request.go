package handler

import (
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/actuallystonmai/viewing-service/internal/domain"
	"github.com/actuallystonmai/viewing-service/internal/feed"
	"github.com/actuallystonmai/viewing-service/internal/validation"
	"github.com/goccy/go-json"
)

type CreateViewingRequest struct {
	Type           string     `json:"type" validate:"required,oneof=movie tv"`
	ExternalID     string     `json:"externalId" validate:"required,max=64"`
	Rating         *int       `json:"rating" validate:"omitnil,min=1,max=5"`
	Comment        *string    `json:"comment" validate:"omitnil,max=1000"`
	WatchedAt      *time.Time `json:"watchedAt"`
	SeasonNumber   *int       `json:"seasonNumber" validate:"omitnil,min=1"`
	EpisodeNumber  *int       `json:"episodeNumber" validate:"omitnil,min=1"`
	IdempotencyKey *string    `json:"idempotencyKey" validate:"omitnil,max=128"`
	CircleIDs      []string   `json:"circleIds" validate:"omitempty,max=20,dive,uuid"`
}

// validate runs tag validation plus the cross-field rules tags cannot express.
func (req *CreateViewingRequest) validate() *validation.Error {
	verr := validation.Struct(req)
	if verr == nil {
		verr = &validation.Error{}
	}
	if req.EpisodeNumber != nil && req.SeasonNumber == nil {
		verr.Add("episodeNumber", "episodeNumber requires seasonNumber")
	}
	if len(verr.Fields) == 0 {
		return nil
	}
	return verr
}

func (req *CreateViewingRequest) toDomain() domain.NewViewing {
	key := req.IdempotencyKey
	if key != nil {
		trimmed := strings.TrimSpace(*key)
		key = &trimmed
		if trimmed == "" {
			key = nil
		}
	}
	var watchedAt *time.Time
	if req.WatchedAt != nil {
		t := req.WatchedAt.UTC()
		watchedAt = &t
	}
	return domain.NewViewing{
		Type:           domain.ContentType(req.Type),
		ExternalID:     req.ExternalID,
		Rating:         req.Rating,
		Comment:        req.Comment,
		WatchedAt:      watchedAt,
		SeasonNumber:   req.SeasonNumber,
		EpisodeNumber:  req.EpisodeNumber,
		IdempotencyKey: key,
		CircleIDs:      req.CircleIDs,
	}
}

type CreateCircleRequest struct {
	Name string `json:"name"`
}

type AddMemberRequest struct {
	UserID string `json:"userId"`
}

// decodeBody decodes the JSON object body into v, a pointer to a struct.
// Members whose value does not fit the field type are reported per field.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "invalid_body", "Request body is too large")
		return false
	}

	if err := json.Unmarshal(raw, v); err != nil {
		if fields := fieldDecodeErrors(raw, v); len(fields) > 0 {
			writeValidationError(w, fields)
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_body", "Request body must be a valid JSON object")
		return false
	}
	return true
}

var timeType = reflect.TypeOf(time.Time{})

// fieldDecodeErrors decodes every member of the raw object on its own against
// the type of the matching field of v. Nil when raw is not an object.
func fieldDecodeErrors(raw []byte, v any) map[string]string {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil
	}

	fields := make(map[string]string)
	t := reflect.TypeOf(v).Elem()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		member, ok := members[name]
		if name == "" || name == "-" || !ok {
			continue
		}
		if err := json.Unmarshal(member, reflect.New(f.Type).Interface()); err != nil {
			fields[name] = typeMessage(name, f.Type)
		}
	}
	return fields
}

func typeMessage(field string, t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch {
	case t == timeType:
		return field + " must be a valid RFC3339 timestamp"
	case t.Kind() == reflect.Int:
		return field + " must be an integer"
	case t.Kind() == reflect.String:
		return field + " must be a string"
	case t.Kind() == reflect.Slice:
		return field + " must be an array of strings"
	}
	return field + " has an invalid value"
}

func filterQuery(q url.Values) feed.Query {
	return feed.Query{
		Type:         q.Get("type"),
		Start:        q.Get("start"),
		End:          q.Get("end"),
		WatchedStart: q.Get("watchedStart"),
		WatchedEnd:   q.Get("watchedEnd"),
		Scope:        q.Get("scope"),
		Circle:       q.Get("circle"),
	}
}

// intParam parses an optional bounded integer query parameter.
func intParam(q url.Values, name string, def, min, max int) (int, bool) {
	s := q.Get(name)
	if s == "" {
		return def, true
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < min || v > max {
		return 0, false
	}
	return v, true
}
