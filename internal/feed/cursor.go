package feed

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/actuallystonmai/viewing-service/internal/domain"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "", string(Desc):
		return Desc, nil
	case string(Asc):
		return Asc, nil
	}
	return "", &domain.FieldError{Field: "sort", Message: "sort must be one of: asc desc"}
}

// Cursor is the sort position of the last item of a page.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// Boundary is a resolved cursor: records strictly after it in Dir order
// belong to the next page.
type Boundary struct {
	CreatedAt time.Time
	ID        string
	Dir       Direction
}

// Admits reports whether v sorts strictly after the boundary.
func (b Boundary) Admits(v *domain.Viewing) bool {
	if b.Dir == Asc {
		return Less(b.CreatedAt, b.ID, v.CreatedAt, v.ID)
	}
	return Less(v.CreatedAt, v.ID, b.CreatedAt, b.ID)
}

// Less orders by (createdAt, id) ascending; id breaks timestamp ties.
func Less(at time.Time, aid string, bt time.Time, bid string) bool {
	if !at.Equal(bt) {
		return at.Before(bt)
	}
	return aid < bid
}

const cursorVersion = 1

type cursorPayload struct {
	V  int    `json:"v"`
	T  string `json:"t"`
	ID string `json:"id"`
}

// Codec turns sort positions into opaque, signed tokens and back.
type Codec struct {
	key []byte
}

func NewCodec(secret string) *Codec {
	return &Codec{key: []byte(secret)}
}

func (c *Codec) Encode(v domain.Viewing) string {
	payload, _ := json.Marshal(cursorPayload{
		V:  cursorVersion,
		T:  v.CreatedAt.UTC().Format(time.RFC3339Nano),
		ID: v.ID,
	})
	body := base64.RawURLEncoding.EncodeToString(payload)
	return body + "." + base64.RawURLEncoding.EncodeToString(c.sign(body))
}

// Decode validates the token's shape and signature. It does not check that
// the referenced record still exists; that needs a store lookup.
func (c *Codec) Decode(token string) (Cursor, error) {
	body, sig, ok := strings.Cut(token, ".")
	if !ok || body == "" || sig == "" {
		return Cursor{}, fmt.Errorf("%w: malformed token", domain.ErrInvalidCursor)
	}

	gotSig, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil || !hmac.Equal(gotSig, c.sign(body)) {
		return Cursor{}, fmt.Errorf("%w: bad signature", domain.ErrInvalidCursor)
	}

	raw, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: bad encoding", domain.ErrInvalidCursor)
	}
	var p cursorPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Cursor{}, fmt.Errorf("%w: bad payload", domain.ErrInvalidCursor)
	}
	if p.V != cursorVersion {
		return Cursor{}, fmt.Errorf("%w: unsupported version %d", domain.ErrInvalidCursor, p.V)
	}
	t, err := time.Parse(time.RFC3339Nano, p.T)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: bad timestamp", domain.ErrInvalidCursor)
	}
	if _, err := uuid.Parse(p.ID); err != nil {
		return Cursor{}, fmt.Errorf("%w: bad id", domain.ErrInvalidCursor)
	}
	return Cursor{CreatedAt: t, ID: p.ID}, nil
}

func (c *Codec) sign(body string) []byte {
	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(body))
	return mac.Sum(nil)
}
