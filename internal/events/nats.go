package events

import (
	"context"
	"fmt"
	"time"

	"github.com/actuallystonmai/viewing-service/internal/domain"
	"github.com/actuallystonmai/viewing-service/internal/logging"
	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
)

const (
	SubjectViewingCreated = "viewing.created"
	SubjectViewingDeleted = "viewing.deleted"
)

type ViewingCreatedEvent struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Type       string    `json:"type"`
	ExternalID string    `json:"external_id"`
	CircleIDs  []string  `json:"circle_ids"`
	CreatedAt  time.Time `json:"created_at"`
}

type ViewingDeletedEvent struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
}

type NatsPublisher struct {
	nc *nats.Conn
}

func NewNatsPublisher(nc *nats.Conn) *NatsPublisher {
	return &NatsPublisher{nc: nc}
}

func (p *NatsPublisher) PublishViewingCreated(ctx context.Context, v *domain.Viewing) error {
	return p.publish(SubjectViewingCreated, newCreatedEvent(v))
}

func newCreatedEvent(v *domain.Viewing) ViewingCreatedEvent {
	circles := v.CircleIDs
	if circles == nil {
		circles = []string{}
	}
	return ViewingCreatedEvent{
		ID:         v.ID,
		OwnerID:    v.OwnerID,
		Type:       string(v.Type),
		ExternalID: v.ExternalID,
		CircleIDs:  circles,
		CreatedAt:  v.CreatedAt,
	}
}

func (p *NatsPublisher) PublishViewingDeleted(ctx context.Context, id, ownerID string) error {
	return p.publish(SubjectViewingDeleted, ViewingDeletedEvent{ID: id, OwnerID: ownerID})
}

func (p *NatsPublisher) publish(subject string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", subject, err)
	}
	logging.Debug().Str("subject", subject).Msg("publishing event")
	return p.nc.Publish(subject, data)
}

// Nop drops events; used when NATS is not configured.
type Nop struct{}

func (Nop) PublishViewingCreated(context.Context, *domain.Viewing) error { return nil }
func (Nop) PublishViewingDeleted(context.Context, string, string) error  { return nil }
