// Package ingest feeds inbound messages into the engine from external
// sources: a NATS subject and a file-drop inbox directory. It also
// publishes the engine's lifecycle events back onto the bus.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/jbplatform/relay/internal/orchestrator"
	"github.com/jbplatform/relay/pkg/logger"
	"github.com/jbplatform/relay/pkg/models"
)

// Submitter is the slice of the engine the ingest adapters need.
type Submitter interface {
	Submit(ctx context.Context, msg models.InboundMessage) (*orchestrator.SubmissionReceipt, error)
}

// Bus bridges the engine to NATS: inbound messages arrive on
// <prefix>.messages.inbound, lifecycle events go out on
// <prefix>.tasks.events.
type Bus struct {
	nc     *nats.Conn
	prefix string
	engine Submitter
	log    *logger.Logger
	sub    *nats.Subscription
}

// Connect dials the NATS server and returns a Bus over the connection.
func Connect(url, prefix string, engine Submitter) (*Bus, error) {
	nc, err := nats.Connect(url, nats.Name("relay"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	return NewBus(nc, prefix, engine), nil
}

// NewBus wraps an existing connection. The caller keeps ownership of nc
// only if it was not created through Connect.
func NewBus(nc *nats.Conn, prefix string, engine Submitter) *Bus {
	return &Bus{
		nc:     nc,
		prefix: prefix,
		engine: engine,
		log:    logger.New("ingest.bus"),
	}
}

// InboundSubject returns the subject the bus listens on.
func (b *Bus) InboundSubject() string {
	return b.prefix + ".messages.inbound"
}

// EventSubject returns the subject lifecycle events are published to.
func (b *Bus) EventSubject() string {
	return b.prefix + ".tasks.events"
}

// Start subscribes to the inbound subject. Malformed payloads are logged
// and dropped; the bus never replies with an error.
func (b *Bus) Start(ctx context.Context) error {
	sub, err := b.nc.Subscribe(b.InboundSubject(), func(m *nats.Msg) {
		msg, err := decodeInboundMessage(m.Data)
		if err != nil {
			b.log.WithError(err).Warn("dropping malformed inbound message")
			return
		}

		receipt, err := b.engine.Submit(ctx, msg)
		if err != nil {
			b.log.WithError(err).WithField("message_id", msg.ID).Error("submission failed")
			return
		}
		b.log.WithTask(receipt.TaskID).WithField("message_id", msg.ID).Info("message submitted from bus")
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", b.InboundSubject(), err)
	}
	b.sub = sub
	return nil
}

// PublishEvent sends one lifecycle event to the event subject.
func (b *Bus) PublishEvent(ev orchestrator.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := b.nc.Publish(b.EventSubject(), data); err != nil {
		b.log.WithError(err).Warn("event publish failed")
	}
}

// PublishEvents forwards engine events onto the bus until the context is
// cancelled or the stream closes.
func (b *Bus) PublishEvents(ctx context.Context, events <-chan orchestrator.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			b.PublishEvent(ev)
		}
	}
}

// Close unsubscribes and drains the connection.
func (b *Bus) Close() {
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	_ = b.nc.Drain()
}

// decodeInboundMessage parses and validates a JSON inbound message.
func decodeInboundMessage(data []byte) (models.InboundMessage, error) {
	var msg models.InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("unmarshal inbound message: %w", err)
	}
	if msg.Body == "" {
		return msg, fmt.Errorf("inbound message %q has no body", msg.ID)
	}
	if !msg.Channel.Valid() {
		return msg, fmt.Errorf("inbound message %q has unknown channel %q", msg.ID, msg.Channel)
	}
	return msg, nil
}
