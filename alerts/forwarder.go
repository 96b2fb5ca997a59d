package alerts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360studio/agentconsole/client"
)

// DefaultSubjectPrefix is the root of the subjects alert events are
// republished on.
const DefaultSubjectPrefix = "alerts.event"

// alertEventMessage is the envelope republished on the message bus. The
// receipt timestamp distinguishes console arrival from the alert's own
// first/last seen times.
type alertEventMessage struct {
	Alert      client.Alert `json:"alert"`
	ReceivedAt time.Time    `json:"receivedAt"`
}

// Forwarder republishes received alerts onto NATS so other consoles and
// recording services can consume them without holding their own stream
// subscription.
type Forwarder struct {
	nc            *nats.Conn
	subjectPrefix string
}

// NewForwarder creates a forwarder over an established NATS connection.
// A nil connection yields a forwarder whose Forward is a no-op, so callers
// never need to branch on whether the bus is configured.
func NewForwarder(nc *nats.Conn, subjectPrefix string) *Forwarder {
	if subjectPrefix == "" {
		subjectPrefix = DefaultSubjectPrefix
	}
	return &Forwarder{nc: nc, subjectPrefix: subjectPrefix}
}

// Forward publishes one alert on <prefix>.<severity>.
func (f *Forwarder) Forward(alert client.Alert) error {
	if f.nc == nil {
		return nil // No bus configured, skip publishing.
	}

	data, err := json.Marshal(alertEventMessage{
		Alert:      alert,
		ReceivedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("marshal alert event: %w", err)
	}

	subject := f.subjectPrefix + "." + string(alert.Severity)
	if err := f.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish alert event: %w", err)
	}
	return nil
}
