// Package alerts consumes the hook service's alert push stream and keeps a
// live, id-keyed collection of alert records for dashboards to read.
package alerts

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/c360studio/agentconsole/client"
	"github.com/c360studio/agentconsole/metrics"
)

// Event names carried on the alert stream.
const (
	eventAlert     = "alert"
	eventHeartbeat = "heartbeat"
)

// Handler receives each decoded alert.
type Handler func(client.Alert)

// ErrorHandler receives per-event decode failures (the stream continues)
// and the terminal connection error (the subscription ends).
type ErrorHandler func(error)

// StreamOpener opens the persistent alert push stream. *client.Client
// satisfies it via OpenAlertStream.
type StreamOpener interface {
	OpenAlertStream(ctx context.Context) (io.ReadCloser, error)
}

// Subscription is a handle on one open alert stream. It does not
// auto-reconnect: recovery, including backoff, is the caller's
// responsibility.
type Subscription struct {
	cancel    context.CancelFunc
	body      io.ReadCloser
	done      chan struct{}
	closeOnce sync.Once
}

// Close tears the subscription down. Safe to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		_ = s.body.Close()
	})
}

// Done is closed once the read loop has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Subscriber opens alert stream subscriptions.
type Subscriber struct {
	opener StreamOpener
	logger *slog.Logger
}

// SubscriberOption configures a Subscriber.
type SubscriberOption func(*Subscriber)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SubscriberOption {
	return func(s *Subscriber) {
		s.logger = logger
	}
}

// NewSubscriber creates a subscriber over the given stream opener.
func NewSubscriber(opener StreamOpener, opts ...SubscriberOption) *Subscriber {
	s := &Subscriber{opener: opener, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe opens one persistent alert stream. Callbacks are invoked
// sequentially from the subscription's read loop, in arrival order.
func (s *Subscriber) Subscribe(ctx context.Context, onAlert Handler, onError ErrorHandler) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)

	body, err := s.opener.OpenAlertStream(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &Subscription{
		cancel: cancel,
		body:   body,
		done:   make(chan struct{}),
	}
	metrics.AlertStreamConnected.Inc()

	go s.run(ctx, sub, onAlert, onError)
	return sub, nil
}

// run is the read loop: it splits the stream into events (blank-line
// separated, event/data line pairs) and dispatches them.
func (s *Subscriber) run(ctx context.Context, sub *Subscription, onAlert Handler, onError ErrorHandler) {
	defer close(sub.done)
	defer metrics.AlertStreamConnected.Dec()
	defer sub.body.Close()

	scanner := bufio.NewScanner(sub.body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var event, data string
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		switch {
		case line == "":
			s.dispatch(event, data, onAlert, onError)
			event, data = "", ""
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(line[len("event:"):])
		case strings.HasPrefix(line, "data:"):
			if data != "" {
				data += "\n"
			}
			data += strings.TrimSpace(line[len("data:"):])
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil && onError != nil {
		onError(client.NewTransportError(fmt.Errorf("alert stream read: %w", err)))
	}
}

func (s *Subscriber) dispatch(event, data string, onAlert Handler, onError ErrorHandler) {
	switch event {
	case eventAlert:
		var alert client.Alert
		if err := json.Unmarshal([]byte(data), &alert); err != nil {
			// Bad payload, live connection: report and keep reading.
			if onError != nil {
				onError(client.NewDecodeError(fmt.Errorf("decode alert event: %w", err)))
			}
			return
		}
		metrics.AlertsReceived.Inc()
		if onAlert != nil {
			onAlert(alert)
		}
	case eventHeartbeat:
		// Keepalive only.
	case "":
		// Comment or stray blank line.
	default:
		s.logger.Debug("ignoring unknown alert stream event", "event", event)
	}
}
