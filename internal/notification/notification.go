package notification

import (
	"context"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const (
	// KindWrappedTransfer indicates a P2P transfer of the wrapped asset.
	KindWrappedTransfer = "wrapped_transfer"
	// DefaultStream is the Redis stream committed contract logs are appended to.
	DefaultStream = "vault:events"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", message.Body)
	return nil
}

// StreamNotifier appends every message to a Redis stream so off-chain indexers
// can consume events with XREAD / consumer groups.
type StreamNotifier struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewStreamNotifier builds a Redis stream notifier. An empty stream name uses
// DefaultStream; maxLen <= 0 keeps the stream untrimmed.
func NewStreamNotifier(client *redis.Client, stream string, maxLen int64) *StreamNotifier {
	if stream == "" {
		stream = DefaultStream
	}
	return &StreamNotifier{client: client, stream: stream, maxLen: maxLen}
}

// Send appends the message to the stream.
func (n *StreamNotifier) Send(ctx context.Context, message Message) error {
	args := &redis.XAddArgs{
		Stream: n.stream,
		Values: map[string]any{
			"kind":        message.Kind,
			"destination": message.Destination,
			"body":        message.Body,
		},
	}
	if n.maxLen > 0 {
		args.MaxLen = n.maxLen
		args.Approx = true
	}
	return n.client.XAdd(ctx, args).Err()
}

// Multi fans a message out to every notifier and joins their errors.
type Multi []Notifier

// Send delivers to all notifiers even when some fail.
func (m Multi) Send(ctx context.Context, message Message) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
