package notification

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/custody-vault/internal/logging"
)

func TestStreamNotifierAppendsMessages(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	n := NewStreamNotifier(client, "", 0)
	for _, kind := range []string{"Deposit", "Wrap"} {
		if err := n.Send(ctx, Message{Kind: kind, Destination: "0xvault", Body: `{"amount":"1"}`}); err != nil {
			t.Fatalf("send %s: %v", kind, err)
		}
	}

	entries, err := client.XRange(ctx, DefaultStream, "-", "+").Result()
	if err != nil {
		t.Fatalf("xrange: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 stream entries, got %d", len(entries))
	}
	if entries[0].Values["kind"] != "Deposit" || entries[1].Values["kind"] != "Wrap" {
		t.Fatalf("unexpected stream order: %+v", entries)
	}
}

type failingNotifier struct{ err error }

func (f failingNotifier) Send(context.Context, Message) error { return f.err }

type recordingNotifier struct{ got []Message }

func (r *recordingNotifier) Send(_ context.Context, m Message) error {
	r.got = append(r.got, m)
	return nil
}

func TestMultiDeliversDespiteFailures(t *testing.T) {
	boom := errors.New("boom")
	rec := &recordingNotifier{}
	m := Multi{failingNotifier{err: boom}, nil, rec, NewLoggerNotifier(logging.Discard())}

	err := m.Send(context.Background(), Message{Kind: "Unwrap"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error to contain boom, got %v", err)
	}
	if len(rec.got) != 1 {
		t.Fatalf("expected recording notifier to receive the message")
	}
}
