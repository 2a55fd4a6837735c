package service

import (
	"io"
	"log/slog"
	"testing"

	"github.com/error-99/videocall/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestRelay_DeliversToOpenClient(t *testing.T) {
	req := require.New(t)
	relay := NewSignalingRelay(slog.New(slog.NewTextHandler(io.Discard, nil)))
	target := client("bob", "Bob")

	relay.Relay(target, domain.SignalMessage{Event: domain.EventUsersUpdated})

	event := <-target.Events()
	req.Equal(domain.EventUsersUpdated, event.Event)
}

func TestRelay_DropsSilentlyOnClosedOrMissingTarget(t *testing.T) {
	relay := NewSignalingRelay(slog.New(slog.NewTextHandler(io.Discard, nil)))

	// no target at all
	relay.Relay(nil, domain.SignalMessage{Event: domain.EventEndCall})

	// closed handle: must not panic or block
	target := client("bob", "Bob")
	target.Close()
	relay.Relay(target, domain.SignalMessage{Event: domain.EventEndCall})
}

func TestRelay_DropsWhenBufferSaturated(t *testing.T) {
	req := require.New(t)
	relay := NewSignalingRelay(slog.New(slog.NewTextHandler(io.Discard, nil)))
	target := client("bob", "Bob")

	// Nothing drains the queue; the relay must never block on a slow client.
	for i := 0; i < 100; i++ {
		relay.Relay(target, domain.SignalMessage{Event: domain.EventICECandidate})
	}

	delivered := 0
	for {
		select {
		case <-target.Events():
			delivered++
			continue
		default:
		}
		break
	}
	req.Greater(delivered, 0)
	req.Less(delivered, 100)
}
