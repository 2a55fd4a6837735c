package service

import (
	"log/slog"

	"github.com/error-99/videocall/internal/domain"
)

// SignalingRelay forwards an event to a connection handle. Pure forwarding:
// it mutates no state and never inspects the payload beyond the event name.
// Whether a drop matters is decided entirely by the coordinator's state,
// so a stale or saturated target is logged and forgotten.
type SignalingRelay struct {
	log *slog.Logger
}

func NewSignalingRelay(log *slog.Logger) *SignalingRelay {
	if log == nil {
		log = slog.Default()
	}
	return &SignalingRelay{log: log}
}

func (r *SignalingRelay) Relay(target *domain.Client, event domain.SignalMessage) {
	if target == nil {
		r.log.Debug("dropping event, no target", slog.String("event", event.Event))
		return
	}
	if !target.Enqueue(event) {
		r.log.Debug("dropping event, target gone or saturated",
			slog.String("event", event.Event),
			slog.String("target", target.Identity.ID),
		)
	}
}
