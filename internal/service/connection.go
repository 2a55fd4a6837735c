package service

import (
	"log/slog"

	"github.com/error-99/videocall/internal/domain"
	"github.com/error-99/videocall/lib/logger/sl"
	"github.com/gorilla/websocket"
)

// ConnectionManager owns the lifecycle of each client's signaling channel:
// registration on open, event dispatch while the channel lives, and
// exactly-once teardown on close or error.
type ConnectionManager struct {
	coordinator *CallSessionCoordinator
	log         *slog.Logger
}

func NewConnectionManager(coordinator *CallSessionCoordinator, log *slog.Logger) *ConnectionManager {
	if log == nil {
		log = slog.Default()
	}
	return &ConnectionManager{coordinator: coordinator, log: log}
}

// Serve runs the channel until the socket closes. The identity must already
// be verified by the auth layer. Blocks for the lifetime of the connection.
func (m *ConnectionManager) Serve(identity domain.Identity, socket *websocket.Conn) {
	client := domain.NewClient(identity, socket)
	log := m.log.With(
		slog.String("op", "connection.serve"),
		slog.String("user_id", identity.ID),
		slog.String("conn_id", client.ID),
	)

	go m.pump(client)

	m.coordinator.Connect(client)
	log.Info("channel open")

	for {
		event, err := client.ReadEvent()
		if err != nil {
			break
		}
		m.dispatch(client, event)
	}

	// Close and error paths converge here; Disconnect and Close are both
	// idempotent, so a concurrent eviction cannot double-fire teardown.
	m.coordinator.Disconnect(client)
	client.Close()
	log.Info("channel closed")
}

// pump drains the client's event queue onto the socket. A write failure
// closes the channel, which unblocks the read loop.
func (m *ConnectionManager) pump(client *domain.Client) {
	for event := range client.Events() {
		if err := client.WriteEvent(event); err != nil {
			client.Close()
			return
		}
	}
}

func (m *ConnectionManager) dispatch(client *domain.Client, event domain.SignalMessage) {
	var err error

	switch event.Event {
	case domain.EventUserOnline:
		m.coordinator.Announce(client)
	case domain.EventCallUser:
		err = m.coordinator.Initiate(client, event.To, event.SDP)
	case domain.EventCallAccepted:
		err = m.coordinator.Accept(client, event.SDP)
	case domain.EventCallRejected:
		err = m.coordinator.Reject(client)
	case domain.EventICECandidate:
		err = m.coordinator.RelayICE(client, event.Candidate)
	case domain.EventEndCall:
		err = m.coordinator.End(client)
	case domain.EventChat:
		var content string
		if event.Chat != nil {
			content = event.Chat.Content
		}
		err = m.coordinator.RelayChat(client, content)
	default:
		m.log.Debug("dropping unknown event", slog.String("event", event.Event))
	}

	if err != nil {
		// Already surfaced to the sender where the protocol calls for it;
		// processing continues for every other session.
		m.log.Debug("event not applied",
			slog.String("event", event.Event),
			slog.String("user_id", client.Identity.ID),
			sl.Err(err),
		)
	}
}
