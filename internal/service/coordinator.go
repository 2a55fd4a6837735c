package service

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/error-99/videocall/internal/domain"
	"github.com/pion/webrtc/v3"
)

var (
	// ErrUnavailable: the target is offline or not idle at initiation time.
	ErrUnavailable = errors.New("target unavailable")
	// ErrSessionGone: the referenced call ended before the event arrived.
	ErrSessionGone = errors.New("call session gone")
	// ErrInvalidTransition: the event does not apply to the sender's state.
	ErrInvalidTransition = errors.New("invalid call transition")
)

const maxChatMessageLength = 4000

// CallSessionCoordinator is the sole authority over call state. Every
// transition, and every presence mutation, runs under its mutex, so no two
// transitions touching overlapping identities interleave. Client-reported
// state is never consulted; the invoking identity is checked against the
// session's recorded participants before any change is applied.
type CallSessionCoordinator struct {
	mu       sync.Mutex
	presence *PresenceRegistry
	relay    *SignalingRelay
	sessions map[string]*domain.CallSession // both participant ids key the same session
	log      *slog.Logger
}

func NewCallSessionCoordinator(presence *PresenceRegistry, relay *SignalingRelay, log *slog.Logger) *CallSessionCoordinator {
	if log == nil {
		log = slog.Default()
	}
	return &CallSessionCoordinator{
		presence: presence,
		relay:    relay,
		sessions: make(map[string]*domain.CallSession),
		log:      log,
	}
}

// Connect registers a freshly opened channel. If the identity is already
// online the stale connection loses: its call (if any) is ended and its
// channel is closed.
func (c *CallSessionCoordinator) Connect(client *domain.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := c.presence.Register(client)
	if evicted != nil {
		c.endSessionLocked(evicted.Identity.ID)
		evicted.Close()
	}

	c.broadcastRosterLocked()
}

// Announce re-broadcasts the roster. The user-online event is advisory:
// registration itself already happened when the channel opened.
func (c *CallSessionCoordinator) Announce(client *domain.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.currentLocked(client) {
		return
	}
	c.broadcastRosterLocked()
}

// Initiate starts a call from the client to targetID and relays the offer.
// Any reason the call cannot start is reported to the caller only.
func (c *CallSessionCoordinator) Initiate(caller *domain.Client, targetID string, offer *webrtc.SessionDescription) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	log := c.log.With(
		slog.String("op", "coordinator.initiate"),
		slog.String("caller", caller.Identity.ID),
		slog.String("target", targetID),
	)

	if !c.currentLocked(caller) {
		log.Debug("stale connection, dropping")
		return ErrInvalidTransition
	}
	if offer == nil {
		log.Debug("missing offer, dropping")
		return ErrInvalidTransition
	}
	if c.stateLocked(caller.Identity.ID) != domain.StateIdle {
		c.relay.Relay(caller, domain.SignalMessage{Event: domain.EventCallUnavailable, To: targetID})
		log.Info("caller not idle")
		return ErrUnavailable
	}

	target, online := c.presence.Lookup(targetID)
	if !online || targetID == caller.Identity.ID || c.stateLocked(targetID) != domain.StateIdle {
		c.relay.Relay(caller, domain.SignalMessage{Event: domain.EventCallUnavailable, To: targetID})
		log.Info("target unavailable", slog.Bool("online", online))
		return ErrUnavailable
	}

	session := domain.NewCallSession(caller.Identity.ID, targetID)
	c.sessions[session.CallerID] = session
	c.sessions[session.CalleeID] = session

	callerIdentity := caller.Identity
	c.relay.Relay(target, domain.SignalMessage{
		Event:  domain.EventIncomingCall,
		From:   caller.Identity.ID,
		Caller: &callerIdentity,
		SDP:    offer,
	})

	log.Info("call initiated", slog.String("session_id", session.ID.String()))
	return nil
}

// Accept moves a pending call to active and relays the answer to the caller.
func (c *CallSessionCoordinator) Accept(callee *domain.Client, answer *webrtc.SessionDescription) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	log := c.log.With(
		slog.String("op", "coordinator.accept"),
		slog.String("callee", callee.Identity.ID),
	)

	if !c.currentLocked(callee) {
		log.Debug("stale connection, dropping")
		return ErrInvalidTransition
	}

	session, ok := c.sessions[callee.Identity.ID]
	if !ok {
		c.relay.Relay(callee, domain.SignalMessage{Event: domain.EventSessionGone})
		log.Info("accept for missing session")
		return ErrSessionGone
	}
	if session.CalleeID != callee.Identity.ID || session.Phase != domain.PhasePending {
		log.Debug("accept does not apply", slog.String("phase", string(session.Phase)))
		return ErrInvalidTransition
	}

	session.Phase = domain.PhaseActive

	caller, _ := c.presence.Lookup(session.CallerID)
	c.relay.Relay(caller, domain.SignalMessage{
		Event: domain.EventCallAccepted,
		From:  callee.Identity.ID,
		SDP:   answer,
	})

	log.Info("call accepted", slog.String("session_id", session.ID.String()))
	return nil
}

// Reject declines a pending call, notifies the caller, destroys the session.
func (c *CallSessionCoordinator) Reject(callee *domain.Client) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	log := c.log.With(
		slog.String("op", "coordinator.reject"),
		slog.String("callee", callee.Identity.ID),
	)

	if !c.currentLocked(callee) {
		log.Debug("stale connection, dropping")
		return ErrInvalidTransition
	}

	session, ok := c.sessions[callee.Identity.ID]
	if !ok {
		c.relay.Relay(callee, domain.SignalMessage{Event: domain.EventSessionGone})
		log.Info("reject for missing session")
		return ErrSessionGone
	}
	if session.CalleeID != callee.Identity.ID || session.Phase != domain.PhasePending {
		log.Debug("reject does not apply", slog.String("phase", string(session.Phase)))
		return ErrInvalidTransition
	}

	caller, _ := c.presence.Lookup(session.CallerID)
	c.relay.Relay(caller, domain.SignalMessage{
		Event: domain.EventCallRejected,
		From:  callee.Identity.ID,
	})
	c.deleteSessionLocked(session)

	log.Info("call rejected", slog.String("session_id", session.ID.String()))
	return nil
}

// RelayICE forwards a connectivity candidate to the sender's peer. Without
// an active session the candidate is dropped silently: late candidates
// after teardown are expected, not an error.
func (c *CallSessionCoordinator) RelayICE(sender *domain.Client, candidate *webrtc.ICECandidateInit) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.currentLocked(sender) {
		return ErrInvalidTransition
	}

	session, ok := c.sessions[sender.Identity.ID]
	if !ok {
		c.log.Debug("dropping late candidate", slog.String("sender", sender.Identity.ID))
		return nil
	}

	peerID, _ := session.Other(sender.Identity.ID)
	peer, _ := c.presence.Lookup(peerID)
	c.relay.Relay(peer, domain.SignalMessage{
		Event:     domain.EventICECandidate,
		From:      sender.Identity.ID,
		Candidate: candidate,
	})
	return nil
}

// RelayChat forwards a text message to the in-call peer. Chat rides the
// signaling channel only while a call is active; nothing is stored.
func (c *CallSessionCoordinator) RelayChat(sender *domain.Client, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.currentLocked(sender) {
		return ErrInvalidTransition
	}

	session, ok := c.sessions[sender.Identity.ID]
	if !ok || session.Phase != domain.PhaseActive {
		c.log.Debug("dropping chat outside active call", slog.String("sender", sender.Identity.ID))
		return ErrInvalidTransition
	}

	content = strings.TrimSpace(content)
	if content == "" || utf8.RuneCountInString(content) > maxChatMessageLength {
		return ErrInvalidTransition
	}

	peerID, _ := session.Other(sender.Identity.ID)
	peer, _ := c.presence.Lookup(peerID)
	c.relay.Relay(peer, domain.SignalMessage{
		Event: domain.EventChat,
		From:  sender.Identity.ID,
		Chat:  domain.NewChatMessage(sender.Identity, content),
	})
	return nil
}

// End terminates the sender's call from any non-idle state and notifies the
// peer. Ending with no session is a no-op; the operation is idempotent.
func (c *CallSessionCoordinator) End(sender *domain.Client) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.currentLocked(sender) {
		return ErrInvalidTransition
	}

	c.endSessionLocked(sender.Identity.ID)
	return nil
}

// Disconnect handles a closed channel: ends any call the identity was in,
// removes presence, broadcasts the shrunk roster. Safe to call repeatedly;
// a stale handle (already evicted by a newer connection) changes nothing.
func (c *CallSessionCoordinator) Disconnect(client *domain.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.currentLocked(client) {
		return
	}

	c.endSessionLocked(client.Identity.ID)
	c.presence.Unregister(client)
	c.broadcastRosterLocked()
}

// StateOf reports the derived call state of an identity.
func (c *CallSessionCoordinator) StateOf(identityID string) domain.CallState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked(identityID)
}

// SessionCount reports the number of live sessions.
func (c *CallSessionCoordinator) SessionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]struct{})
	for _, session := range c.sessions {
		seen[session.ID.String()] = struct{}{}
	}
	return len(seen)
}

func (c *CallSessionCoordinator) stateLocked(identityID string) domain.CallState {
	session, ok := c.sessions[identityID]
	if !ok {
		return domain.StateIdle
	}
	return session.StateOf(identityID)
}

// currentLocked reports whether the handle still owns its identity's
// presence entry. Events from an evicted connection must not touch the
// successor's state.
func (c *CallSessionCoordinator) currentLocked(client *domain.Client) bool {
	current, ok := c.presence.Lookup(client.Identity.ID)
	return ok && current == client
}

// endSessionLocked destroys the identity's session, if any, and notifies
// the other participant. Both sides are resolved in the same critical
// section even when the notification cannot be delivered.
func (c *CallSessionCoordinator) endSessionLocked(identityID string) {
	session, ok := c.sessions[identityID]
	if !ok {
		return
	}

	peerID, _ := session.Other(identityID)
	if peer, online := c.presence.Lookup(peerID); online {
		c.relay.Relay(peer, domain.SignalMessage{
			Event: domain.EventEndCall,
			From:  identityID,
		})
	}
	c.deleteSessionLocked(session)

	c.log.Info("call ended",
		slog.String("session_id", session.ID.String()),
		slog.String("by", identityID),
	)
}

func (c *CallSessionCoordinator) deleteSessionLocked(session *domain.CallSession) {
	delete(c.sessions, session.CallerID)
	delete(c.sessions, session.CalleeID)
}

func (c *CallSessionCoordinator) broadcastRosterLocked() {
	users := c.presence.Snapshot()
	for _, client := range c.presence.Clients() {
		c.relay.Relay(client, domain.SignalMessage{
			Event: domain.EventUsersUpdated,
			Users: users,
		})
	}
}
