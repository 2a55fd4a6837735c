package domain

import (
	"time"

	"github.com/google/uuid"
)

// CallState is the per-identity view of the call machine. It is derived from
// the session an identity takes part in, never stored on its own, so a
// session existing and its participants' states can not drift apart.
type CallState string

const (
	StateIdle            CallState = "idle"
	StateCalling         CallState = "calling"
	StateRingingIncoming CallState = "ringing"
	StateInCall          CallState = "in-call"
)

type SessionPhase string

const (
	// PhasePending: the offer has been relayed, the callee has not answered.
	PhasePending SessionPhase = "pending"
	// PhaseActive: both sides accepted, media negotiation is between the peers.
	PhaseActive SessionPhase = "active"
)

// CallSession is the authoritative record of one caller/callee pair. It is
// created when an initiation finds the callee idle and destroyed on any
// terminal transition.
type CallSession struct {
	ID        uuid.UUID
	CallerID  string
	CalleeID  string
	Phase     SessionPhase
	CreatedAt time.Time
}

func NewCallSession(callerID, calleeID string) *CallSession {
	return &CallSession{
		ID:        uuid.New(),
		CallerID:  callerID,
		CalleeID:  calleeID,
		Phase:     PhasePending,
		CreatedAt: time.Now().UTC(),
	}
}

// Has reports whether id is one of the session's recorded participants.
func (s *CallSession) Has(id string) bool {
	return s != nil && (s.CallerID == id || s.CalleeID == id)
}

// Other returns the peer of id within the session.
func (s *CallSession) Other(id string) (string, bool) {
	switch {
	case s == nil:
		return "", false
	case s.CallerID == id:
		return s.CalleeID, true
	case s.CalleeID == id:
		return s.CallerID, true
	}
	return "", false
}

// StateOf derives the call state id is in because of this session.
func (s *CallSession) StateOf(id string) CallState {
	if !s.Has(id) {
		return StateIdle
	}
	if s.Phase == PhaseActive {
		return StateInCall
	}
	if s.CallerID == id {
		return StateCalling
	}
	return StateRingingIncoming
}
