package domain

import "github.com/pion/webrtc/v3"

// Event names on the signaling channel. The names and payload shapes are
// wire-stable; existing clients depend on them.
const (
	EventUserOnline      = "user-online"      // client→core: roster re-announce
	EventUsersUpdated    = "users-updated"    // core→all: roster changed
	EventCallUser        = "call-user"        // client→core: initiate
	EventIncomingCall    = "incoming-call"    // core→callee
	EventCallAccepted    = "call-accepted"    // client→core / core→caller
	EventCallRejected    = "call-rejected"    // client→core / core→caller
	EventICECandidate    = "ice-candidate"    // client→core / core→peer
	EventEndCall         = "end-call"         // client→core / core→peer
	EventCallUnavailable = "call-unavailable" // core→caller: target offline or busy
	EventSessionGone     = "session-gone"     // core→sender: referenced call already over
	EventChat            = "chat"             // client→core / core→peer, in-call only
)

// SignalMessage is the envelope for every event on a signaling channel. The
// SDP and candidate payloads are relayed as-is; the core never looks inside
// them beyond the kind implied by the event name.
type SignalMessage struct {
	Event     string                     `json:"event"`
	From      string                     `json:"from,omitempty"`
	To        string                     `json:"to,omitempty"`
	Caller    *Identity                  `json:"caller,omitempty"`
	SDP       *webrtc.SessionDescription `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
	Users     []Identity                 `json:"users,omitempty"`
	Chat      *ChatMessage               `json:"chat,omitempty"`
}
