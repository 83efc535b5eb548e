package call

import "context"

// CandidateFunc receives locally gathered ICE candidates. A nil
// candidate pointer is never passed; gathering completion is signaled
// by done.
type CandidateFunc func(candidate string, sdpMid *string, mlineIndex *uint16)

// Session is one negotiation session backing a call. Implementations
// must be safe for concurrent use.
type Session interface {
	// CreateOffer produces the local SDP offer and installs it as the
	// local description.
	CreateOffer(ctx context.Context) (string, error)

	// CreateAnswer installs the remote offer and produces the local
	// SDP answer.
	CreateAnswer(ctx context.Context, offerSDP string) (string, error)

	// SetRemoteAnswer installs the remote SDP answer.
	SetRemoteAnswer(ctx context.Context, sdp string) error

	// AddICECandidate feeds a remote ICE candidate into the session.
	AddICECandidate(candidate string, sdpMid *string, mlineIndex *uint16) error

	// OnICECandidate registers the callback for locally gathered
	// candidates. Must be set before CreateOffer or CreateAnswer to
	// observe all candidates.
	OnICECandidate(fn CandidateFunc)

	// Close tears the session down.
	Close() error
}

// Negotiator creates negotiation sessions. The production
// implementation wraps a WebRTC peer connection; tests use a loopback.
type Negotiator interface {
	NewSession(ctx context.Context, constraints MediaConstraints) (Session, error)
}
