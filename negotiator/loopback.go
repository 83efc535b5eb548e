package negotiator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pion/sdp/v3"

	"github.com/opd-ai/peercall/call"
)

// Loopback errors.
var (
	// ErrSessionClosed indicates an operation on a closed session.
	ErrSessionClosed = errors.New("session closed")

	// ErrMalformedSDP indicates a description that does not parse.
	ErrMalformedSDP = errors.New("malformed SDP")
)

// LoopbackNegotiator creates sessions that negotiate without any
// network or media stack. Offers and answers are minimal but valid
// SDP, and every session emits one synthetic host candidate. Intended
// for tests and in-process wiring.
type LoopbackNegotiator struct {
	nextOrigin atomic.Uint64
}

// NewLoopbackNegotiator creates a loopback negotiator.
func NewLoopbackNegotiator() *LoopbackNegotiator {
	return &LoopbackNegotiator{}
}

// NewSession creates a loopback session.
func (n *LoopbackNegotiator) NewSession(_ context.Context, constraints call.MediaConstraints) (call.Session, error) {
	if err := constraints.Validate(); err != nil {
		return nil, err
	}
	return &loopbackSession{
		origin:      n.nextOrigin.Add(1),
		constraints: constraints,
	}, nil
}

type loopbackSession struct {
	mu          sync.Mutex
	origin      uint64
	constraints call.MediaConstraints
	onCandidate call.CandidateFunc
	remoteSDP   string
	closed      bool
	candidates  []string
}

// buildSDP renders a minimal session description with one media
// section per enabled media kind.
func (s *loopbackSession) buildSDP() string {
	out := fmt.Sprintf("v=0\r\no=- %d 2 IN IP4 127.0.0.1\r\ns=-\r\nt=0 0\r\n", s.origin)
	mid := 0
	if s.constraints.Audio {
		out += fmt.Sprintf("m=audio 9 UDP/TLS/RTP/SAVPF 111\r\nc=IN IP4 0.0.0.0\r\na=mid:%d\r\n", mid)
		mid++
	}
	if s.constraints.Video || s.constraints.ScreenShare {
		out += fmt.Sprintf("m=video 9 UDP/TLS/RTP/SAVPF 96\r\nc=IN IP4 0.0.0.0\r\na=mid:%d\r\n", mid)
	}
	return out
}

func validateSDP(raw string) error {
	var desc sdp.SessionDescription
	if err := desc.Unmarshal([]byte(raw)); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedSDP, err)
	}
	return nil
}

// emitCandidate hands the single synthetic host candidate to the
// registered callback.
func (s *loopbackSession) emitCandidate() {
	s.mu.Lock()
	fn := s.onCandidate
	candidate := fmt.Sprintf("candidate:%d 1 UDP 2122260223 127.0.0.1 54321 typ host", s.origin)
	s.candidates = append(s.candidates, candidate)
	s.mu.Unlock()

	if fn != nil {
		mid := "0"
		idx := uint16(0)
		fn(candidate, &mid, &idx)
	}
}

func (s *loopbackSession) CreateOffer(_ context.Context) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrSessionClosed
	}
	offer := s.buildSDP()
	s.mu.Unlock()

	s.emitCandidate()
	return offer, nil
}

func (s *loopbackSession) CreateAnswer(_ context.Context, offerSDP string) (string, error) {
	if err := validateSDP(offerSDP); err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrSessionClosed
	}
	s.remoteSDP = offerSDP
	answer := s.buildSDP()
	s.mu.Unlock()

	s.emitCandidate()
	return answer, nil
}

func (s *loopbackSession) SetRemoteAnswer(_ context.Context, raw string) error {
	if err := validateSDP(raw); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.remoteSDP = raw
	return nil
}

func (s *loopbackSession) AddICECandidate(candidate string, _ *string, _ *uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if candidate == "" {
		return fmt.Errorf("%w: empty candidate", ErrMalformedSDP)
	}
	s.candidates = append(s.candidates, candidate)
	return nil
}

func (s *loopbackSession) OnICECandidate(fn call.CandidateFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCandidate = fn
}

func (s *loopbackSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
