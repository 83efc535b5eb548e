// Package negotiator provides the SDP negotiation backends for call
// sessions: a production WebRTC implementation and an in-process
// loopback used by tests.
package negotiator

import (
	"context"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v3"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/peercall/call"
)

// WebRTCNegotiator creates sessions backed by real WebRTC peer
// connections.
type WebRTCNegotiator struct {
	config webrtc.Configuration
}

// NewWebRTCNegotiator creates a negotiator with the given peer
// connection configuration. An empty configuration works for
// host-candidate-only setups; production deployments add STUN or TURN
// servers.
func NewWebRTCNegotiator(config webrtc.Configuration) *WebRTCNegotiator {
	return &WebRTCNegotiator{config: config}
}

// NewSession creates a peer connection with transceivers matching the
// constraints.
func (n *WebRTCNegotiator) NewSession(_ context.Context, constraints call.MediaConstraints) (call.Session, error) {
	pc, err := webrtc.NewPeerConnection(n.config)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "WebRTCNegotiator.NewSession",
			"error":    err.Error(),
		}).Error("Failed to create peer connection")
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	if constraints.Audio {
		if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio); err != nil {
			_ = pc.Close()
			return nil, fmt.Errorf("add audio transceiver: %w", err)
		}
	}
	if constraints.Video || constraints.ScreenShare {
		if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo); err != nil {
			_ = pc.Close()
			return nil, fmt.Errorf("add video transceiver: %w", err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"function":     "WebRTCNegotiator.NewSession",
		"audio":        constraints.Audio,
		"video":        constraints.Video,
		"screen_share": constraints.ScreenShare,
	}).Debug("Peer connection created")

	return &webrtcSession{pc: pc}, nil
}

// webrtcSession adapts a pion peer connection to the call session
// surface.
type webrtcSession struct {
	mu sync.Mutex
	pc *webrtc.PeerConnection
}

func (s *webrtcSession) CreateOffer(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	offer, err := s.pc.CreateOffer(nil)
	if err != nil {
		return "", fmt.Errorf("create offer: %w", err)
	}
	if err := s.pc.SetLocalDescription(offer); err != nil {
		return "", fmt.Errorf("set local description: %w", err)
	}
	return offer.SDP, nil
}

func (s *webrtcSession) CreateAnswer(_ context.Context, offerSDP string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	remote := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offerSDP}
	if err := s.pc.SetRemoteDescription(remote); err != nil {
		return "", fmt.Errorf("set remote offer: %w", err)
	}
	answer, err := s.pc.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("create answer: %w", err)
	}
	if err := s.pc.SetLocalDescription(answer); err != nil {
		return "", fmt.Errorf("set local description: %w", err)
	}
	return answer.SDP, nil
}

func (s *webrtcSession) SetRemoteAnswer(_ context.Context, sdp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	remote := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp}
	if err := s.pc.SetRemoteDescription(remote); err != nil {
		return fmt.Errorf("set remote answer: %w", err)
	}
	return nil
}

func (s *webrtcSession) AddICECandidate(candidate string, sdpMid *string, mlineIndex *uint16) error {
	init := webrtc.ICECandidateInit{
		Candidate:     candidate,
		SDPMid:        sdpMid,
		SDPMLineIndex: mlineIndex,
	}
	if err := s.pc.AddICECandidate(init); err != nil {
		return fmt.Errorf("add ice candidate: %w", err)
	}
	return nil
}

func (s *webrtcSession) OnICECandidate(fn call.CandidateFunc) {
	s.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			// Gathering finished.
			return
		}
		init := c.ToJSON()
		fn(init.Candidate, init.SDPMid, init.SDPMLineIndex)
	})
}

func (s *webrtcSession) Close() error {
	return s.pc.Close()
}
