package call

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/peercall/event"
	"github.com/opd-ai/peercall/media"
	"github.com/opd-ai/peercall/signaling"
)

// Config tunes the call manager.
type Config struct {
	// MaxConcurrentCalls caps the registry size. Zero means the
	// default.
	MaxConcurrentCalls int
	// EventBuffer is the per-subscriber event channel capacity. Zero
	// means the default.
	EventBuffer int
}

// DefaultConfig returns the standard manager configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentCalls: 10,
		EventBuffer:        100,
	}
}

// entry is one registered call. Its mutex serializes per-call
// operations; the registry lock is never held across negotiation or
// signaling I/O.
type entry[P signaling.PeerID] struct {
	mu          sync.Mutex
	id          CallID
	peer        P
	state       State
	constraints MediaConstraints
	session     Session
	remoteOffer string
	pendingICE  []pendingCandidate
	tracks      []*media.Track
}

type pendingCandidate struct {
	candidate  string
	sdpMid     *string
	mlineIndex *uint16
}

// Manager owns the call registry and drives signaling and negotiation
// for every call.
type Manager[P signaling.PeerID] struct {
	mu         sync.RWMutex
	calls      map[CallID]*entry[P]
	config     Config
	negotiator Negotiator
	handler    *signaling.Handler[P]
	hub        *event.Hub[Event[P]]
	media      *media.Manager
}

// NewManager creates a call manager. The negotiator produces a
// session per call; the handler carries signaling traffic to peers.
func NewManager[P signaling.PeerID](config Config, negotiator Negotiator, handler *signaling.Handler[P]) (*Manager[P], error) {
	if negotiator == nil {
		return nil, errors.New("negotiator cannot be nil")
	}
	if handler == nil {
		return nil, errors.New("signaling handler cannot be nil")
	}
	if config.MaxConcurrentCalls <= 0 {
		config.MaxConcurrentCalls = DefaultConfig().MaxConcurrentCalls
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = DefaultConfig().EventBuffer
	}

	logrus.WithFields(logrus.Fields{
		"function":  "NewManager",
		"max_calls": config.MaxConcurrentCalls,
	}).Info("Call manager created")

	return &Manager[P]{
		calls:      make(map[CallID]*entry[P]),
		config:     config,
		negotiator: negotiator,
		handler:    handler,
		hub:        event.NewHub[Event[P]](config.EventBuffer),
		media:      media.NewManager(),
	}, nil
}

// Media exposes the manager's local media tracks.
func (m *Manager[P]) Media() *media.Manager {
	return m.media
}

// InitiateCall starts an outbound call: it creates the negotiation
// session and local tracks, produces the SDP offer, registers the
// call in Calling state, and sends the offer to the callee. On any
// failure nothing is left registered.
func (m *Manager[P]) InitiateCall(ctx context.Context, callee P, constraints MediaConstraints) (CallID, error) {
	if err := constraints.Validate(); err != nil {
		return CallID{}, err
	}

	id := NewCallID()
	logrus.WithFields(logrus.Fields{
		"function": "Manager.InitiateCall",
		"call_id":  id.String(),
		"callee":   callee.String(),
	}).Info("Initiating call")

	session, err := m.negotiator.NewSession(ctx, constraints)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Manager.InitiateCall",
			"call_id":  id.String(),
			"error":    err.Error(),
		}).Error("Failed to create negotiation session")
		return CallID{}, &ConfigError{Op: "create session", Err: err}
	}

	tracks, err := m.createTracks(constraints)
	if err != nil {
		_ = session.Close()
		return CallID{}, &ConfigError{Op: "create tracks", Err: err}
	}

	e := &entry[P]{
		id:          id,
		peer:        callee,
		state:       StateCalling,
		constraints: constraints,
		session:     session,
		tracks:      tracks,
	}

	session.OnICECandidate(func(candidate string, sdpMid *string, mlineIndex *uint16) {
		m.sendCandidate(callee, id, candidate, sdpMid, mlineIndex)
	})

	offerSDP, err := session.CreateOffer(ctx)
	if err != nil {
		_ = session.Close()
		m.releaseTracks(e)
		logrus.WithFields(logrus.Fields{
			"function": "Manager.InitiateCall",
			"call_id":  id.String(),
			"error":    err.Error(),
		}).Error("Failed to create offer")
		return CallID{}, &ConfigError{Op: "create offer", Err: err}
	}

	if err := m.register(e); err != nil {
		_ = session.Close()
		m.releaseTracks(e)
		return CallID{}, err
	}

	offer := signaling.Offer{Session: id.String(), SDP: offerSDP}
	if endpoint, err := m.handler.DiscoverPeerEndpoint(ctx, callee); err == nil && endpoint != nil {
		offer.Endpoint = endpoint
	}
	if err := m.handler.SendMessage(ctx, callee, offer); err != nil {
		m.unregister(id)
		_ = session.Close()
		m.releaseTracks(e)
		return CallID{}, fmt.Errorf("send offer: %w", err)
	}

	m.hub.Publish(Event[P]{Kind: EventStateChanged, CallID: id, Peer: callee, State: StateCalling})
	return id, nil
}

// HandleIncomingOffer registers an inbound call in Calling state. The
// negotiation session is created later, when AcceptCall supplies the
// local constraints. The offer's session id becomes the call id.
func (m *Manager[P]) HandleIncomingOffer(caller P, offer signaling.Offer) (CallID, error) {
	id, err := ParseCallID(offer.Session)
	if err != nil {
		return CallID{}, fmt.Errorf("%w: %v", signaling.ErrInvalidMessage, err)
	}

	e := &entry[P]{
		id:          id,
		peer:        caller,
		state:       StateCalling,
		remoteOffer: offer.SDP,
	}
	if err := m.register(e); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Manager.HandleIncomingOffer",
			"call_id":  id.String(),
			"caller":   caller.String(),
			"error":    err.Error(),
		}).Warn("Rejected incoming offer")
		return CallID{}, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "Manager.HandleIncomingOffer",
		"call_id":  id.String(),
		"caller":   caller.String(),
	}).Info("Incoming call")

	m.hub.Publish(Event[P]{Kind: EventIncomingCall, CallID: id, Peer: caller, State: StateCalling})
	return id, nil
}

// AcceptCall moves a call in Calling state to Connected. For an
// inbound call it creates the negotiation session from the stored
// remote offer and sends the SDP answer back. A call this side
// initiated already carries its session and tracks, so accepting it
// only confirms the connection locally.
func (m *Manager[P]) AcceptCall(ctx context.Context, id CallID, constraints MediaConstraints) error {
	if err := constraints.Validate(); err != nil {
		return err
	}
	e, err := m.lookup(id)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Manager.AcceptCall",
			"call_id":  id.String(),
		}).Warn("Attempted to accept non-existent call")
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateCalling {
		return fmt.Errorf("%w: cannot accept call in state %s", ErrInvalidState, e.state)
	}

	if e.session != nil {
		e.state = StateConnected
		peer := e.peer

		logrus.WithFields(logrus.Fields{
			"function": "Manager.AcceptCall",
			"call_id":  id.String(),
		}).Info("Call accepted")

		m.hub.Publish(Event[P]{Kind: EventStateChanged, CallID: id, Peer: peer, State: StateConnected})
		return nil
	}

	if e.remoteOffer == "" {
		return fmt.Errorf("%w: no offer to accept", ErrInvalidState)
	}

	session, err := m.negotiator.NewSession(ctx, constraints)
	if err != nil {
		return &ConfigError{Op: "create session", Err: err}
	}
	tracks, err := m.createTracks(constraints)
	if err != nil {
		_ = session.Close()
		return &ConfigError{Op: "create tracks", Err: err}
	}

	peer := e.peer
	session.OnICECandidate(func(candidate string, sdpMid *string, mlineIndex *uint16) {
		m.sendCandidate(peer, id, candidate, sdpMid, mlineIndex)
	})

	answerSDP, err := session.CreateAnswer(ctx, e.remoteOffer)
	if err != nil {
		_ = session.Close()
		m.dropTracks(tracks)
		return &ConfigError{Op: "create answer", Err: err}
	}

	answer := signaling.Answer{Session: id.String(), SDP: answerSDP}
	if err := m.handler.SendMessage(ctx, peer, answer); err != nil {
		_ = session.Close()
		m.dropTracks(tracks)
		return fmt.Errorf("send answer: %w", err)
	}

	e.session = session
	e.constraints = constraints
	e.tracks = tracks
	e.state = StateConnected

	// Candidates that arrived before accept are applied now.
	for _, c := range e.pendingICE {
		if err := session.AddICECandidate(c.candidate, c.sdpMid, c.mlineIndex); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Manager.AcceptCall",
				"call_id":  id.String(),
				"error":    err.Error(),
			}).Warn("Failed to apply buffered ICE candidate")
		}
	}
	e.pendingICE = nil

	logrus.WithFields(logrus.Fields{
		"function": "Manager.AcceptCall",
		"call_id":  id.String(),
	}).Info("Call accepted")

	m.hub.Publish(Event[P]{Kind: EventStateChanged, CallID: id, Peer: peer, State: StateConnected})
	return nil
}

// RejectCall declines a call. The call moves to Failed and stays in
// the registry for inspection; a Bye with reason "rejected" is sent
// best effort.
func (m *Manager[P]) RejectCall(ctx context.Context, id CallID) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.state = StateFailed
	session := e.session
	e.session = nil
	peer := e.peer
	e.mu.Unlock()

	if session != nil {
		_ = session.Close()
	}

	reason := "rejected"
	bye := signaling.Bye{Session: id.String(), Reason: &reason}
	if err := m.handler.SendMessage(ctx, peer, bye); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Manager.RejectCall",
			"call_id":  id.String(),
			"error":    err.Error(),
		}).Warn("Failed to send bye for rejected call")
	}

	m.hub.Publish(Event[P]{Kind: EventStateChanged, CallID: id, Peer: peer, State: StateFailed, Reason: reason})
	return nil
}

// EndCall hangs up: the call leaves the registry and its session is
// closed before the Bye goes out, so local teardown cannot be undone
// by a signaling failure. The Bye send error, if any, is returned.
func (m *Manager[P]) EndCall(ctx context.Context, id CallID) error {
	e, err := m.remove(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	session := e.session
	e.session = nil
	peer := e.peer
	e.mu.Unlock()

	if session != nil {
		_ = session.Close()
	}
	m.releaseTracks(e)

	logrus.WithFields(logrus.Fields{
		"function": "Manager.EndCall",
		"call_id":  id.String(),
	}).Info("Call ended")

	m.hub.Publish(Event[P]{Kind: EventCallEnded, CallID: id, Peer: peer})

	reason := "ended"
	bye := signaling.Bye{Session: id.String(), Reason: &reason}
	if err := m.handler.SendMessage(ctx, peer, bye); err != nil {
		return fmt.Errorf("send bye: %w", err)
	}
	return nil
}

// HandleRemoteBye tears a call down after the remote peer hung up. No
// Bye is sent back.
func (m *Manager[P]) HandleRemoteBye(id CallID, reason string) error {
	e, err := m.remove(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	session := e.session
	e.session = nil
	peer := e.peer
	e.mu.Unlock()

	if session != nil {
		_ = session.Close()
	}
	m.releaseTracks(e)

	logrus.WithFields(logrus.Fields{
		"function": "Manager.HandleRemoteBye",
		"call_id":  id.String(),
		"reason":   reason,
	}).Info("Remote peer ended call")

	m.hub.Publish(Event[P]{Kind: EventCallEnded, CallID: id, Peer: peer, Reason: reason})
	return nil
}

// CallState reports the state of a call, if registered.
func (m *Manager[P]) CallState(id CallID) (State, bool) {
	m.mu.RLock()
	e, ok := m.calls[id]
	m.mu.RUnlock()
	if !ok {
		return StateFailed, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, true
}

// RemotePeer reports the remote peer of a call.
func (m *Manager[P]) RemotePeer(id CallID) (P, error) {
	e, err := m.lookup(id)
	if err != nil {
		var zero P
		return zero, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.peer, nil
}

// CreateOffer produces a fresh SDP offer for an established session,
// for renegotiation.
func (m *Manager[P]) CreateOffer(ctx context.Context, id CallID) (string, error) {
	e, err := m.lookup(id)
	if err != nil {
		return "", err
	}
	e.mu.Lock()
	session := e.session
	e.mu.Unlock()
	if session == nil {
		return "", fmt.Errorf("%w: no negotiation session", ErrInvalidState)
	}

	sdp, err := session.CreateOffer(ctx)
	if err != nil {
		return "", &ConfigError{Op: "create offer", Err: err}
	}
	return sdp, nil
}

// HandleAnswer installs the remote SDP answer. On the caller side this
// completes setup, so a call still in Calling moves to Connected.
func (m *Manager[P]) HandleAnswer(ctx context.Context, id CallID, sdp string) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	session := e.session
	e.mu.Unlock()
	if session == nil {
		return fmt.Errorf("%w: no negotiation session", ErrInvalidState)
	}

	if err := session.SetRemoteAnswer(ctx, sdp); err != nil {
		return &ConfigError{Op: "set remote answer", Err: err}
	}

	e.mu.Lock()
	connected := false
	var peer P
	if e.state == StateCalling {
		e.state = StateConnected
		connected = true
		peer = e.peer
	}
	e.mu.Unlock()

	if connected {
		logrus.WithFields(logrus.Fields{
			"function": "Manager.HandleAnswer",
			"call_id":  id.String(),
		}).Info("Call connected")
		m.hub.Publish(Event[P]{Kind: EventStateChanged, CallID: id, Peer: peer, State: StateConnected})
	}
	return nil
}

// AddICECandidate feeds a remote candidate into the call's session.
// Candidates arriving before the callee accepts are buffered and
// applied when the session exists.
func (m *Manager[P]) AddICECandidate(id CallID, candidate string, sdpMid *string, mlineIndex *uint16) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if e.session == nil {
		e.pendingICE = append(e.pendingICE, pendingCandidate{candidate, sdpMid, mlineIndex})
		e.mu.Unlock()
		return nil
	}
	session := e.session
	e.mu.Unlock()

	if err := session.AddICECandidate(candidate, sdpMid, mlineIndex); err != nil {
		return &ConfigError{Op: "add ice candidate", Err: err}
	}
	return nil
}

// StartICEGathering verifies the call exists. Gathering itself begins
// when the local description is installed during offer or answer
// creation.
func (m *Manager[P]) StartICEGathering(_ context.Context, id CallID) error {
	_, err := m.lookup(id)
	return err
}

// ActiveCalls returns the registered call ids.
func (m *Manager[P]) ActiveCalls() []CallID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]CallID, 0, len(m.calls))
	for id := range m.calls {
		out = append(out, id)
	}
	return out
}

// SubscribeEvents registers a call event listener. Slow listeners
// lose events rather than stall call handling.
func (m *Manager[P]) SubscribeEvents() (<-chan Event[P], func()) {
	return m.hub.Subscribe()
}

// Close tears down every call and the event hub.
func (m *Manager[P]) Close() {
	m.mu.Lock()
	entries := make([]*entry[P], 0, len(m.calls))
	for id, e := range m.calls {
		entries = append(entries, e)
		delete(m.calls, id)
	}
	m.mu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
		session := e.session
		e.session = nil
		e.mu.Unlock()
		if session != nil {
			_ = session.Close()
		}
		m.releaseTracks(e)
	}

	m.media.Close()
	m.hub.Close()
}

// register adds a call to the registry. An id that is already present
// is rejected so a replayed offer cannot clobber a live call.
func (m *Manager[P]) register(e *entry[P]) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.calls[e.id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateCall, e.id.String())
	}
	if len(m.calls) >= m.config.MaxConcurrentCalls {
		return fmt.Errorf("%w: limit %d", ErrTooManyCalls, m.config.MaxConcurrentCalls)
	}
	m.calls[e.id] = e
	return nil
}

func (m *Manager[P]) unregister(id CallID) {
	m.mu.Lock()
	delete(m.calls, id)
	m.mu.Unlock()
}

func (m *Manager[P]) lookup(id CallID) (*entry[P], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.calls[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCallNotFound, id.String())
	}
	return e, nil
}

func (m *Manager[P]) remove(id CallID) (*entry[P], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.calls[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCallNotFound, id.String())
	}
	delete(m.calls, id)
	return e, nil
}

func (m *Manager[P]) createTracks(constraints MediaConstraints) ([]*media.Track, error) {
	var tracks []*media.Track
	if constraints.Audio {
		t, err := m.media.CreateAudioTrack()
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	if constraints.Video {
		t, err := m.media.CreateVideoTrack()
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	if constraints.ScreenShare {
		t, err := m.media.CreateScreenTrack()
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

func (m *Manager[P]) dropTracks(tracks []*media.Track) {
	for _, t := range tracks {
		_ = m.media.RemoveTrack(t.ID)
	}
}

func (m *Manager[P]) releaseTracks(e *entry[P]) {
	e.mu.Lock()
	tracks := e.tracks
	e.tracks = nil
	e.mu.Unlock()
	for _, t := range tracks {
		if err := m.media.RemoveTrack(t.ID); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Manager.releaseTracks",
				"track_id": t.ID,
			}).Debug("Track already removed")
		}
	}
}

// sendCandidate forwards a locally gathered candidate to the remote
// peer. Failures are logged; candidate loss degrades connectivity but
// must not abort the call.
func (m *Manager[P]) sendCandidate(peer P, id CallID, candidate string, sdpMid *string, mlineIndex *uint16) {
	msg := signaling.IceCandidate{
		Session:    id.String(),
		Candidate:  candidate,
		SDPMid:     sdpMid,
		MLineIndex: mlineIndex,
	}
	if err := m.handler.SendMessage(context.Background(), peer, msg); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Manager.sendCandidate",
			"call_id":  id.String(),
			"peer":     peer.String(),
			"error":    err.Error(),
		}).Warn("Failed to send ICE candidate")
	}
}
