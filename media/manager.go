// Package media manages local capture devices and the WebRTC tracks
// fed from them. Device enumeration is stubbed to a default pair until
// a platform capture backend is wired in.
package media

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v3"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/peercall/event"
	"github.com/opd-ai/peercall/stream"
)

// Media errors.
var (
	// ErrDeviceNotFound indicates the requested capture device does not
	// exist.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrTrackNotFound indicates the track id is not registered.
	ErrTrackNotFound = errors.New("track not found")
)

// EventKind classifies manager events.
type EventKind int

const (
	// DeviceConnected reports a capture device becoming available.
	DeviceConnected EventKind = iota
	// DeviceDisconnected reports a capture device going away.
	DeviceDisconnected
	// TrackStarted reports a new local track.
	TrackStarted
	// TrackStopped reports a removed local track.
	TrackStopped
)

// Event is one media lifecycle notification.
type Event struct {
	Kind     EventKind
	DeviceID string
	TrackID  string
}

// Device is one capture device.
type Device struct {
	ID   string
	Name string
}

// Track is a local WebRTC track with its stream classification.
type Track struct {
	ID    string
	Type  stream.Type
	Local *webrtc.TrackLocalStaticSample
}

// Manager owns the local tracks and publishes lifecycle events.
// Subscribers that fall behind lose events rather than stall capture.
type Manager struct {
	mu           sync.Mutex
	hub          *event.Hub[Event]
	audioDevices []Device
	videoDevices []Device
	tracks       []*Track
	nextTrack    int
}

// NewManager creates an empty media manager.
func NewManager() *Manager {
	return &Manager{
		hub: event.NewHub[Event](100),
	}
}

// Initialize enumerates capture devices. Currently registers a default
// audio and video device pair; real enumeration needs a platform
// backend.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	m.audioDevices = []Device{{ID: "default-audio", Name: "Default Audio Device"}}
	m.videoDevices = []Device{{ID: "default-video", Name: "Default Video Device"}}
	m.mu.Unlock()

	m.hub.Publish(Event{Kind: DeviceConnected, DeviceID: "default-audio"})
	m.hub.Publish(Event{Kind: DeviceConnected, DeviceID: "default-video"})

	logrus.WithFields(logrus.Fields{
		"function": "Manager.Initialize",
	}).Info("Media devices initialized")
	return nil
}

// AudioDevices returns the known audio capture devices.
func (m *Manager) AudioDevices() []Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Device(nil), m.audioDevices...)
}

// VideoDevices returns the known video capture devices.
func (m *Manager) VideoDevices() []Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Device(nil), m.videoDevices...)
}

// CreateAudioTrack creates a local Opus audio track.
func (m *Manager) CreateAudioTrack() (*Track, error) {
	return m.createTrack(stream.TypeAudio, webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeOpus,
		ClockRate: 48000,
		Channels:  2,
	})
}

// CreateVideoTrack creates a local VP8 video track.
func (m *Manager) CreateVideoTrack() (*Track, error) {
	return m.createTrack(stream.TypeVideo, webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeVP8,
		ClockRate: 90000,
	})
}

// CreateScreenTrack creates a local VP8 track for screen capture.
func (m *Manager) CreateScreenTrack() (*Track, error) {
	return m.createTrack(stream.TypeScreenShare, webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeVP8,
		ClockRate: 90000,
	})
}

func trackPrefix(t stream.Type) string {
	switch t {
	case stream.TypeVideo:
		return "video"
	case stream.TypeScreenShare:
		return "screen"
	case stream.TypeData:
		return "data"
	default:
		return "audio"
	}
}

func (m *Manager) createTrack(t stream.Type, codec webrtc.RTPCodecCapability) (*Track, error) {
	m.mu.Lock()
	id := fmt.Sprintf("%s-%d", trackPrefix(t), m.nextTrack)
	m.nextTrack++
	m.mu.Unlock()

	local, err := webrtc.NewTrackLocalStaticSample(codec, id, trackPrefix(t))
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Manager.createTrack",
			"track_id": id,
			"error":    err.Error(),
		}).Error("Failed to create local track")
		return nil, fmt.Errorf("create %s track: %w", t.String(), err)
	}

	track := &Track{ID: id, Type: t, Local: local}
	m.mu.Lock()
	m.tracks = append(m.tracks, track)
	m.mu.Unlock()

	m.hub.Publish(Event{Kind: TrackStarted, TrackID: id})

	logrus.WithFields(logrus.Fields{
		"function":    "Manager.createTrack",
		"track_id":    id,
		"stream_type": t.String(),
		"mime_type":   codec.MimeType,
	}).Debug("Local track created")

	return track, nil
}

// Tracks returns all local tracks.
func (m *Manager) Tracks() []*Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Track(nil), m.tracks...)
}

// RemoveTrack removes a track by id.
func (m *Manager) RemoveTrack(id string) error {
	m.mu.Lock()
	idx := -1
	for i, t := range m.tracks {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"function": "Manager.RemoveTrack",
			"track_id": id,
		}).Warn("Track not found for removal")
		return fmt.Errorf("%w: %s", ErrTrackNotFound, id)
	}
	m.tracks = append(m.tracks[:idx], m.tracks[idx+1:]...)
	m.mu.Unlock()

	m.hub.Publish(Event{Kind: TrackStopped, TrackID: id})
	return nil
}

// SubscribeEvents registers a lifecycle event listener.
func (m *Manager) SubscribeEvents() (<-chan Event, func()) {
	return m.hub.Subscribe()
}

// Close releases the event hub.
func (m *Manager) Close() {
	m.hub.Close()
}
