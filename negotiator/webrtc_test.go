package negotiator

import (
	"context"
	"strings"
	"testing"

	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/peercall/call"
)

// TestWebRTCOfferAnswer verifies two real peer connections complete an
// offer and answer exchange entirely in process.
func TestWebRTCOfferAnswer(t *testing.T) {
	n := NewWebRTCNegotiator(webrtc.Configuration{})
	ctx := context.Background()

	caller, err := n.NewSession(ctx, call.AudioOnly())
	require.NoError(t, err)
	defer caller.Close()

	callee, err := n.NewSession(ctx, call.AudioOnly())
	require.NoError(t, err)
	defer callee.Close()

	offer, err := caller.CreateOffer(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(offer, "v=0"))
	assert.Contains(t, offer, "m=audio")

	answer, err := callee.CreateAnswer(ctx, offer)
	require.NoError(t, err)
	assert.Contains(t, answer, "m=audio")

	require.NoError(t, caller.SetRemoteAnswer(ctx, answer))
}

// TestWebRTCVideoTransceiver verifies video constraints add a video
// section to the offer.
func TestWebRTCVideoTransceiver(t *testing.T) {
	n := NewWebRTCNegotiator(webrtc.Configuration{})
	ctx := context.Background()

	s, err := n.NewSession(ctx, call.VideoCall())
	require.NoError(t, err)
	defer s.Close()

	offer, err := s.CreateOffer(ctx)
	require.NoError(t, err)
	assert.Contains(t, offer, "m=audio")
	assert.Contains(t, offer, "m=video")
}

// TestWebRTCRejectsGarbageOffer verifies a malformed remote offer is
// refused.
func TestWebRTCRejectsGarbageOffer(t *testing.T) {
	n := NewWebRTCNegotiator(webrtc.Configuration{})
	ctx := context.Background()

	s, err := n.NewSession(ctx, call.AudioOnly())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.CreateAnswer(ctx, "garbage")
	assert.Error(t, err)
}
