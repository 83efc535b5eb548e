package signaling

import (
	"encoding/json"
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func u16Ptr(v uint16) *uint16 { return &v }

func addrPtr(t *testing.T, s string) *netip.AddrPort {
	t.Helper()
	ap, err := netip.ParseAddrPort(s)
	require.NoError(t, err)
	return &ap
}

// allVariants returns one populated message of every variant.
func allVariants(t *testing.T) []Message {
	t.Helper()
	return []Message{
		Offer{Session: "sess-1", SDP: "v=0", Endpoint: addrPtr(t, "192.0.2.1:9000")},
		Answer{Session: "sess-1", SDP: "v=0", Endpoint: nil},
		IceCandidate{
			Session:    "sess-1",
			Candidate:  "candidate:1 1 UDP 2122260223 192.0.2.2 12345 typ host",
			SDPMid:     strPtr("0"),
			MLineIndex: u16Ptr(0),
		},
		IceComplete{Session: "sess-1"},
		Bye{Session: "sess-1", Reason: strPtr("done")},
	}
}

// TestMessageSessionID verifies every variant reports a non-empty,
// bounded session identifier.
func TestMessageSessionID(t *testing.T) {
	for _, msg := range allVariants(t) {
		assert.NotEmpty(t, msg.SessionID(), "variant %s", msg.Type())
		assert.LessOrEqual(t, len(msg.SessionID()), MaxSessionIDLength)
	}
}

// TestMessageRoundTrip verifies encode/decode round-trips byte for byte
// for every variant.
func TestMessageRoundTrip(t *testing.T) {
	for _, msg := range allVariants(t) {
		data, err := Marshal(msg)
		require.NoError(t, err, "variant %s", msg.Type())

		decoded, err := Unmarshal(data)
		require.NoError(t, err, "variant %s", msg.Type())
		assert.Equal(t, msg, decoded)

		reencoded, err := Marshal(decoded)
		require.NoError(t, err)
		assert.Equal(t, data, reencoded, "wire form must round-trip byte for byte")
	}
}

// TestMessageTypeTags verifies the lowercase type discriminator on the
// wire for every variant.
func TestMessageTypeTags(t *testing.T) {
	expected := map[string]Message{
		"offer":        Offer{Session: "s", SDP: "v=0"},
		"answer":       Answer{Session: "s", SDP: "v=0"},
		"icecandidate": IceCandidate{Session: "s", Candidate: "c"},
		"icecomplete":  IceComplete{Session: "s"},
		"bye":          Bye{Session: "s"},
	}
	for tag, msg := range expected {
		data, err := Marshal(msg)
		require.NoError(t, err)

		var envelope struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(data, &envelope))
		assert.Equal(t, tag, envelope.Type)
	}
}

// TestMarshalRejectsEmptySessionID verifies the session id invariant is
// enforced at encode time.
func TestMarshalRejectsEmptySessionID(t *testing.T) {
	_, err := Marshal(Offer{Session: "", SDP: "v=0"})
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

// TestMarshalRejectsOversizedSessionID verifies session ids above the
// bound are rejected.
func TestMarshalRejectsOversizedSessionID(t *testing.T) {
	long := strings.Repeat("x", MaxSessionIDLength+1)
	_, err := Marshal(Bye{Session: long})
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

// TestUnmarshalRejectsUnknownType verifies unknown discriminators fail
// rather than decode to a zero value.
func TestUnmarshalRejectsUnknownType(t *testing.T) {
	_, err := Unmarshal([]byte(`{"type":"renegotiate","session_id":"s"}`))
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

// TestUnmarshalRejectsMalformedInput covers garbage and invariant
// violations arriving off the wire.
func TestUnmarshalRejectsMalformedInput(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", "offer"},
		{"empty session id", `{"type":"offer","session_id":"","sdp":"v=0","quic_endpoint":null}`},
		{"oversized session id", `{"type":"icecomplete","session_id":"` + strings.Repeat("a", 101) + `"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Unmarshal([]byte(tc.data))
			assert.ErrorIs(t, err, ErrInvalidMessage)
		})
	}
}

// TestEndpointTextualForm verifies socket addresses serialize in
// standard textual form.
func TestEndpointTextualForm(t *testing.T) {
	msg := Offer{Session: "s", SDP: "v=0", Endpoint: addrPtr(t, "198.51.100.7:4433")}
	data, err := Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"198.51.100.7:4433"`)
}
