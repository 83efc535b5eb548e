package transport

import (
	"math/rand"
	"time"
)

// Conditions models a simulated network profile. Profiles are mutable
// at runtime on a SimTransport so resilience can be exercised against
// changing networks without rebuilding the fixture.
type Conditions struct {
	// LatencyMs is the one-way delivery delay in milliseconds.
	LatencyMs uint32
	// JitterMs is the variation applied around LatencyMs.
	JitterMs uint32
	// PacketLossPercent is the independent per-send drop probability,
	// 0 to 100.
	PacketLossPercent float64
	// BandwidthKbps is the available bandwidth in kilobits per second.
	BandwidthKbps uint32
	// Available reports whether the network currently exists at all.
	Available bool
}

// DefaultConditions returns a mild, always-available profile.
func DefaultConditions() Conditions {
	return Conditions{
		LatencyMs:         50,
		JitterMs:          5,
		PacketLossPercent: 0,
		BandwidthKbps:     1000,
		Available:         true,
	}
}

// PerfectConditions returns an ideal baseline profile.
func PerfectConditions() Conditions {
	return Conditions{
		LatencyMs:         1,
		JitterMs:          0,
		PacketLossPercent: 0,
		BandwidthKbps:     10000,
		Available:         true,
	}
}

// GoodConditions returns a typical broadband profile.
func GoodConditions() Conditions {
	return Conditions{
		LatencyMs:         20,
		JitterMs:          2,
		PacketLossPercent: 0.1,
		BandwidthKbps:     5000,
		Available:         true,
	}
}

// MobileConditions returns a 4G/LTE profile.
func MobileConditions() Conditions {
	return Conditions{
		LatencyMs:         100,
		JitterMs:          20,
		PacketLossPercent: 1.0,
		BandwidthKbps:     2000,
		Available:         true,
	}
}

// PoorConditions returns a congested, lossy profile.
func PoorConditions() Conditions {
	return Conditions{
		LatencyMs:         300,
		JitterMs:          50,
		PacketLossPercent: 5.0,
		BandwidthKbps:     500,
		Available:         true,
	}
}

// UnreliableConditions returns a high-loss profile.
func UnreliableConditions() Conditions {
	return Conditions{
		LatencyMs:         150,
		JitterMs:          100,
		PacketLossPercent: 15.0,
		BandwidthKbps:     1000,
		Available:         true,
	}
}

// IntermittentConditions returns a profile that starts unavailable and
// is expected to be toggled by the test driver.
func IntermittentConditions() Conditions {
	return Conditions{
		LatencyMs:         200,
		JitterMs:          30,
		PacketLossPercent: 2.0,
		BandwidthKbps:     1500,
		Available:         false,
	}
}

// OfflineConditions returns a profile with no connectivity.
func OfflineConditions() Conditions {
	return Conditions{
		LatencyMs:         0,
		JitterMs:          0,
		PacketLossPercent: 100,
		BandwidthKbps:     0,
		Available:         false,
	}
}

// ExpectedRTT estimates the round-trip time under these conditions.
func (c Conditions) ExpectedRTT() time.Duration {
	base := float64(c.LatencyMs) * 2
	jitter := float64(c.JitterMs) * 0.5
	return time.Duration(base+jitter) * time.Millisecond
}

// ThroughputForPacket estimates how long a packet of the given size
// occupies the link.
func (c Conditions) ThroughputForPacket(sizeBytes int) time.Duration {
	if c.BandwidthKbps == 0 || !c.Available {
		return 10 * time.Second
	}
	bits := float64(sizeBytes) * 8
	bps := float64(c.BandwidthKbps) * 1000
	return time.Duration(bits / bps * float64(time.Second))
}

// SuitableForRealtime reports whether the profile supports interactive
// media at all.
func (c Conditions) SuitableForRealtime() bool {
	return c.Available &&
		c.LatencyMs < 200 &&
		c.PacketLossPercent < 5.0 &&
		c.BandwidthKbps >= 500
}

// SuitableForVideo reports whether the profile supports video calling.
func (c Conditions) SuitableForVideo() bool {
	return c.Available &&
		c.LatencyMs < 150 &&
		c.PacketLossPercent < 2.0 &&
		c.BandwidthKbps >= 2000
}

// SuitableForAudio reports whether the profile supports audio-only
// calling.
func (c Conditions) SuitableForAudio() bool {
	return c.Available &&
		c.LatencyMs < 300 &&
		c.PacketLossPercent < 10.0 &&
		c.BandwidthKbps >= 100
}

// Description returns a human-readable quality label.
func (c Conditions) Description() string {
	switch {
	case !c.Available:
		return "Offline"
	case c.PacketLossPercent > 10:
		return "Very Poor"
	case c.PacketLossPercent > 5:
		return "Poor"
	case c.LatencyMs > 200:
		return "Poor (High Latency)"
	case c.LatencyMs > 100:
		return "Fair"
	case c.LatencyMs > 50:
		return "Good"
	case c.PacketLossPercent > 1:
		return "Good (Some Loss)"
	default:
		return "Excellent"
	}
}

// WithVariation returns a copy with random fluctuation applied, for
// soak tests that want a drifting network.
func (c Conditions) WithVariation() Conditions {
	loss := c.PacketLossPercent * (0.5 + rand.Float64()*1.5)
	if loss > 100 {
		loss = 100
	}
	return Conditions{
		LatencyMs:         uint32(float64(c.LatencyMs) * (0.8 + rand.Float64()*0.4)),
		JitterMs:          c.JitterMs,
		PacketLossPercent: loss,
		BandwidthKbps:     uint32(float64(c.BandwidthKbps) * (0.7 + rand.Float64()*0.6)),
		Available:         c.Available && rand.Float64() > 0.05,
	}
}

// Scenario names a reusable network profile for table-driven tests.
type Scenario struct {
	Name       string
	Conditions Conditions
}

// Scenarios returns the full set of named profiles.
func Scenarios() []Scenario {
	return []Scenario{
		{"perfect", PerfectConditions()},
		{"good", GoodConditions()},
		{"mobile", MobileConditions()},
		{"poor", PoorConditions()},
		{"unreliable", UnreliableConditions()},
		{"intermittent", IntermittentConditions()},
		{"offline", OfflineConditions()},
	}
}

// RealisticScenarios returns the profiles excluding the perfect and
// offline extremes.
func RealisticScenarios() []Scenario {
	all := Scenarios()
	out := make([]Scenario, 0, len(all)-2)
	for _, s := range all {
		if s.Name == "perfect" || s.Name == "offline" {
			continue
		}
		out = append(out, s)
	}
	return out
}
