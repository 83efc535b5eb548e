package stream

// QoS carries the quality-of-service targets for one stream.
//
// Priority here is a transport hint where higher means more important;
// it deliberately runs opposite to Type.Priority's scheduling scale.
type QoS struct {
	// TargetLatencyMs is the delivery latency budget in milliseconds.
	TargetLatencyMs uint32
	// Priority is the transport importance hint, higher = more
	// important.
	Priority uint8
}

// AudioQoS returns the audio preset: low latency, highest importance.
func AudioQoS() QoS {
	return QoS{TargetLatencyMs: 50, Priority: 10}
}

// VideoQoS returns the video preset: moderate latency, medium
// importance.
func VideoQoS() QoS {
	return QoS{TargetLatencyMs: 150, Priority: 5}
}

// ScreenShareQoS returns the screen-share preset: higher latency
// acceptable, lower importance.
func ScreenShareQoS() QoS {
	return QoS{TargetLatencyMs: 200, Priority: 3}
}

// DataQoS returns a dedicated preset for data channels: generous
// latency budget, lowest importance. Note that QoSFor still maps data
// streams to the audio preset for compatibility; callers wanting this
// preset pass it explicitly.
func DataQoS() QoS {
	return QoS{TargetLatencyMs: 500, Priority: 1}
}

// QoSFor returns the preset for a stream type.
//
// Data streams map to the audio preset. This is a carried-over legacy
// default, not a considered policy; use CreateStreamWithQoS with
// DataQoS to opt out.
func QoSFor(t Type) QoS {
	switch t {
	case TypeVideo:
		return VideoQoS()
	case TypeScreenShare:
		return ScreenShareQoS()
	default:
		return AudioQoS()
	}
}
