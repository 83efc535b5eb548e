package stream

// Config describes the bitrate envelope and latency bound for one
// stream type.
type Config struct {
	Type             Type
	TargetBitrateBps uint32
	MaxBitrateBps    uint32
	MaxLatencyMs     uint32
}

// AudioConfig returns the audio stream envelope.
func AudioConfig() Config {
	return Config{
		Type:             TypeAudio,
		TargetBitrateBps: 64_000,
		MaxBitrateBps:    128_000,
		MaxLatencyMs:     50,
	}
}

// VideoConfig returns the video stream envelope.
func VideoConfig() Config {
	return Config{
		Type:             TypeVideo,
		TargetBitrateBps: 1_000_000,
		MaxBitrateBps:    2_000_000,
		MaxLatencyMs:     150,
	}
}

// ScreenShareConfig returns the screen-share stream envelope.
func ScreenShareConfig() Config {
	return Config{
		Type:             TypeScreenShare,
		TargetBitrateBps: 500_000,
		MaxBitrateBps:    1_500_000,
		MaxLatencyMs:     200,
	}
}
