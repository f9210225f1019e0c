package playback

import (
	"math"
	"sync/atomic"
)

// ManualTransport is a TransportInfo whose rate is set explicitly by the
// playback driver. 0 means stopped; 1 is normal speed.
type ManualTransport struct {
	rate atomic.Uint64
}

// NewManualTransport creates a stopped transport.
func NewManualTransport() *ManualTransport {
	return &ManualTransport{}
}

// SetRate records the current playback rate.
func (t *ManualTransport) SetRate(rate float64) {
	t.rate.Store(math.Float64bits(rate))
}

// PlaybackRate returns the last recorded rate.
func (t *ManualTransport) PlaybackRate() float64 {
	return math.Float64frombits(t.rate.Load())
}
