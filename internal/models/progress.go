package models

import "time"

// MediaProgress is the per-item playback progress record.
//
// TimeListened accumulates seconds of listening that have not yet been
// reported to the server; it is reset to zero on every successful sync and
// preserved across failed attempts.
type MediaProgress struct {
	ItemID       string
	CurrentTime  float64
	TimeListened float64
	Duration     float64
	LastPlayedAt time.Time
	UpdatedAt    time.Time
}

// Fraction returns the completed fraction of the item, in [0, 1].
func (p *MediaProgress) Fraction() float64 {
	if p.Duration <= 0 {
		return 0
	}
	f := p.CurrentTime / p.Duration
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
