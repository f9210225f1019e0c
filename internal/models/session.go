package models

import (
	"fmt"
	"time"
)

// Chapter is a named range within a book.
type Chapter struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Title string  `json:"title"`
}

// AudioTrack is one streamable file of a book's media.
type AudioTrack struct {
	Index       int     `json:"index"`
	StartOffset float64 `json:"startOffset"`
	Duration    float64 `json:"duration"`
	ContentURL  string  `json:"contentUrl"`
}

// Book is the locally-persisted library item record.
type Book struct {
	ID        string
	Title     string
	Author    string
	Duration  float64
	Chapters  []Chapter
	UpdatedAt time.Time
}

// PlaySession is the wire shape returned by the session start endpoint.
type PlaySession struct {
	ID            string       `json:"sessionId"`
	LibraryItemID string       `json:"libraryItemId"`
	CurrentTime   float64      `json:"currentTime"`
	Duration      float64      `json:"duration"`
	Chapters      []Chapter    `json:"chapters,omitempty"`
	AudioTracks   []AudioTrack `json:"tracks,omitempty"`
	Title         string       `json:"title,omitempty"`
	Author        string       `json:"author,omitempty"`
}

// Session is the client-side handle for an open remote playback session.
type Session struct {
	ID     string
	ItemID string
}

// NewSession maps a start response to a session handle. Responses missing
// required fields cannot be represented as an open session.
func NewSession(ps *PlaySession) (Session, error) {
	if ps == nil || ps.ID == "" || ps.LibraryItemID == "" {
		return Session{}, fmt.Errorf("session response missing id or item id")
	}
	return Session{ID: ps.ID, ItemID: ps.LibraryItemID}, nil
}
