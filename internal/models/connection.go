package models

import "time"

// Connection identifies one server relationship. Multiple connections may
// coexist; the active one is selected by a pointer in app state, not here.
//
// Credentials are mutated in place on refresh; the row is deleted on logout.
type Connection struct {
	ID            string
	ServerURL     string
	Credentials   Credentials
	CustomHeaders map[string]string
	Alias         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DisplayName returns the alias when set, otherwise the server URL.
func (c *Connection) DisplayName() string {
	if c.Alias != "" {
		return c.Alias
	}
	return c.ServerURL
}
