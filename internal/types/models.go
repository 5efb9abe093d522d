package types

import "time"

// Event is one tracked celestial echo: a user asked about a body, the
// round-trip signal time was computed from the HORIZONS light-time, and a
// reply is owed once Deadline passes.
type Event struct {
	ID            int64      `json:"id"`
	MessageID     int64      `json:"message_id"`
	SessionKey    SessionKey `json:"session_key"`
	CelestialBody string     `json:"celestial_body"`
	Replied       bool       `json:"replied"`
	Deadline      time.Time  `json:"deadline"`
	RoundTrip     float64    `json:"round_trip"` // seconds
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Due reports whether the event still owes a reply at the given instant.
func (e *Event) Due(now time.Time) bool {
	return !e.Replied && !e.Deadline.After(now)
}
