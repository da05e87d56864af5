package model

import "time"

// SessionStatus represents where a session is in its parse-then-enrich
// lifecycle. Transitions are monotonic except error, which is reachable
// from parsing and looking_up.
type SessionStatus string

const (
	SessionStatusParsing   SessionStatus = "parsing"
	SessionStatusParsed    SessionStatus = "parsed"
	SessionStatusLookingUp SessionStatus = "looking_up"
	SessionStatusComplete  SessionStatus = "complete"
	SessionStatusError     SessionStatus = "error"
)

// Session is the lifecycle container for a single uploaded wine list.
// It is mutated by exactly one background writer at a time and read
// concurrently by pollers; writers publish complete snapshots via the
// session store rather than mutating a shared instance in place.
type Session struct {
	ID        string        `json:"id"`
	Currency  string        `json:"currency"`
	Status    SessionStatus `json:"status"`
	Wines     []WineRecord  `json:"wines"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Error     string        `json:"error,omitempty"`
}

// Clone returns a deep copy of the session, safe to publish while the
// original keeps being mutated.
func (s *Session) Clone() *Session {
	c := *s
	c.Wines = make([]WineRecord, len(s.Wines))
	for i, w := range s.Wines {
		c.Wines[i] = w.Clone()
	}
	return &c
}
