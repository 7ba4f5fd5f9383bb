package domain

import "time"

// SummaryKindSession is the only summary kind currently produced: a rolling
// condensation of one session's older turns.
const SummaryKindSession = "session_summary"

// Summary is a condensed representation of the turns that fell out of the
// recent-message window. At most one summary per (session, kind) is active;
// superseding summaries deactivate their predecessor.
type Summary struct {
	ID         int64
	SessionID  string
	UserID     int64
	Role       Role
	Kind       string
	Content    string
	StartOrder int
	EndOrder   int
	Active     bool
	CreatedAt  time.Time
}
