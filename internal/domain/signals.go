package domain

import "time"

// SignalKind is an open set; new detection heuristics add a constant, nothing else.
type SignalKind string

const (
	SignalFocusLost        SignalKind = "focus_lost"
	SignalBlockedClipboard SignalKind = "blocked_clipboard"
	SignalBlockedSelectAll SignalKind = "blocked_select_all"
	SignalBlockedPaste     SignalKind = "blocked_paste"
)

// Signal is a discrete environment event suggesting possible dishonesty.
type Signal struct {
	Kind   SignalKind `json:"kind"`
	Detail string     `json:"detail,omitempty"`
	At     time.Time  `json:"at"`
}

// ViolationRecord is one entry of a session's violation log.
type ViolationRecord struct {
	Seq    int        `json:"seq"`
	Kind   SignalKind `json:"kind"`
	Detail string     `json:"detail,omitempty"`
	At     time.Time  `json:"at"`
}

// Tick is emitted by a session clock. Expired marks the final tick.
type Tick struct {
	Remaining int
	Expired   bool
}
