package session

import (
	"sync"
	"time"

	"exam-session-service/internal/domain"
)

// Decision is the monitor's verdict for one observed signal.
type Decision int

const (
	Continue Decision = iota
	ForceTerminate
)

func (d Decision) String() string {
	if d == ForceTerminate {
		return "force_terminate"
	}
	return "continue"
}

// Policy decides whether the accumulated violations end the session.
// count includes the signal being decided.
type Policy interface {
	Decide(count int, signal domain.Signal) Decision
}

// AdvisoryPolicy logs and warns but never terminates. This is the default:
// violations are kept for later review.
type AdvisoryPolicy struct{}

func (AdvisoryPolicy) Decide(int, domain.Signal) Decision { return Continue }

// ThresholdPolicy terminates once Limit signals have been observed.
// A Limit of zero or less behaves like AdvisoryPolicy.
type ThresholdPolicy struct {
	Limit int
}

func (p ThresholdPolicy) Decide(count int, _ domain.Signal) Decision {
	if p.Limit > 0 && count >= p.Limit {
		return ForceTerminate
	}
	return Continue
}

// PolicyFromLimit returns ThresholdPolicy for positive limits and AdvisoryPolicy otherwise.
func PolicyFromLimit(limit int) Policy {
	if limit > 0 {
		return ThresholdPolicy{Limit: limit}
	}
	return AdvisoryPolicy{}
}

// Monitor classifies and counts violation signals for one session.
type Monitor struct {
	policy Policy
	now    func() time.Time

	mu     sync.Mutex
	log    []domain.ViolationRecord
	closed bool
}

func NewMonitor(policy Policy) *Monitor {
	if policy == nil {
		policy = AdvisoryPolicy{}
	}
	return &Monitor{policy: policy, now: time.Now}
}

// Observe records the signal and returns the policy decision with the stored record.
// After Close it records nothing and always returns Continue.
func (m *Monitor) Observe(signal domain.Signal) (Decision, domain.ViolationRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if signal.At.IsZero() {
		signal.At = m.now()
	}
	if m.closed {
		return Continue, domain.ViolationRecord{Kind: signal.Kind, Detail: signal.Detail, At: signal.At}, false
	}

	record := domain.ViolationRecord{
		Seq:    len(m.log) + 1,
		Kind:   signal.Kind,
		Detail: signal.Detail,
		At:     signal.At,
	}
	m.log = append(m.log, record)
	return m.policy.Decide(len(m.log), signal), record, true
}

// Count returns the number of recorded violations.
func (m *Monitor) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.log)
}

// Log returns a copy of the recorded violations.
func (m *Monitor) Log() []domain.ViolationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ViolationRecord, len(m.log))
	copy(out, m.log)
	return out
}

// Close stops accepting signals. Idempotent.
func (m *Monitor) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

// Warning is the message shown to the candidate for a signal kind.
func Warning(kind domain.SignalKind) string {
	switch kind {
	case domain.SignalFocusLost:
		return "Tab switching detected. This has been logged."
	case domain.SignalBlockedClipboard, domain.SignalBlockedPaste:
		return "Copy/paste operations are not allowed during the exam."
	case domain.SignalBlockedSelectAll:
		return "Select-all is not allowed during the exam."
	default:
		return "Suspicious activity detected. This has been logged."
	}
}
