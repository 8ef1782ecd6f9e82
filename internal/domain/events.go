package domain

// Event is anything dispatched to a session controller.
type Event interface {
	eventName() string
}

// EventName returns a stable name for logging.
func EventName(e Event) string {
	if e == nil {
		return "nil"
	}
	return e.eventName()
}

type NavigateTo struct{ Index int }

type NextQuestion struct{}

type PrevQuestion struct{}

type SetAnswer struct {
	QuestionID string
	Text       string
}

type ToggleFlag struct{ QuestionID string }

type ClockTick struct{ Remaining int }

type ClockExpired struct{}

type ViolationSignal struct{ Signal Signal }

type ManualSubmit struct{}

func (NavigateTo) eventName() string      { return "navigate" }
func (NextQuestion) eventName() string    { return "next" }
func (PrevQuestion) eventName() string    { return "prev" }
func (SetAnswer) eventName() string       { return "set_answer" }
func (ToggleFlag) eventName() string      { return "toggle_flag" }
func (ClockTick) eventName() string       { return "clock_tick" }
func (ClockExpired) eventName() string    { return "clock_expired" }
func (ViolationSignal) eventName() string { return "violation" }
func (ManualSubmit) eventName() string    { return "manual_submit" }
