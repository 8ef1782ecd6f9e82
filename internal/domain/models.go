package domain

import "time"

// QuestionKind selects which metadata a question carries.
type QuestionKind string

const (
	KindChoice QuestionKind = "choice"
	KindEssay  QuestionKind = "essay"
	KindCode   QuestionKind = "code"
)

// Question is immutable once a session is created.
type Question struct {
	ID      string       `json:"id" validate:"required"`
	Kind    QuestionKind `json:"kind" validate:"oneof=choice essay code"`
	Prompt  string       `json:"prompt"`
	Options []string     `json:"options,omitempty" validate:"required_if=Kind choice"` // choice only
	// MaxWords is displayed to the candidate but never enforced.
	MaxWords int    `json:"maxWords,omitempty" validate:"gte=0"`
	Language string `json:"language,omitempty"` // code only
}

// Exam is the question set and time limit an exam launcher hands to the service.
type Exam struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	DurationSeconds int        `json:"durationSeconds"`
	Questions       []Question `json:"questions"`
}

// Status is the lifecycle state of a session.
type Status string

const (
	StatusActive     Status = "active"
	StatusSubmitting Status = "submitting"
	StatusSubmitted  Status = "submitted"
)

// TerminationReason records why a session reached StatusSubmitted.
type TerminationReason string

const (
	ReasonManual         TerminationReason = "manual"
	ReasonTimeout        TerminationReason = "timeout"
	ReasonViolationLimit TerminationReason = "violation_limit"
)

// View is the observable state returned from every dispatch.
type View struct {
	SessionID        string `json:"sessionId"`
	CurrentIndex     int    `json:"currentIndex"`
	RemainingSeconds int    `json:"remainingSeconds"`
	Status           Status `json:"status"`
	Violations       int    `json:"violations"`
	Warning          string `json:"warning,omitempty"`
}

// QuestionStatus is one cell of the question navigator grid.
type QuestionStatus struct {
	Index    int          `json:"index"`
	ID       string       `json:"id"`
	Kind     QuestionKind `json:"kind"`
	Answered bool         `json:"answered"`
	Flagged  bool         `json:"flagged"`
	Current  bool         `json:"current"`
}

// Overview summarizes navigation progress for a session.
type Overview struct {
	Questions []QuestionStatus `json:"questions"`
	Progress  float64          `json:"progress"`
	Remaining string           `json:"remaining"`
	LowTime   bool             `json:"lowTime"`
}

// SessionResult is the terminal snapshot handed to the grading collaborator.
type SessionResult struct {
	SessionID             string            `json:"sessionId"`
	ExamID                string            `json:"examId,omitempty"`
	Reason                TerminationReason `json:"terminationReason"`
	Answers               map[string]string `json:"answers"`
	Flagged               []string          `json:"flagged"`
	ViolationLog          []ViolationRecord `json:"violationLog"`
	FinalRemainingSeconds int               `json:"finalRemainingSeconds"`
	SubmittedAt           time.Time         `json:"submittedAt"`
}
