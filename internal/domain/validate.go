package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateQuestionSet checks the inputs a session is created from.
func ValidateQuestionSet(questions []Question, durationSeconds int) error {
	if len(questions) == 0 {
		return ErrEmptyQuestionSet
	}
	if durationSeconds <= 0 {
		return ErrInvalidDuration
	}
	seen := make(map[string]struct{}, len(questions))
	for i := range questions {
		if err := validate.Struct(questions[i]); err != nil {
			return fmt.Errorf("%w: question %d: %v", ErrInvalidQuestionSet, i, err)
		}
		if _, dup := seen[questions[i].ID]; dup {
			return fmt.Errorf("%w: duplicate question id %q", ErrInvalidQuestionSet, questions[i].ID)
		}
		seen[questions[i].ID] = struct{}{}
	}
	return nil
}
