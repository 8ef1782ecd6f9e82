package domain

import (
	"errors"
	"testing"
)

func TestValidateQuestionSet(t *testing.T) {
	valid := []Question{
		{ID: "q1", Kind: KindChoice, Prompt: "Pick one", Options: []string{"a", "b"}},
		{ID: "q2", Kind: KindEssay, Prompt: "Explain", MaxWords: 200},
		{ID: "q3", Kind: KindCode, Prompt: "Reverse a list", Language: "go"},
	}
	if err := ValidateQuestionSet(valid, 60); err != nil {
		t.Fatalf("expected valid set, got %v", err)
	}

	cases := []struct {
		name      string
		questions []Question
		duration  int
		want      error
	}{
		{"empty", nil, 60, ErrEmptyQuestionSet},
		{"zero duration", valid, 0, ErrInvalidDuration},
		{"negative duration", valid, -5, ErrInvalidDuration},
		{"missing id", []Question{{Kind: KindEssay}}, 60, ErrInvalidQuestionSet},
		{"unknown kind", []Question{{ID: "q1", Kind: "oral"}}, 60, ErrInvalidQuestionSet},
		{"choice without options", []Question{{ID: "q1", Kind: KindChoice}}, 60, ErrInvalidQuestionSet},
		{"duplicate ids", []Question{{ID: "q1", Kind: KindEssay}, {ID: "q1", Kind: KindCode}}, 60, ErrInvalidQuestionSet},
	}
	for _, tc := range cases {
		if err := ValidateQuestionSet(tc.questions, tc.duration); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}
