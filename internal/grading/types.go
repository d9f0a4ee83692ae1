package grading

import "encoding/json"

// WidgetType identifies how a question is answered and therefore how an
// answer is compared.
type WidgetType string

const (
	WidgetMCQ        WidgetType = "MCQ"
	WidgetTrueFalse  WidgetType = "TRUE_FALSE"
	WidgetYesNo      WidgetType = "YES_NO"
	WidgetMCM        WidgetType = "MCM"
	WidgetOrdering   WidgetType = "ORDERING"
	WidgetMatching   WidgetType = "MATCHING"
	WidgetFillBlanks WidgetType = "FILL_BLANKS"
)

// Known reports whether w is a widget type CheckAnswer can grade.
func (w WidgetType) Known() bool {
	switch w {
	case WidgetMCQ, WidgetTrueFalse, WidgetYesNo, WidgetMCM, WidgetOrdering, WidgetMatching, WidgetFillBlanks:
		return true
	}
	return false
}

// Question is an answer key. CorrectAnswer holds the expected value as
// JSON: a scalar for single-choice widgets, an array for MCM, ORDERING and
// FILL_BLANKS, and an object for MATCHING.
type Question struct {
	ID            string          `json:"id" yaml:"id"`
	LessonID      string          `json:"lessonId,omitempty" yaml:"lessonId"`
	AtomID        string          `json:"atomId" yaml:"atomId"`
	WidgetType    WidgetType      `json:"widgetType" yaml:"widgetType"`
	CorrectAnswer json.RawMessage `json:"correctAnswer" yaml:"-"`
}

// Submission is one learner answer.
type Submission struct {
	QuestionID string          `json:"questionId"`
	WidgetType WidgetType      `json:"widgetType"`
	RawAnswer  json.RawMessage `json:"answer"`
}

// Result summarizes a graded batch.
type Result struct {
	CorrectCount   int            `json:"correctCount"`
	TotalQuestions int            `json:"totalQuestions"`
	Percentage     int            `json:"percentage"`
	PerAtomDeltas  map[string]int `json:"perAtomDeltas"`
	Atoms          []AtomOutcome  `json:"atoms"`
	Skipped        []string       `json:"skipped,omitempty"`
}

// AtomOutcome reports how one atom's accumulated delta was applied.
type AtomOutcome struct {
	AtomID        string `json:"atomId"`
	Delta         int    `json:"delta"`
	Applied       bool   `json:"applied"`
	Outcome       string `json:"outcome,omitempty"`
	GlobalMastery int    `json:"globalMastery,omitempty"`
	Error         string `json:"error,omitempty"`
}
