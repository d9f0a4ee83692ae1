package grading

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/abhisek/atomastery/internal/structure"
)

type questionFile struct {
	Questions []Question `json:"questions"`
}

// LoadQuestions reads a YAML or JSON file holding a "questions" list.
func LoadQuestions(path string) ([]Question, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	qs, err := ParseQuestions(raw, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return qs, nil
}

// ParseQuestions decodes question data and checks every entry is gradable.
func ParseQuestions(raw []byte, ext string) ([]Question, error) {
	jsonBytes, err := structure.ToJSON(raw, ext)
	if err != nil {
		return nil, err
	}
	var doc questionFile
	if err := json.Unmarshal(jsonBytes, &doc); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}

	seen := make(map[string]bool, len(doc.Questions))
	for i, q := range doc.Questions {
		switch {
		case q.ID == "":
			return nil, fmt.Errorf("question %d: id is required", i)
		case seen[q.ID]:
			return nil, fmt.Errorf("question %q: duplicate id", q.ID)
		case q.AtomID == "":
			return nil, fmt.Errorf("question %q: atomId is required", q.ID)
		case !q.WidgetType.Known():
			return nil, fmt.Errorf("question %q: unknown widget type %q", q.ID, q.WidgetType)
		case len(q.CorrectAnswer) == 0 || string(q.CorrectAnswer) == "null":
			return nil, fmt.Errorf("question %q: correctAnswer is required", q.ID)
		}
		seen[q.ID] = true
	}
	return doc.Questions, nil
}
