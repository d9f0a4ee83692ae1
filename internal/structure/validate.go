package structure

import (
	"fmt"
	"strings"
)

// Validate performs all structural checks on a lesson.
// Returns a combined error describing all problems found, or nil if valid.
func Validate(l *Lesson) error {
	if l == nil {
		return fmt.Errorf("lesson structure validation failed: nil lesson")
	}
	var errs []string

	if strings.TrimSpace(l.ID) == "" {
		errs = append(errs, "lesson ID is empty")
	}

	idSet := make(map[string]bool, len(l.Elements))
	orderSet := make(map[int]string, len(l.Elements))

	for _, e := range l.Elements {
		if strings.TrimSpace(e.ID) == "" {
			errs = append(errs, "element with empty ID")
			continue
		}
		if strings.EqualFold(e.ID, AllElements) {
			errs = append(errs, fmt.Sprintf("element ID %q is reserved", e.ID))
		}
		if idSet[e.ID] {
			errs = append(errs, fmt.Sprintf("duplicate element ID: %q", e.ID))
		}
		idSet[e.ID] = true

		if e.Order < 1 {
			errs = append(errs, fmt.Sprintf("element %q: order must be >= 1, got %d", e.ID, e.Order))
		} else if other, dup := orderSet[e.Order]; dup {
			errs = append(errs, fmt.Sprintf("elements %q and %q share order %d", other, e.ID, e.Order))
		} else {
			orderSet[e.Order] = e.ID
		}

		if e.Weight < 0 {
			errs = append(errs, fmt.Sprintf("element %q: weight must be >= 0, got %g", e.ID, e.Weight))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("lesson %q structure validation failed:\n  %s", l.ID, strings.Join(errs, "\n  "))
	}
	return nil
}

// AllElements is the element selector that addresses every element of a
// lesson at once. No element may use it as an ID.
const AllElements = "ALL"
