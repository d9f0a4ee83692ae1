package structure

import (
	"context"
	"errors"
	"sort"
)

// ErrNotFound is returned by a Provider when a lesson has no atomic
// decomposition.
var ErrNotFound = errors.New("lesson structure not found")

// DefaultWeight is applied to elements whose weight is not specified.
const DefaultWeight = 1.0

// Element is a single independently-tracked concept within a lesson.
// Order defines a linear prerequisite chain: element N depends on N-1.
type Element struct {
	ID     string  `json:"id" yaml:"id"`
	Title  string  `json:"title" yaml:"title"`
	Weight float64 `json:"weight" yaml:"weight"`
	Order  int     `json:"order" yaml:"order"`
}

// Lesson is the ordered element list for a lesson.
type Lesson struct {
	ID       string    `json:"lessonId" yaml:"lessonId"`
	Elements []Element `json:"elements" yaml:"elements"`
}

// Provider supplies lesson structures. Implementations return ErrNotFound
// (possibly wrapped) when the lesson is unknown.
type Provider interface {
	Structure(ctx context.Context, lessonID string) (*Lesson, error)
}

// Element returns the element with the given ID.
func (l *Lesson) Element(id string) (Element, bool) {
	for _, e := range l.Elements {
		if e.ID == id {
			return e, true
		}
	}
	return Element{}, false
}

// Predecessor returns the element whose order is one less than el's.
// Returns false for the first element or when the chain has a gap.
func (l *Lesson) Predecessor(el Element) (Element, bool) {
	if el.Order <= 1 {
		return Element{}, false
	}
	for _, e := range l.Elements {
		if e.Order == el.Order-1 {
			return e, true
		}
	}
	return Element{}, false
}

// TotalWeight sums element weights.
func (l *Lesson) TotalWeight() float64 {
	var total float64
	for _, e := range l.Elements {
		total += e.Weight
	}
	return total
}

// Sorted returns the elements in prerequisite order.
func (l *Lesson) Sorted() []Element {
	out := make([]Element, len(l.Elements))
	copy(out, l.Elements)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
