package upload

import (
	"fmt"
	"slices"

	"github.com/konstantinfoerster/doc-analyzer-go/internal/analysis"
)

type Status int

const (
	Idle Status = iota
	Loading
	Loaded
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for _, st := range []Status{Idle, Loading, Loaded, Failed} {
		if st.String() == string(text) {
			*s = st

			return nil
		}
	}

	return fmt.Errorf("unknown status %q", text)
}

// State is an immutable snapshot of the upload client. A new value replaces
// the old one on every transition.
type State struct {
	Status     Status
	RequestID  string
	Document   string
	Questions  []string
	Flashcards []analysis.Flashcard
	Err        error
}

// Loading reports whether a submission is in flight.
func (s State) Loading() bool {
	return s.Status == Loading
}

func (s State) Failed() bool {
	return s.Status == Failed
}

func (s State) Result() analysis.Result {
	return analysis.Result{
		Questions:  slices.Clone(s.Questions),
		Flashcards: slices.Clone(s.Flashcards),
	}
}

func (s State) clone() State {
	s.Questions = slices.Clone(s.Questions)
	s.Flashcards = slices.Clone(s.Flashcards)

	return s
}

func idle() State {
	return State{
		Status:     Idle,
		Questions:  []string{},
		Flashcards: []analysis.Flashcard{},
	}
}
