package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// MaxResponseSize bounds the JSON body read from the analysis service.
const MaxResponseSize int64 = 16 * 1024 * 1024

var (
	ErrNoDocument        = errors.New("no document selected")
	ErrFileTooLarge      = errors.New("document exceeds the maximum file size")
	ErrNetwork           = errors.New("analysis service not reachable")
	ErrMalformedResponse = errors.New("malformed analysis response")
	ErrAnalysisFailed    = errors.New("analysis failed")
)

// Flashcard is a cloze prompt with its answer.
type Flashcard struct {
	Cloze  string `json:"cloze" yaml:"cloze" msgpack:"cloze"`
	Answer string `json:"answer" yaml:"answer" msgpack:"answer"`
}

// Result is the analysis outcome for one document. Order is kept as sent by the service.
type Result struct {
	Questions  []string    `json:"questions" yaml:"questions" msgpack:"questions"`
	Flashcards []Flashcard `json:"flashcards" yaml:"flashcards" msgpack:"flashcards"`
}

func (r Result) IsEmpty() bool {
	return len(r.Questions) == 0 && len(r.Flashcards) == 0
}

type wireFlashcard struct {
	Cloze    *string `json:"cloze"`
	Question *string `json:"question"`
	Answer   *string `json:"answer"`
}

type wireResult struct {
	Questions  *[]string        `json:"questions"`
	Flashcards *[]wireFlashcard `json:"flashcards"`
	Error      string           `json:"error"`
}

// DecodeResult reads and validates an analysis response body.
func DecodeResult(r io.Reader) (Result, error) {
	limited := &io.LimitedReader{R: r, N: MaxResponseSize + 1}

	var wr wireResult
	if err := json.NewDecoder(limited).Decode(&wr); err != nil {
		if limited.N == 0 {
			return Result{}, fmt.Errorf("%w: body must be <= %d bytes", ErrMalformedResponse, MaxResponseSize)
		}

		return Result{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	if msg := strings.TrimSpace(wr.Error); msg != "" {
		return Result{}, fmt.Errorf("%w: %s", ErrAnalysisFailed, msg)
	}

	if wr.Questions == nil {
		return Result{}, fmt.Errorf("%w: missing questions", ErrMalformedResponse)
	}
	if wr.Flashcards == nil {
		return Result{}, fmt.Errorf("%w: missing flashcards", ErrMalformedResponse)
	}

	flashcards := make([]Flashcard, 0, len(*wr.Flashcards))
	for i, f := range *wr.Flashcards {
		cloze := f.Cloze
		if cloze == nil {
			cloze = f.Question
		}
		if cloze == nil || f.Answer == nil {
			return Result{}, fmt.Errorf("%w: flashcard %d requires cloze and answer", ErrMalformedResponse, i)
		}
		flashcards = append(flashcards, Flashcard{Cloze: *cloze, Answer: *f.Answer})
	}

	questions := make([]string, len(*wr.Questions))
	copy(questions, *wr.Questions)

	return Result{
		Questions:  questions,
		Flashcards: flashcards,
	}, nil
}
