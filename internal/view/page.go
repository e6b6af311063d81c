package view

import (
	"errors"

	"github.com/konstantinfoerster/doc-analyzer-go/internal/analysis"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/upload"
)

const (
	Title           = "Document Analyzer"
	Subtitle        = "Upload a document to generate technical questions and flashcards."
	ProcessingText  = "Processing… Please wait."
	QuestionsTitle  = "Generated Questions"
	FlashcardsTitle = "Flashcards"
	NoQuestions     = "No questions yet."
	NoFlashcards    = "No flashcards yet."
	AnswerPrefix    = "Answer: "
)

type Card struct {
	Kind  string
	Lines []string
}

type Section struct {
	Title string
	Cards []Card
	// Empty is the message shown instead of cards, blank if none is shown.
	Empty string
}

type Page struct {
	Title      string
	Subtitle   string
	Document   string
	Processing string
	Error      string
	Questions  Section
	Flashcards Section
}

func (p Page) Loading() bool {
	return p.Processing != ""
}

// NewPage projects the upload state into what is displayed. Text from the
// service is kept as is, escaping is up to the renderer.
func NewPage(s upload.State) Page {
	p := Page{
		Title:    Title,
		Subtitle: Subtitle,
		Document: s.Document,
		Questions: Section{
			Title: QuestionsTitle,
			Cards: questionCards(s.Questions),
		},
		Flashcards: Section{
			Title: FlashcardsTitle,
			Cards: flashcardCards(s.Flashcards),
		},
	}

	if s.Loading() {
		p.Processing = ProcessingText
	}
	if s.Failed() {
		p.Error = errorMessage(s.Err)
	}
	if len(p.Questions.Cards) == 0 && !s.Loading() {
		p.Questions.Empty = NoQuestions
	}
	if len(p.Flashcards.Cards) == 0 && !s.Loading() {
		p.Flashcards.Empty = NoFlashcards
	}

	return p
}

// NewResultPage renders a finished analysis without an upload client.
func NewResultPage(document string, r analysis.Result) Page {
	return NewPage(upload.State{
		Status:     upload.Loaded,
		Document:   document,
		Questions:  r.Questions,
		Flashcards: r.Flashcards,
	})
}

func questionCards(questions []string) []Card {
	cards := make([]Card, 0, len(questions))
	for _, q := range questions {
		cards = append(cards, Card{Kind: "question", Lines: []string{q}})
	}

	return cards
}

func flashcardCards(flashcards []analysis.Flashcard) []Card {
	cards := make([]Card, 0, len(flashcards))
	for _, f := range flashcards {
		cards = append(cards, Card{Kind: "flash", Lines: []string{f.Cloze, AnswerPrefix + f.Answer}})
	}

	return cards
}

func errorMessage(err error) string {
	switch {
	case err == nil:
		return "The analysis failed."
	case errors.Is(err, analysis.ErrFileTooLarge):
		return "The document is too large. " + err.Error()
	case errors.Is(err, analysis.ErrNetwork):
		return "The analysis service is not reachable. " + err.Error()
	case errors.Is(err, analysis.ErrMalformedResponse):
		return "The analysis service sent an unexpected response. " + err.Error()
	case errors.Is(err, analysis.ErrAnalysisFailed):
		return "The analysis service could not process the document. " + err.Error()
	default:
		return "The analysis failed. " + err.Error()
	}
}
