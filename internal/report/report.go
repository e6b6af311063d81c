package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/analysis"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/storage"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/view"
	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatMsgpack Format = "msgpack"
)

func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatYAML, FormatMsgpack}
}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "":
		return FormatText, nil
	case "yml":
		return FormatYAML, nil
	case FormatText, FormatJSON, FormatYAML, FormatMsgpack:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %s, supported are %v", s, Formats())
	}
}

// Extension returns the file extension used when archiving.
func (f Format) Extension() string {
	switch f {
	case FormatText:
		return ".txt"
	case FormatYAML:
		return ".yaml"
	case FormatMsgpack:
		return ".msgpack"
	default:
		return ".json"
	}
}

// Report is an analysis result together with the analysed document name.
type Report struct {
	Document   string               `json:"document" yaml:"document" msgpack:"document"`
	Questions  []string             `json:"questions" yaml:"questions" msgpack:"questions"`
	Flashcards []analysis.Flashcard `json:"flashcards" yaml:"flashcards" msgpack:"flashcards"`
}

func New(document string, r analysis.Result) Report {
	return Report{
		Document:   document,
		Questions:  r.Questions,
		Flashcards: r.Flashcards,
	}
}

func (r Report) Result() analysis.Result {
	return analysis.Result{Questions: r.Questions, Flashcards: r.Flashcards}
}

// Encode writes the report in the given format.
func Encode(w io.Writer, r Report, f Format) error {
	switch f {
	case FormatText:
		return view.RenderText(w, view.NewResultPage(r.Document, r.Result()))
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}

		return enc.Close()
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(r)
	default:
		return fmt.Errorf("unsupported format %s", f)
	}
}

const archiveDir = "results"

type Archive struct {
	store storage.Storer
}

func NewArchive(store storage.Storer) *Archive {
	return &Archive{store: store}
}

// Save encodes the report and writes it under a new unique name.
func (a *Archive) Save(r Report, f Format) (storage.StoredFile, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, r, f); err != nil {
		return storage.StoredFile{}, fmt.Errorf("failed to encode report %w", err)
	}

	name := uuid.NewString() + f.Extension()
	stored, err := a.store.Store(&buf, archiveDir, name)
	if err != nil {
		return storage.StoredFile{}, fmt.Errorf("failed to archive report %w", err)
	}

	log.Info().Str("document", r.Document).Str("path", stored.AbsolutePath).Msg("Saved report")

	return stored, nil
}
