package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
)

//go:embed templates/*.html
var templates embed.FS

var pageTemplate = template.Must(template.ParseFS(templates, "templates/page.html"))

// RenderHTML writes the page as html document.
func RenderHTML(w io.Writer, p Page) error {
	if err := pageTemplate.ExecuteTemplate(w, "page", p); err != nil {
		return fmt.Errorf("failed to render page %w", err)
	}

	return nil
}

// RenderText writes the page for terminal output.
func RenderText(w io.Writer, p Page) error {
	var b strings.Builder

	b.WriteString(p.Title + "\n")
	if p.Document != "" {
		fmt.Fprintf(&b, "Document: %s\n", p.Document)
	}
	if p.Processing != "" {
		b.WriteString("\n" + p.Processing + "\n")
	}
	if p.Error != "" {
		b.WriteString("\nError: " + p.Error + "\n")
	}

	for _, s := range []Section{p.Questions, p.Flashcards} {
		fmt.Fprintf(&b, "\n%s\n", s.Title)
		for _, c := range s.Cards {
			for i, line := range c.Lines {
				prefix := "  - "
				if i > 0 {
					prefix = "    "
				}
				b.WriteString(prefix + line + "\n")
			}
		}
		if s.Empty != "" {
			b.WriteString("  " + s.Empty + "\n")
		}
	}

	_, err := io.WriteString(w, b.String())

	return err
}
