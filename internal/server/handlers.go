package server

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/konstantinfoerster/doc-analyzer-go/internal/analysis"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/upload"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/view"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// HandleIndex renders the page for the current state.
func (s *Server) HandleIndex(c echo.Context) error {
	var buf bytes.Buffer
	if err := view.RenderHTML(&buf, view.NewPage(s.client.State())); err != nil {
		return NewInternalError("failed to render page", err)
	}

	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

// HandleUpload starts the analysis of the file in form field "file". Without a
// file nothing is submitted.
func (s *Server) HandleUpload(c echo.Context) error {
	fh, err := c.FormFile(analysis.FormField)
	if errors.Is(err, http.ErrMissingFile) {
		log.Debug().Msg("upload without file")

		return c.Redirect(http.StatusSeeOther, "/")
	}
	if err != nil {
		return NewBadRequestError("invalid upload form", err)
	}

	doc, err := analysis.FromFileHeader(fh, s.cfg.MaxFileSize)
	if errors.Is(err, analysis.ErrFileTooLarge) {
		return NewTooLargeError(err)
	}
	if err != nil {
		return NewBadRequestError("failed to read uploaded file", err)
	}

	// the multipart temp file is removed once this request is finished
	doc, err = doc.Buffered()
	if err != nil {
		return NewInternalError("failed to read uploaded file", err)
	}

	id := s.client.SubmitAsync(s.ctx, doc)
	log.Info().Str("requestId", id).Str("document", doc.Name).Int64("bytes", doc.Size).Msg("submitted document")

	return c.Redirect(http.StatusSeeOther, "/")
}

// HandleReset clears the displayed result.
func (s *Server) HandleReset(c echo.Context) error {
	s.client.Reset()

	return c.Redirect(http.StatusSeeOther, "/")
}

type StateResponse struct {
	Status     upload.Status        `json:"status"`
	RequestID  string               `json:"requestId,omitempty"`
	Document   string               `json:"document,omitempty"`
	Loading    bool                 `json:"loading"`
	Questions  []string             `json:"questions"`
	Flashcards []analysis.Flashcard `json:"flashcards"`
	Error      string               `json:"error,omitempty"`
}

func NewStateResponse(st upload.State) StateResponse {
	r := StateResponse{
		Status:     st.Status,
		RequestID:  st.RequestID,
		Document:   st.Document,
		Loading:    st.Loading(),
		Questions:  st.Questions,
		Flashcards: st.Flashcards,
	}
	if st.Err != nil {
		r.Error = st.Err.Error()
	}

	return r
}

// HandleState returns the current state as json.
func (s *Server) HandleState(c echo.Context) error {
	return c.JSON(http.StatusOK, NewStateResponse(s.client.State()))
}

func (s *Server) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
