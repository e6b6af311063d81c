package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/konstantinfoerster/doc-analyzer-go/internal/analysis"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/config"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/server"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/test"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/upload"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/view"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const notesResponse = `{"questions": ["What is X?"], "flashcards": [{"cloze":"X is ___", "answer":"a value"}]}`

func newServer(t *testing.T, endpoint string, maxFileSize int64) (*server.Server, *upload.Client) {
	t.Helper()

	cfg := config.Analysis{
		Endpoint:    endpoint,
		MaxFileSize: maxFileSize,
		Client:      web.DefaultConfig(),
	}
	analyzer := analysis.NewClient(cfg, web.NewClient(cfg.Client, &http.Client{}))
	client := upload.NewClient(analyzer, 5*time.Second)
	t.Cleanup(client.Close)

	return server.New(context.Background(), cfg, client), client
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())

	return req
}

func serve(s *server.Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	return rec
}

func fetchState(t *testing.T, s *server.Server) server.StateResponse {
	t.Helper()

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var st server.StateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))

	return st
}

func TestUpload(t *testing.T) {
	service := test.NewAnalysisService(t, http.StatusOK, notesResponse)
	s, client := newServer(t, service.Endpoint(), 0)

	rec := serve(s, uploadRequest(t, "notes.pdf", []byte("%PDF-1.4 test document")))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	client.Wait()
	st := fetchState(t, s)
	assert.Equal(t, upload.Loaded, st.Status)
	assert.False(t, st.Loading)
	assert.Equal(t, "notes.pdf", st.Document)
	assert.Equal(t, []string{"What is X?"}, st.Questions)
	assert.Equal(t, []analysis.Flashcard{{Cloze: "X is ___", Answer: "a value"}}, st.Flashcards)
	assert.Empty(t, st.Error)

	uploads := service.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "notes.pdf", uploads[0].Filename)
	assert.Equal(t, []byte("%PDF-1.4 test document"), uploads[0].Content)

	page := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "What is X?")
	assert.Contains(t, page.Body.String(), "Answer: a value")
	assert.NotContains(t, page.Body.String(), view.ProcessingText)
	assert.NotContains(t, page.Body.String(), `http-equiv="refresh"`)
}

func TestUploadWithoutFile(t *testing.T) {
	service := test.NewAnalysisService(t, http.StatusOK, notesResponse)
	s, client := newServer(t, service.Endpoint(), 0)

	rec := serve(s, uploadRequest(t, "", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	client.Wait()
	assert.Empty(t, service.Uploads())
	assert.Equal(t, upload.Idle, fetchState(t, s).Status)
}

func TestUploadRejected(t *testing.T) {
	cases := []struct {
		name       string
		req        func(t *testing.T) *http.Request
		wantStatus int
		wantCode   string
	}{
		{
			name: "file too large",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "big.txt", bytes.Repeat([]byte("a"), 64))
			},
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   "FILE_TOO_LARGE",
		},
		{
			name: "not a multipart form",
			req: func(_ *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(`{}`))
				req.Header.Set("Content-Type", "application/json")

				return req
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "BAD_REQUEST",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			service := test.NewAnalysisService(t, http.StatusOK, notesResponse)
			s, client := newServer(t, service.Endpoint(), 32)
			req := tc.req(t)
			req.Header.Set("Accept", "application/json")

			rec := serve(s, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			var apiErr server.APIError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
			assert.Equal(t, tc.wantCode, apiErr.Code)
			client.Wait()
			assert.Empty(t, service.Uploads())
			assert.Equal(t, upload.Idle, fetchState(t, s).Status)
		})
	}
}

func TestUploadTooLargeShowsPage(t *testing.T) {
	service := test.NewAnalysisService(t, http.StatusOK, notesResponse)
	s, _ := newServer(t, service.Endpoint(), 32)

	rec := serve(s, uploadRequest(t, "big.txt", bytes.Repeat([]byte("a"), 64)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), view.Title)
	assert.Contains(t, rec.Body.String(), `class="error"`)
}

func TestIndexWhileLoading(t *testing.T) {
	release := make(chan struct{})
	service := test.NewAnalysisServiceFunc(t, func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(notesResponse))
	})
	s, client := newServer(t, service.Endpoint(), 0)

	rec := serve(s, uploadRequest(t, "notes.pdf", []byte("%PDF-1.4")))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	page := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, page.Body.String(), view.ProcessingText)
	assert.Contains(t, page.Body.String(), `http-equiv="refresh"`)
	assert.NotContains(t, page.Body.String(), view.NoQuestions)
	assert.NotContains(t, page.Body.String(), view.NoFlashcards)
	assert.True(t, fetchState(t, s).Loading)

	close(release)
	client.Wait()
	assert.False(t, fetchState(t, s).Loading)
}

func TestIndexShowsFailure(t *testing.T) {
	service := test.NewAnalysisService(t, http.StatusOK, `not json`)
	s, client := newServer(t, service.Endpoint(), 0)

	serve(s, uploadRequest(t, "notes.pdf", []byte("%PDF-1.4")))
	client.Wait()

	st := fetchState(t, s)
	assert.Equal(t, upload.Failed, st.Status)
	assert.False(t, st.Loading)
	assert.NotEmpty(t, st.Error)
	assert.Empty(t, st.Questions)
	assert.Empty(t, st.Flashcards)

	page := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, page.Body.String(), `class="error"`)
	assert.Contains(t, page.Body.String(), view.NoQuestions)
}

func TestReset(t *testing.T) {
	service := test.NewAnalysisService(t, http.StatusOK, notesResponse)
	s, client := newServer(t, service.Endpoint(), 0)
	serve(s, uploadRequest(t, "notes.pdf", []byte("%PDF-1.4")))
	client.Wait()
	page := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Contains(t, page.Body.String(), `action="/reset"`)

	rec := serve(s, httptest.NewRequest(http.MethodPost, "/reset", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	st := fetchState(t, s)
	assert.Equal(t, upload.Idle, st.Status)
	assert.Empty(t, st.Questions)
}

func TestHealth(t *testing.T) {
	s, _ := newServer(t, "http://localhost:1/analyze", 0)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
