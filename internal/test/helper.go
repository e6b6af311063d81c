package test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteFile creates a file with the given content inside a temporary directory.
func WriteFile(t *testing.T, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0600), "failed to write file %s", path)

	return path
}

// Upload is a document received by the fake analysis service.
type Upload struct {
	Field       string
	Filename    string
	ContentType string
	Content     []byte
}

// AnalysisService is a fake analysis endpoint that records every upload.
type AnalysisService struct {
	*httptest.Server

	mu      sync.Mutex
	uploads []Upload
	handler func(w http.ResponseWriter, r *http.Request)
}

// NewAnalysisService responds with the given status and body to every multipart upload.
func NewAnalysisService(t *testing.T, status int, body string) *AnalysisService {
	t.Helper()

	return NewAnalysisServiceFunc(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
}

// NewAnalysisServiceFunc records the upload and delegates the response to handler.
func NewAnalysisServiceFunc(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *AnalysisService {
	t.Helper()

	s := &AnalysisService{handler: handler}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)

	return s
}

func (s *AnalysisService) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != "/analyze" {
		http.NotFound(w, r)

		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}
	for field, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)

				return
			}
			content, err := io.ReadAll(f)
			_ = f.Close()
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)

				return
			}

			s.mu.Lock()
			s.uploads = append(s.uploads, Upload{
				Field:       field,
				Filename:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Content:     content,
			})
			s.mu.Unlock()
		}
	}

	s.handler(w, r)
}

// Endpoint returns the absolute analyze url.
func (s *AnalysisService) Endpoint() string {
	return s.URL + "/analyze"
}

// Uploads returns a copy of all received uploads.
func (s *AnalysisService) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Upload(nil), s.uploads...)
}
