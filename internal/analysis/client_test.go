package analysis_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/konstantinfoerster/doc-analyzer-go/internal/analysis"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/config"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/test"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(endpoint string, maxFileSize int64) *analysis.Client {
	cfg := config.Analysis{
		Endpoint:    endpoint,
		MaxFileSize: maxFileSize,
		Client:      web.DefaultConfig(),
	}

	return analysis.NewClient(cfg, web.NewClient(cfg.Client, &http.Client{}))
}

func TestAnalyze(t *testing.T) {
	service := test.NewAnalysisService(t, http.StatusOK,
		`{"questions": ["What is X?"], "flashcards": [{"cloze":"X is ___", "answer":"a value"}]}`)
	client := newClient(service.Endpoint(), 0)
	doc := analysis.NewDocument("notes.pdf", []byte("%PDF-1.4 test document"))

	result, err := client.Analyze(testContext(t), doc)

	require.NoError(t, err)
	assert.Equal(t, analysis.Result{
		Questions:  []string{"What is X?"},
		Flashcards: []analysis.Flashcard{{Cloze: "X is ___", Answer: "a value"}},
	}, result)

	uploads := service.Uploads()
	require.Len(t, uploads, 1, "expected exactly one upload")
	assert.Equal(t, analysis.FormField, uploads[0].Field)
	assert.Equal(t, "notes.pdf", uploads[0].Filename)
	assert.Equal(t, "application/pdf", uploads[0].ContentType)
	assert.Equal(t, []byte("%PDF-1.4 test document"), uploads[0].Content)
}

func TestAnalyze_FileFromDisk(t *testing.T) {
	service := test.NewAnalysisService(t, http.StatusOK, `{"questions":[],"flashcards":[]}`)
	client := newClient(service.Endpoint(), 0)
	path := test.WriteFile(t, `my "lecture".txt`, []byte("plain text notes"))
	doc, err := analysis.OpenFile(path, 0)
	require.NoError(t, err)

	result, err := client.Analyze(testContext(t), doc)

	require.NoError(t, err)
	assert.True(t, result.IsEmpty())
	uploads := service.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, `my "lecture".txt`, uploads[0].Filename)
	assert.Equal(t, "text/plain; charset=utf-8", uploads[0].ContentType)
	assert.Equal(t, []byte("plain text notes"), uploads[0].Content)
}

func TestAnalyzeFails(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{
			name:    "unexpected status code",
			status:  http.StatusInternalServerError,
			body:    `{"detail":"boom"}`,
			wantErr: analysis.ErrNetwork,
		},
		{
			name:    "validation error of the service",
			status:  http.StatusUnprocessableEntity,
			body:    `{"detail":[{"msg":"Field required"}]}`,
			wantErr: analysis.ErrNetwork,
		},
		{
			name:    "not json",
			status:  http.StatusOK,
			body:    "ok",
			wantErr: analysis.ErrMalformedResponse,
		},
		{
			name:    "service error payload",
			status:  http.StatusOK,
			body:    `{"questions":[],"flashcards":[],"error":"model crashed"}`,
			wantErr: analysis.ErrAnalysisFailed,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			service := test.NewAnalysisService(t, tc.status, tc.body)
			client := newClient(service.Endpoint(), 0)

			_, err := client.Analyze(testContext(t), analysis.NewDocument("a.txt", []byte("a")))

			require.ErrorIs(t, err, tc.wantErr)
			assert.Len(t, service.Uploads(), 1)
		})
	}
}

func TestAnalyze_NotJSONContentType(t *testing.T) {
	service := test.NewAnalysisServiceFunc(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>maintenance</body></html>"))
	})
	client := newClient(service.Endpoint(), 0)

	_, err := client.Analyze(testContext(t), analysis.NewDocument("a.txt", []byte("a")))

	require.ErrorIs(t, err, analysis.ErrMalformedResponse)
	assert.ErrorContains(t, err, "content-type text/html")
}

func TestAnalyze_StatusCodeIsKept(t *testing.T) {
	service := test.NewAnalysisService(t, http.StatusBadGateway, "bad gateway")
	client := newClient(service.Endpoint(), 0)

	_, err := client.Analyze(testContext(t), analysis.NewDocument("a.txt", []byte("a")))

	var apiErr *web.ExternalAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
}

func TestAnalyze_Unreachable(t *testing.T) {
	service := test.NewAnalysisService(t, http.StatusOK, `{}`)
	endpoint := service.Endpoint()
	service.Close()
	client := newClient(endpoint, 0)

	_, err := client.Analyze(testContext(t), analysis.NewDocument("a.txt", []byte("a")))

	require.ErrorIs(t, err, analysis.ErrNetwork)
}

func TestAnalyze_Timeout(t *testing.T) {
	release := make(chan struct{})
	service := test.NewAnalysisServiceFunc(t, func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	defer close(release)
	client := newClient(service.Endpoint(), 0)
	ctx, cancel := context.WithTimeout(testContext(t), 50*time.Millisecond)
	defer cancel()

	_, err := client.Analyze(ctx, analysis.NewDocument("a.txt", []byte("a")))

	require.ErrorIs(t, err, analysis.ErrNetwork)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAnalyze_NoRequest(t *testing.T) {
	cases := []struct {
		name    string
		doc     *analysis.Document
		wantErr error
	}{
		{
			name:    "no document",
			doc:     nil,
			wantErr: analysis.ErrNoDocument,
		},
		{
			name:    "document too large",
			doc:     analysis.NewDocument("big.txt", []byte("0123456789")),
			wantErr: analysis.ErrFileTooLarge,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			service := test.NewAnalysisService(t, http.StatusOK, `{"questions":[],"flashcards":[]}`)
			client := newClient(service.Endpoint(), 5)

			_, err := client.Analyze(testContext(t), tc.doc)

			require.ErrorIs(t, err, tc.wantErr)
			assert.Empty(t, service.Uploads())
		})
	}
}

func TestEndpointDefault(t *testing.T) {
	client := analysis.NewClient(config.Analysis{}, web.NewClient(web.Config{}, &http.Client{}))

	assert.Equal(t, "http://localhost:8000/analyze", client.Endpoint())
}

// testContext mirrors testing.T.Context (Go 1.24+): the context is canceled when the test finishes.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
