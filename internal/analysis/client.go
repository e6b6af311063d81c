package analysis

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/konstantinfoerster/doc-analyzer-go/internal/aio"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/config"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/web"
	"github.com/rs/zerolog/log"
)

// FormField is the multipart field the analysis service reads the document from.
const FormField = "file"

func NewClient(cfg config.Analysis, wclient web.Client) *Client {
	return &Client{
		endpoint:      cfg.EndpointOrDefault(),
		maxFileSize:   cfg.MaxFileSize,
		expectedCodes: cfg.Client.ExpectedCodes,
		wclient:       wclient,
	}
}

type Client struct {
	endpoint      string
	maxFileSize   int64
	expectedCodes []int
	wclient       web.Client
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

// Analyze uploads the document and returns the validated result.
func (c *Client) Analyze(ctx context.Context, doc *Document) (Result, error) {
	if doc == nil {
		return Result{}, ErrNoDocument
	}
	if err := checkSize(doc.Name, doc.Size, c.maxFileSize); err != nil {
		return Result{}, err
	}

	log.Info().Str("document", doc.Name).Str("contentType", doc.ContentType).Int64("bytes", doc.Size).
		Msgf("Uploading document to %s", c.endpoint)

	opts := web.NewPostOpts().
		WithHeader(web.HeaderAccept, web.MimeTypeJSON).
		WithExpectedCodes(c.expectedCodes...)
	resp, err := c.wclient.Post(ctx, c.endpoint, multipartBody(doc), opts)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer aio.Close(resp.Body)

	log.Debug().Int("status", resp.StatusCode).Str("contentType", resp.MimeType.Raw()).
		Msg("Received analysis response")

	result, err := DecodeResult(resp.Body)
	if err != nil {
		if !resp.MimeType.IsEmpty() && !resp.MimeType.IsJSON() {
			return Result{}, fmt.Errorf("%w (content-type %s)", err, resp.MimeType.Raw())
		}

		return Result{}, err
	}

	if result.IsEmpty() {
		log.Info().Str("document", doc.Name).Msg("Analysis finished without questions or flashcards")

		return result, nil
	}

	log.Info().Str("document", doc.Name).
		Int("questions", len(result.Questions)).
		Int("flashcards", len(result.Flashcards)).
		Msg("Analysis finished")

	return result, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// multipartBody streams the document as single part form upload.
func multipartBody(doc *Document) web.BodyFunc {
	return func() (io.ReadCloser, string, error) {
		src, err := doc.Open()
		if err != nil {
			return nil, "", fmt.Errorf("failed to open document %s %w", doc.Name, err)
		}

		pr, pw := io.Pipe()
		mw := multipart.NewWriter(pw)

		go func() {
			defer aio.Close(src)

			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition",
				fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FormField, quoteEscaper.Replace(doc.Name)))
			contentType := doc.ContentType
			if contentType == "" {
				contentType = defaultContentType
			}
			h.Set("Content-Type", contentType)

			part, err := mw.CreatePart(h)
			if err != nil {
				pw.CloseWithError(err)

				return
			}
			if _, err := io.Copy(part, src); err != nil {
				pw.CloseWithError(err)

				return
			}

			pw.CloseWithError(mw.Close())
		}()

		return pr, mw.FormDataContentType(), nil
	}
}
