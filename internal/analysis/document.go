package analysis

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/aio"
)

const defaultContentType = "application/octet-stream"

// Document is a file selected for analysis. Its content can be opened multiple
// times, which allows to rebuild the upload body on retries.
type Document struct {
	Name        string
	ContentType string
	Size        int64
	open        func() (io.ReadCloser, error)
}

func (d *Document) Open() (io.ReadCloser, error) {
	if d.open == nil {
		return nil, fmt.Errorf("document %s has no content", d.Name)
	}

	return d.open()
}

// OpenFile creates a document from a local file.
func OpenFile(path string, maxSize int64) (*Document, error) {
	path = filepath.Clean(path)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get file info %s %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("'%s' is a directory, not a regular file", path)
	}
	if err := checkSize(info.Name(), info.Size(), maxSize); err != nil {
		return nil, err
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to detect content-type of %s %w", path, err)
	}

	return &Document{
		Name:        info.Name(),
		ContentType: mtype.String(),
		Size:        info.Size(),
		open: func() (io.ReadCloser, error) {
			// #nosec G304 the file was selected by the user
			return os.Open(path)
		},
	}, nil
}

// FromFileHeader creates a document from an uploaded multipart file. The sent
// content-type is kept unless it is missing or generic.
func FromFileHeader(fh *multipart.FileHeader, maxSize int64) (*Document, error) {
	if fh == nil {
		return nil, ErrNoDocument
	}
	if err := checkSize(fh.Filename, fh.Size, maxSize); err != nil {
		return nil, err
	}

	contentType := strings.TrimSpace(fh.Header.Get("Content-Type"))
	if contentType == "" || contentType == defaultContentType {
		detected, err := detectFileHeader(fh)
		if err != nil {
			return nil, err
		}
		contentType = detected
	}

	return &Document{
		Name:        filepath.Base(fh.Filename),
		ContentType: contentType,
		Size:        fh.Size,
		open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}, nil
}

func detectFileHeader(fh *multipart.FileHeader) (_ string, err error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file %s %w", fh.Filename, err)
	}
	defer aio.CloseWith(f, &err)

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		return "", fmt.Errorf("failed to detect content-type of %s %w", fh.Filename, err)
	}

	return mtype.String(), nil
}

// Buffered reads the content into memory. The returned document stays usable
// after the source is gone, e.g. the temp file of a finished http request.
func (d *Document) Buffered() (_ *Document, err error) {
	r, err := d.Open()
	if err != nil {
		return nil, err
	}
	defer aio.CloseWith(r, &err)

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s %w", d.Name, err)
	}

	return &Document{
		Name:        d.Name,
		ContentType: d.ContentType,
		Size:        int64(len(content)),
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(content)), nil
		},
	}, nil
}

// NewDocument creates an in-memory document.
func NewDocument(name string, content []byte) *Document {
	return &Document{
		Name:        name,
		ContentType: mimetype.Detect(content).String(),
		Size:        int64(len(content)),
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(content)), nil
		},
	}
}

func checkSize(name string, size, maxSize int64) error {
	if maxSize > 0 && size > maxSize {
		return fmt.Errorf("%w: %s has %d bytes, allowed are %d", ErrFileTooLarge, name, size, maxSize)
	}

	return nil
}
