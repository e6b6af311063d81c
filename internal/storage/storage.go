package storage

import (
	"errors"
	"io"
)

var ErrOutsideBasePath = errors.New("path is not within base path")

type Storer interface {
	Store(in io.Reader, path ...string) (StoredFile, error)
	Load(path ...string) (io.ReadCloser, error)
}

type StoredFile struct {
	Path         string
	AbsolutePath string
	Size         int64
}
