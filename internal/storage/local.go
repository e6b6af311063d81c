package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/konstantinfoerster/doc-analyzer-go/internal/aio"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/config"
	"github.com/rs/zerolog/log"
)

func NewLocalStorage(cfg config.Storage) (Storer, error) {
	location, err := filepath.Abs(cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("invalid storage location %s %w", cfg.Location, err)
	}

	if err := os.MkdirAll(location, 0750); err != nil {
		return nil, fmt.Errorf("failed to create storage dir %s %w", location, err)
	}

	return &localStorage{
		location: location,
		mode:     cfg.Mode,
	}, nil
}

type localStorage struct {
	location string
	mode     string
}

// fromBasePath joins path onto the storage location. Leading ".." segments are
// resolved against the filesystem root first, so the result can't leave the location.
func (s *localStorage) fromBasePath(path ...string) (string, error) {
	rel := filepath.Join(string(filepath.Separator), filepath.Join(path...))
	target := filepath.Join(s.location, rel)

	if target != s.location && !strings.HasPrefix(target, s.location+string(filepath.Separator)) {
		return "", fmt.Errorf("%w, %s", ErrOutsideBasePath, s.location)
	}

	return target, nil
}

func (s *localStorage) Store(r io.Reader, path ...string) (_ StoredFile, err error) {
	filePath, err := s.fromBasePath(path...)
	if err != nil {
		return StoredFile{}, err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0750); err != nil {
		return StoredFile{}, fmt.Errorf("failed to create sub dirs for %s %w", filePath, err)
	}

	flags := os.O_RDWR | os.O_CREATE
	if s.mode == config.REPLACE {
		flags |= os.O_TRUNC // truncate existing file
	} else {
		flags |= os.O_EXCL // file must not exist
	}

	// #nosec G304 fromBasePath does already a path cleanup
	target, err := os.OpenFile(filePath, flags, 0600)
	if err != nil {
		return StoredFile{}, fmt.Errorf("failed to create empty file %s with mode %s %w", filePath, s.mode, err)
	}
	defer aio.CloseWith(target, &err)

	n, err := io.Copy(target, r)
	if err != nil {
		return StoredFile{}, fmt.Errorf("failed to copy file %w", err)
	}

	if err = target.Sync(); err != nil {
		return StoredFile{}, fmt.Errorf("failed to sync file %w", err)
	}

	log.Debug().Str("path", filePath).Int64("bytes", n).Msg("stored file")

	return StoredFile{
		AbsolutePath: filePath,
		Path:         s.removeBasePath(filePath),
		Size:         n,
	}, nil
}

func (s *localStorage) removeBasePath(path string) string {
	noBasePath := strings.TrimPrefix(path, s.location)
	noBasePath = strings.TrimPrefix(noBasePath, string(filepath.Separator))

	return noBasePath
}

func (s *localStorage) Load(path ...string) (io.ReadCloser, error) {
	filePath, err := s.fromBasePath(path...)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get file info %s %w", filePath, err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("loading a directory is not supported")
	}

	// #nosec G304 fromBasePath does already a path cleanup
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s %w", filePath, err)
	}

	return file, nil
}
