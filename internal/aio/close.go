package aio

import (
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Close closes c and logs a failure. Use it in defers where the error can't be returned.
func Close(c io.Closer) {
	if c == nil {
		return
	}

	if err := c.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close resource")
	}
}

// CloseWith closes c and folds a close error into err.
func CloseWith(c io.Closer, err *error) {
	cErr := c.Close()
	if cErr == nil {
		return
	}

	// report close errors
	if *err == nil {
		*err = cErr
	} else {
		*err = errors.Wrap(*err, cErr.Error())
	}
}
