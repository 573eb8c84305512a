package blockloader

import (
	"io"

	"github.com/rs/zerolog"
	"golang.org/x/xerrors"
)

// Option configures BlockLoader.
type Option interface {
	apply(*blockloader) error
}

type optionFunc func(*blockloader) error

func (f optionFunc) apply(l *blockloader) error {
	return f(l)
}

// WithPrettyLogging configures BlockLoader to print human friendly logs.
func WithPrettyLogging() Option {
	return optionFunc(func(l *blockloader) error {
		l.prettyLogging = true
		return nil
	})
}

// WithLogLevel sets the minimum log level, e.g. "debug" or "info".
func WithLogLevel(level string) Option {
	return optionFunc(func(l *blockloader) error {
		lv, err := zerolog.ParseLevel(level)
		if err != nil {
			return xerrors.Errorf("invalid log level %q: %w", level, err)
		}
		l.logLevel = lv
		return nil
	})
}

// WithLogOutput sets where logs are written. Defaults to stderr.
func WithLogOutput(w io.Writer) Option {
	return optionFunc(func(l *blockloader) error {
		l.logOutput = w
		return nil
	})
}
