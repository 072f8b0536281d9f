package logger

import (
	"io"
	"log/slog"
)

// Option configures a logger built by New.
type Option func(*config)

// WithLevel sets the minimum level.
func WithLevel(level slog.Level) Option {
	return func(c *config) { c.level = level }
}

// WithDebug is shorthand for the --debug flag: Debug when true, Info when
// false. It overrides an earlier WithLevel.
func WithDebug(debug bool) Option {
	if debug {
		return WithLevel(slog.LevelDebug)
	}
	return WithLevel(slog.LevelInfo)
}

// WithPretty selects colourised charmbracelet/log output for terminals.
func WithPretty(pretty bool) Option {
	return func(c *config) { c.pretty = pretty }
}

// WithJSON selects one JSON object per record, for services and log files.
func WithJSON(json bool) Option {
	return func(c *config) { c.json = json }
}

func WithSource(source bool) Option {
	return func(c *config) { c.source = source }
}

// WithWriter replaces the destination. Defaults to os.Stderr.
func WithWriter(w io.Writer) Option {
	return WithWriters(w)
}

// WithWriters writes every record to each of w.
func WithWriters(w ...io.Writer) Option {
	return func(c *config) { c.writers = w }
}
