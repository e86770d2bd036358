package logger

import (
	"io"
	"log/slog"
)

// Option configures a logger created with New.
type Option func(*config)

// WithDebug lowers the level to Debug.
func WithDebug(debug bool) Option {
	return func(c *config) {
		if debug {
			c.level = slog.LevelDebug
		} else {
			c.level = slog.LevelInfo
		}
	}
}

// WithPretty uses the colorized charmbracelet handler.
func WithPretty(pretty bool) Option {
	return func(c *config) { c.pretty = pretty }
}

// WithJSON uses slog's JSON handler.
func WithJSON(json bool) Option {
	return func(c *config) { c.json = json }
}

func WithWriter(w io.Writer) Option {
	return func(c *config) { c.writers = []io.Writer{w} }
}

func WithWriters(w ...io.Writer) Option {
	return func(c *config) { c.writers = w }
}

func WithSource(source bool) Option {
	return func(c *config) { c.source = source }
}
