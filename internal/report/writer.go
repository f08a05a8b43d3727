package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/portvapt/internal/model"
)

// ErrUnknownFormat is returned by ParseFormat for an unsupported name.
var ErrUnknownFormat = errors.New("unknown output format")

// Format selects how results are rendered.
type Format string

const (
	// FormatText is the colored terminal report.
	FormatText Format = "text"
	// FormatJSON is a pretty-printed array of results.
	FormatJSON Format = "json"
	// FormatMarkdown is a table-based Markdown document.
	FormatMarkdown Format = "markdown"
)

// Formats lists every supported format.
func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatMarkdown}
}

// ParseFormat converts a case-insensitive name into a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatMarkdown:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q (use text, json or markdown)", ErrUnknownFormat, s)
	}
}

// Writer renders classification results.
type Writer interface {
	// Write outputs the report and returns the number of bytes written.
	Write(results []model.VaptResult) (int, error)
}

// MultiWriter writes the same results to several Writers, for example the
// terminal and a report file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the results to every Writer in order and stops on the
// first error.
func (m *MultiWriter) Write(results []model.VaptResult) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(results)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// options are shared by every writer; each writer uses the ones that apply.
type options struct {
	color  bool
	indent string
}

// Option configures a writer.
type Option func(*options)

// WithColor enables ANSI colors in the text report.
func WithColor(enabled bool) Option {
	return func(o *options) {
		o.color = enabled
	}
}

// WithIndent sets the JSON indentation string. An empty string produces
// compact output.
func WithIndent(indent string) Option {
	return func(o *options) {
		o.indent = indent
	}
}

func newOptions(opts []Option) options {
	o := options{indent: "  "}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// NewWriter creates the Writer for format. An unknown format falls back to
// text, so callers should validate with ParseFormat first if they care.
func NewWriter(format Format, output io.Writer, opts ...Option) Writer {
	switch format {
	case FormatJSON:
		return NewJSONWriter(output, opts...)
	case FormatMarkdown:
		return NewMarkdownWriter(output, opts...)
	default:
		return NewSimpleWriter(output, opts...)
	}
}
