// Package output serializes extraction results for the CLI.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jmylchreest/homescrape/pkg/listing"
)

// Format represents output format types.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
	FormatCSV   Format = "csv"
)

// Formats lists the supported formats in help-text order.
var Formats = []Format{FormatJSON, FormatJSONL, FormatYAML, FormatCSV}

// ParseFormat resolves a case-insensitive format name.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported output format: %s", name)
}

// Entry is the outcome for one input URL: a record, or a failure with its
// error kind.
type Entry struct {
	URL    string
	Record *listing.Record
	Err    error
	Kind   string
}

// Failure is the serialized form of a failed entry.
type Failure struct {
	URL   string `json:"url" yaml:"url"`
	Error string `json:"error" yaml:"error"`
	Kind  string `json:"kind" yaml:"kind"`
}

// Failed reports whether the entry carries no record.
func (e Entry) Failed() bool {
	return e.Record == nil
}

// Value is what gets encoded for the entry.
func (e Entry) Value() any {
	if e.Record != nil {
		return e.Record
	}
	f := Failure{URL: e.URL, Kind: e.Kind}
	if e.Err != nil {
		f.Error = e.Err.Error()
	}
	return f
}

// Writer handles output serialization.
type Writer interface {
	// Write outputs a single entry.
	Write(e Entry) error

	// WriteAll outputs multiple entries.
	WriteAll(entries []Entry) error

	// Flush ensures all data is written.
	Flush() error

	// Close releases resources.
	Close() error
}

// WriterOption configures a writer.
type WriterOption func(*writerConfig)

type writerConfig struct {
	pretty bool
	indent string
}

// WithPretty enables pretty-printing.
func WithPretty(enabled bool) WriterOption {
	return func(c *writerConfig) {
		c.pretty = enabled
	}
}

// WithIndent sets the indentation string.
func WithIndent(indent string) WriterOption {
	return func(c *writerConfig) {
		c.indent = indent
	}
}

// NewWriter creates a writer for the specified format.
func NewWriter(w io.Writer, format Format, opts ...WriterOption) (Writer, error) {
	cfg := &writerConfig{
		pretty: true,
		indent: "  ",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	switch format {
	case FormatJSON:
		return NewJSONWriter(w, cfg.pretty, cfg.indent), nil
	case FormatJSONL:
		return NewJSONLWriter(w), nil
	case FormatYAML:
		return NewYAMLWriter(w), nil
	case FormatCSV:
		return NewCSVWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
