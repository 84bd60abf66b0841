package output

import (
	"bufio"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLWriter writes YAML output.
type YAMLWriter struct {
	w     *bufio.Writer
	items []any
	done  bool
}

// NewYAMLWriter creates a YAML writer.
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	return &YAMLWriter{
		w:     bufio.NewWriter(w),
		items: make([]any, 0),
	}
}

// Write buffers a single entry.
func (w *YAMLWriter) Write(e Entry) error {
	w.items = append(w.items, e.Value())
	return nil
}

// WriteAll buffers multiple entries.
func (w *YAMLWriter) WriteAll(entries []Entry) error {
	for _, e := range entries {
		w.items = append(w.items, e.Value())
	}
	return nil
}

// Flush writes the buffered entries as one YAML document.
func (w *YAMLWriter) Flush() error {
	if w.done {
		return nil
	}
	w.done = true

	encoder := yaml.NewEncoder(w.w)
	encoder.SetIndent(2)

	var doc any = w.items
	if len(w.items) == 1 {
		doc = w.items[0]
	}
	if err := encoder.Encode(doc); err != nil {
		return err
	}
	if err := encoder.Close(); err != nil {
		return err
	}

	return w.w.Flush()
}

// Close flushes and closes the writer.
func (w *YAMLWriter) Close() error {
	return w.Flush()
}
