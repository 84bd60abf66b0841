package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// CSVHeader is the fixed column order. Failed entries fill url, error and
// kind and leave the record columns empty.
var CSVHeader = []string{
	"address", "list_price", "days_on_market", "bedrooms", "bathrooms",
	"property_type", "square_feet", "year_built", "price_reduced",
	"original_price", "estimated_value", "source", "url", "scraped_at",
	"error", "kind",
}

// CSVWriter writes one row per entry after a header row.
type CSVWriter struct {
	writer      *csv.Writer
	wroteHeader bool
}

// NewCSVWriter creates a CSV writer.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{writer: csv.NewWriter(w)}
}

// Write writes a single entry as a row.
func (c *CSVWriter) Write(e Entry) error {
	if err := c.header(); err != nil {
		return err
	}
	if err := c.writer.Write(row(e)); err != nil {
		return fmt.Errorf("csv: write row: %w", err)
	}
	return nil
}

// WriteAll writes multiple entries.
func (c *CSVWriter) WriteAll(entries []Entry) error {
	for _, e := range entries {
		if err := c.Write(e); err != nil {
			return err
		}
	}
	return nil
}

// Flush writes buffered rows. A header is written even with no entries.
func (c *CSVWriter) Flush() error {
	if err := c.header(); err != nil {
		return err
	}
	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes the writer.
func (c *CSVWriter) Close() error {
	return c.Flush()
}

func (c *CSVWriter) header() error {
	if c.wroteHeader {
		return nil
	}
	c.wroteHeader = true
	if err := c.writer.Write(CSVHeader); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	return nil
}

func row(e Entry) []string {
	r := e.Record
	if r == nil {
		msg := ""
		if e.Err != nil {
			msg = e.Err.Error()
		}
		out := make([]string, len(CSVHeader))
		out[len(out)-4] = e.URL
		out[len(out)-2], out[len(out)-1] = msg, e.Kind
		return out
	}
	return []string{
		r.Address,
		strconv.Itoa(r.ListPrice),
		strconv.Itoa(r.DaysOnMarket),
		formatFloat(r.Bedrooms),
		formatFloat(r.Bathrooms),
		string(r.PropertyType),
		optional(r.SquareFeet),
		optional(r.YearBuilt),
		strconv.FormatBool(r.PriceReduced),
		optional(r.OriginalPrice),
		optional(r.EstimatedValue),
		string(r.Source),
		r.SourceURL,
		r.ScrapedAt.UTC().Format(time.RFC3339),
		"",
		"",
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func optional(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

var _ Writer = (*CSVWriter)(nil)
