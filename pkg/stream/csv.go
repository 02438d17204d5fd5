package stream

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/Sternrassler/igstream/pkg/model"
	"github.com/rs/zerolog/log"
)

// csvEncoder writes one header row and one row per record. The header is
// written before the first row, or on finish for an empty stream.
type csvEncoder[T model.Record] struct {
	w             *csv.Writer
	header        []string
	headerWritten bool
	rows          int
}

func newCSVEncoder[T model.Record](w io.Writer, header []string) *csvEncoder[T] {
	var zero T
	if len(header) == 0 && any(zero) != nil {
		header = zero.Columns()
	}
	return &csvEncoder[T]{w: csv.NewWriter(w), header: header}
}

func (e *csvEncoder[T]) writeHeader(first *T) error {
	if e.headerWritten {
		return nil
	}
	if len(e.header) == 0 && first != nil {
		e.header = (*first).Columns()
	}
	if len(e.header) == 0 {
		return nil
	}
	e.headerWritten = true
	if err := e.w.Write(e.header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	return nil
}

func (e *csvEncoder[T]) write(v T) error {
	if err := e.writeHeader(&v); err != nil {
		return err
	}
	if err := e.w.Write(v.Row()); err != nil {
		return fmt.Errorf("write csv row %d: %w", e.rows+1, err)
	}
	e.rows++
	return nil
}

// finish writes a pending header and flushes.
func (e *csvEncoder[T]) finish() error {
	herr := e.writeHeader(nil)
	e.w.Flush()
	return errors.Join(herr, e.w.Error())
}

// WriteCSV drains s into w as CSV and returns the number of records
// written. Without a header the record type's column names are used.
func (s *Stream[T]) WriteCSV(ctx context.Context, w io.Writer, header ...string) (int, error) {
	if err := s.Err(); err != nil {
		return 0, err
	}
	enc := newCSVEncoder[T](w, header)
	for v, err := range s.All(ctx) {
		if err != nil {
			return enc.rows, errors.Join(err, enc.finish())
		}
		if err := enc.write(v); err != nil {
			return enc.rows, err
		}
	}
	return enc.rows, enc.finish()
}

// CSVSink writes a stream to a CSV file as it is consumed.
//
// The file is created when All is first ranged over, with one header row and
// one row per record in column order. Fields are quoted where needed, so
// captions with embedded newlines survive a round trip.
type CSVSink[T model.Record] struct {
	stream *Stream[T]
	path   string
	header []string
}

// SaveCSV returns a sink writing s to path. Without a header the record
// type's column names are used.
func (s *Stream[T]) SaveCSV(path string, header ...string) *CSVSink[T] {
	return &CSVSink[T]{
		stream: s,
		path:   path,
		header: append([]string(nil), header...),
	}
}

// Path returns the destination file.
func (c *CSVSink[T]) Path() string {
	return c.path
}

// All writes the stream, yielding every record after its row is written.
// Stopping the range early leaves a valid file holding the rows written so
// far. Write, flush and close failures are yielded as a final error.
func (c *CSVSink[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		if err := c.stream.Err(); err != nil {
			yield(zero, err)
			return
		}

		f, err := os.Create(c.path)
		if err != nil {
			yield(zero, fmt.Errorf("create csv %s: %w", c.path, err))
			return
		}
		enc := newCSVEncoder[T](f, c.header)
		finish := func() error {
			return errors.Join(enc.finish(), f.Close())
		}

		for v, err := range c.stream.All(ctx) {
			if err != nil {
				yield(v, errors.Join(err, finish()))
				return
			}
			if werr := enc.write(v); werr != nil {
				yield(zero, errors.Join(werr, finish()))
				return
			}
			if !yield(v, nil) {
				if ferr := finish(); ferr != nil {
					log.Warn().Err(ferr).Str("path", c.path).Msg("Failed to finish CSV file")
				}
				return
			}
		}

		if err := finish(); err != nil {
			yield(zero, fmt.Errorf("close csv %s: %w", c.path, err))
			return
		}
		log.Info().Str("path", c.path).Int("rows", enc.rows).Msg("CSV written")
	}
}

// Write drains the sink and returns the number of records written.
func (c *CSVSink[T]) Write(ctx context.Context) (int, error) {
	n := 0
	for _, err := range c.All(ctx) {
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
