package inference

import (
	"errors"
	"fmt"
	"io"

	"github.com/alekLukanen/csv2parquet/elements"
)

const DefaultSampleSize = 100

type SampleOptions struct {
	HasHeader  bool
	SampleSize int
}

// SampleColumns reads the header (when present) and at most SampleSize
// data rows from rows, and returns one candidate per column describing
// the widest type seen and whether an empty cell was seen.
func SampleColumns(rows IRowSource, options SampleOptions) ([]elements.ColumnCandidate, error) {
	sampleSize := options.SampleSize
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}

	first, err := rows.Read()
	if errors.Is(err, io.EOF) {
		return nil, elements.NewStackError(fmt.Errorf("%w| no rows", elements.ErrEmptyFile))
	} else if err != nil {
		return nil, elements.NewStackError(fmt.Errorf("%w| reading first row: %w", elements.ErrIo, err))
	}

	var names []string
	var pending []string
	if options.HasHeader {
		names = HeaderNames(first)
	} else {
		names = PositionalNames(len(first))
		pending = append([]string(nil), first...)
	}

	candidates := make([]elements.ColumnCandidate, len(names))
	for i, name := range names {
		candidates[i] = elements.NewColumnCandidate(name)
	}

	// rows are numbered from 1, not counting the header
	sampled := 0
	rowNumber := 1
	for sampled < sampleSize {
		var row []string
		if pending != nil {
			row, pending = pending, nil
		} else {
			row, err = rows.Read()
			if errors.Is(err, io.EOF) {
				break
			} else if err != nil {
				return nil, elements.NewStackError(fmt.Errorf("%w| reading row %d: %w", elements.ErrIo, rowNumber, err))
			}
		}

		if len(row) > len(candidates) {
			return nil, elements.NewStackError(
				fmt.Errorf("%w| malformed row %d: %d fields, expected at most %d", elements.ErrIo, rowNumber, len(row), len(candidates)),
			)
		}
		for i := range candidates {
			if i < len(row) {
				candidates[i].Observe(row[i])
			} else {
				candidates[i].SeenNull = true
			}
		}

		sampled++
		rowNumber++
	}

	if sampled == 0 {
		return nil, elements.NewStackError(fmt.Errorf("%w| header without data rows", elements.ErrEmptyFile))
	}

	return candidates, nil
}
