package reader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/vegasq/prefcat/contest"
	"github.com/vegasq/prefcat/expr"
	"github.com/vegasq/prefcat/query"
)

// Ballot is one ballot paper. ATL and BTL list entity numbers in preference
// order: group numbers above the line, candidate numbers below it.
type Ballot struct {
	ID  int64   `parquet:"id"`
	ATL []int32 `parquet:"atl,list"`
	BTL []int32 `parquet:"btl,list"`
}

// Ranking returns the half of the ballot counted in mode
func (b *Ballot) Ranking(mode contest.Mode) []int32 {
	if mode == contest.BelowTheLine {
		return b.BTL
	}
	return b.ATL
}

// readBatch is the number of records decoded per read call
const readBatch = 1024

// Reader reads ballot records from one parquet file.
//
// It maintains both an OS file handle and a parquet file handle to enable
// proper resource cleanup.
type Reader struct {
	path   string
	file   *os.File
	pqFile *parquet.File
}

// Open opens a ballot file for reading.
//
// The file is opened and validated as a parquet file holding ballot
// records. Returns an error if the file doesn't exist, is not a valid
// parquet file, or lacks one of the ballot columns.
//
// Example:
//
//	r, err := reader.Open("ballots.parquet")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pqFile, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	if err := CheckSchema(pqFile.Schema()); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &Reader{
		path:   path,
		file:   file,
		pqFile: pqFile,
	}, nil
}

// Path returns the file the reader was opened on
func (r *Reader) Path() string {
	return r.path
}

// NumRows returns the number of ballots in the file
func (r *Reader) NumRows() int64 {
	return r.pqFile.NumRows()
}

// Schema returns the parquet file schema.
func (r *Reader) Schema() *parquet.Schema {
	return r.pqFile.Schema()
}

// each decodes every record in the file and hands it to fn. The record is
// only valid for the duration of the call.
func (r *Reader) each(fn func(*Ballot) error) error {
	gr := parquet.NewGenericReader[Ballot](r.pqFile)
	defer func() { _ = gr.Close() }()

	buf := make([]Ballot, readBatch)
	for {
		n, err := gr.Read(buf)
		for i := 0; i < n; i++ {
			if ferr := fn(&buf[i]); ferr != nil {
				return ferr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read ballot: %w", err)
		}
	}
}

// ReadAll reads every ballot record into memory
func (r *Reader) ReadAll() ([]Ballot, error) {
	ballots := make([]Ballot, 0, r.NumRows())
	err := r.each(func(b *Ballot) error {
		ballots = append(ballots, Ballot{
			ID:  b.ID,
			ATL: append([]int32(nil), b.ATL...),
			BTL: append([]int32(nil), b.BTL...),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ballots, nil
}

// Options control how ballots are laid out
type Options struct {
	Mode contest.Mode

	// Layout is the row shape. Layout.Entities must match the catalogue
	// for Mode; axis literal slots are left zero.
	Layout expr.Layout

	// Filter, when set, drops ballots before they are stored
	Filter query.Expression
}

// ReadBallots lays out every ballot in the file as an engine row and
// appends the rows that pass opts.Filter to dst. A nil dst allocates.
func (r *Reader) ReadBallots(dst *Ballots, opts Options) (*Ballots, error) {
	if opts.Layout.Entities <= 0 {
		return nil, fmt.Errorf("%w: %d entities", ErrInvalidLayout, opts.Layout.Entities)
	}
	if dst == nil {
		dst = NewBallots(opts.Layout, int(r.NumRows()))
	} else if dst.Stride != opts.Layout.Width() {
		return nil, fmt.Errorf("%w: stride %d, layout width %d", ErrInvalidLayout, dst.Stride, opts.Layout.Width())
	}

	var row layoutRow
	if opts.Filter != nil {
		row = newLayoutRow(opts.Layout)
	}

	err := r.each(func(b *Ballot) error {
		data := dst.Append(opts.Layout, b.Ranking(opts.Mode))
		dst.Read++
		if opts.Filter == nil {
			return nil
		}
		row.data = data
		keep, err := opts.Filter.Evaluate(row)
		if err != nil {
			return fmt.Errorf("ballot %d: %w", b.ID, err)
		}
		if !keep {
			dst.shrink()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dst, nil
}

// Close closes the reader and releases the file handle.
//
// Should be called when done reading to avoid resource leaks. It is safe
// to call Close multiple times.
func (r *Reader) Close() error {
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}

// WriteBallots writes ballot records to a new parquet file
func WriteBallots(path string, ballots []Ballot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	writer := parquet.NewGenericWriter[Ballot](f)
	if _, err := writer.Write(ballots); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write ballots: %w", err)
	}
	if err := writer.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to close writer: %w", err)
	}
	return f.Close()
}

// maxFiles limits the number of files one glob may expand to
const maxFiles = 1000

// Glob expands a path or glob pattern to the ballot files it names.
//
// The pattern can include wildcards:
//   - * matches any sequence of non-separator characters
//   - ? matches any single non-separator character
//   - [range] matches any character in range
//
// A path without wildcards is returned as is, whether or not it exists.
func Glob(pattern string) ([]string, error) {
	if !strings.ContainsAny(pattern, "*?[]") {
		return []string{pattern}, nil
	}

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no files match pattern: %s", pattern)
	}
	if len(matches) > maxFiles {
		return nil, fmt.Errorf("glob pattern matched too many files (%d), maximum is %d", len(matches), maxFiles)
	}
	return matches, nil
}

// ReadMultipleFiles lays out the ballots of every file matching pattern
// into one Ballots value, in file name order.
//
// Examples:
//   - "ballots/*.parquet" - all parquet files in the ballots directory
//   - "ballots/nsw-*.parquet" - one state's files
func ReadMultipleFiles(pattern string, opts Options) (*Ballots, error) {
	paths, err := Glob(pattern)
	if err != nil {
		return nil, err
	}

	var ballots *Ballots
	for _, path := range paths {
		r, err := Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		next, readErr := r.ReadBallots(ballots, opts)
		closeErr := r.Close()

		// Preserve the first error encountered
		if readErr != nil {
			return nil, fmt.Errorf("failed to read ballots from %s: %w", path, readErr)
		}
		if closeErr != nil {
			return nil, fmt.Errorf("failed to close %s: %w", path, closeErr)
		}
		ballots = next
	}
	return ballots, nil
}
