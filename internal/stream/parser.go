// Package stream decodes a very large top-level JSON array one element at
// a time, so the whole bulk file never has to be resident in memory.
package stream

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

const readBufferSize = 1 << 20

// ParseError marks a malformed or truncated bulk file. It is fatal to the
// rebuild attempt that hit it; the previously published snapshot stays
// authoritative.
type ParseError struct {
	Path   string
	Offset int64
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s at offset %d: %s: %v", e.Path, e.Offset, e.Msg, e.Err)
	}
	return fmt.Sprintf("parse %s at offset %d: %s", e.Path, e.Offset, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsParseError reports whether err is (or wraps) a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// ArrayReader yields the elements of a top-level JSON array in file order.
// It is forward-only and single-pass: resuming requires reopening the file.
type ArrayReader struct {
	path    string
	f       *os.File
	dec     *json.Decoder
	started bool
	done    bool
	count   int
}

// Open prepares a reader over the array stored at path. The opening
// bracket is not consumed until the first Next call.
func Open(path string) (*ArrayReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bulk file: %w", err)
	}
	return &ArrayReader{
		path: path,
		f:    f,
		dec:  json.NewDecoder(bufio.NewReaderSize(f, readBufferSize)),
	}, nil
}

// Next decodes the next array element into v. It returns io.EOF after the
// closing bracket has been consumed cleanly; any malformed input (missing
// opening bracket, EOF mid-value, trailing garbage after the array) is a
// *ParseError.
func (r *ArrayReader) Next(v any) error {
	if r.done {
		return io.EOF
	}

	if !r.started {
		tok, err := r.dec.Token()
		if err != nil {
			return r.fail("read opening token", err)
		}
		if d, ok := tok.(json.Delim); !ok || d != '[' {
			return r.fail("top-level value is not an array", nil)
		}
		r.started = true
	}

	if r.dec.More() {
		if err := r.dec.Decode(v); err != nil {
			return r.fail("decode array element", err)
		}
		r.count++
		return nil
	}

	// Expect exactly the closing bracket, then clean EOF.
	tok, err := r.dec.Token()
	if err != nil {
		return r.fail("read closing bracket", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != ']' {
		return r.fail("unexpected token where ']' was expected", nil)
	}
	if _, err := r.dec.Token(); !errors.Is(err, io.EOF) {
		return r.fail("trailing data after closing bracket", err)
	}
	r.done = true
	return io.EOF
}

// Count returns the number of elements decoded so far.
func (r *ArrayReader) Count() int { return r.count }

func (r *ArrayReader) Close() error {
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}

func (r *ArrayReader) fail(msg string, err error) error {
	r.done = true
	return &ParseError{Path: r.path, Offset: r.dec.InputOffset(), Msg: msg, Err: err}
}
