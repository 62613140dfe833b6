package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// TextReader reads the word2vec text layout: a "<vocab> <dim>" header line
// followed by one "word v1 ... vD" line per record.
type TextReader struct {
	sc     *bufio.Scanner
	closer io.Closer
	vocab  int
	dim    int
	read   int
	rec    Record
}

// NewTextReader parses the header from r.
func NewTextReader(r io.Reader) (*TextReader, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), 16<<20)
	if !sc.Scan() {
		err := sc.Err()
		if err == nil {
			err = io.EOF
		}
		return nil, headerError("missing header line", err)
	}
	vocab, dim, err := parseHeader(sc.Text())
	if err != nil {
		return nil, err
	}
	t := &TextReader{sc: sc, vocab: vocab, dim: dim, rec: Record{Vector: make([]float32, dim)}}
	if c, ok := r.(io.Closer); ok {
		t.closer = c
	}
	return t, nil
}

// Dimension returns the declared vector length.
func (t *TextReader) Dimension() int { return t.dim }

// Len returns the declared vocabulary size.
func (t *TextReader) Len() int { return t.vocab }

// Read returns the next record. Blank lines are skipped.
func (t *TextReader) Read() (*Record, error) {
	if t.read >= t.vocab {
		return nil, io.EOF
	}
	var fields []string
	for len(fields) == 0 {
		if !t.sc.Scan() {
			if err := t.sc.Err(); err != nil {
				if errors.Is(err, bufio.ErrTooLong) {
					return nil, &ParseError{Record: t.read, Msg: "line too long", Err: err}
				}
				return nil, &IOError{Path: "<stream>", Err: err}
			}
			return nil, &ParseError{
				Record: t.read,
				Msg:    fmt.Sprintf("truncated input: header declares %d records", t.vocab),
				Err:    io.ErrUnexpectedEOF,
			}
		}
		fields = strings.Fields(t.sc.Text())
	}
	if len(fields)-1 != t.dim {
		return nil, &ParseError{
			Record: t.read,
			Msg:    fmt.Sprintf("word %q has %d components, header declares %d", fields[0], len(fields)-1, t.dim),
		}
	}
	for i, f := range fields[1:] {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, &ParseError{Record: t.read, Msg: fmt.Sprintf("invalid component %d for word %q", i, fields[0]), Err: err}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &ParseError{Record: t.read, Msg: fmt.Sprintf("non-finite component %d for word %q", i, fields[0])}
		}
		t.rec.Vector[i] = float32(v)
	}
	t.rec.Word = fields[0]
	t.read++
	return &t.rec, nil
}

// Close closes the underlying reader when it is closable.
func (t *TextReader) Close() error {
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}
