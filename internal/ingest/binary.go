package ingest

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// maxWordBytes bounds a single token so a corrupt file cannot grow the word buffer unbounded.
const maxWordBytes = 64 << 10

// BinaryReader reads the word2vec binary layout: an ASCII header line
// "<vocab> <dim>", then per record the word, a single space, and dim
// little-endian float32 values, optionally followed by a newline.
type BinaryReader struct {
	r      *bufio.Reader
	closer io.Closer
	vocab  int
	dim    int
	read   int
	raw    []byte
	word   []byte
	rec    Record
}

// NewBinaryReader parses the header from r. If r implements io.Closer it is
// closed by Close.
func NewBinaryReader(r io.Reader) (*BinaryReader, error) {
	br := bufio.NewReaderSize(r, 1<<20)
	line, err := br.ReadString('\n')
	if err != nil {
		return nil, headerError("missing header line", err)
	}
	vocab, dim, err := parseHeader(line)
	if err != nil {
		return nil, err
	}
	b := &BinaryReader{
		r:     br,
		vocab: vocab,
		dim:   dim,
		raw:   make([]byte, dim*4),
		rec:   Record{Vector: make([]float32, dim)},
	}
	if c, ok := r.(io.Closer); ok {
		b.closer = c
	}
	return b, nil
}

// parseHeader parses "<vocab> <dim>" and requires both to be positive.
func parseHeader(line string) (vocab, dim int, err error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, 0, headerError(fmt.Sprintf("expected \"<vocab> <dim>\", got %q", strings.TrimSpace(line)), nil)
	}
	vocab, err = strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, headerError("invalid vocabulary size", err)
	}
	dim, err = strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, headerError("invalid dimension", err)
	}
	if vocab <= 0 || dim <= 0 {
		return 0, 0, headerError(fmt.Sprintf("vocabulary size and dimension must be positive, got %d and %d", vocab, dim), nil)
	}
	return vocab, dim, nil
}

// Dimension returns the declared vector length.
func (b *BinaryReader) Dimension() int { return b.dim }

// Len returns the declared vocabulary size.
func (b *BinaryReader) Len() int { return b.vocab }

// Read returns the next record. The record and its vector are reused by the next call.
func (b *BinaryReader) Read() (*Record, error) {
	if b.read >= b.vocab {
		return nil, io.EOF
	}
	word, err := b.readWord()
	if err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(b.r, b.raw); err != nil {
		return nil, b.truncated("vector", err)
	}
	for i := range b.rec.Vector {
		v := math.Float32frombits(binary.LittleEndian.Uint32(b.raw[i*4:]))
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, &ParseError{Record: b.read, Msg: fmt.Sprintf("non-finite component %d for word %q", i, word)}
		}
		b.rec.Vector[i] = v
	}
	b.rec.Word = word
	b.read++
	return &b.rec, nil
}

func (b *BinaryReader) readWord() (string, error) {
	b.word = b.word[:0]
	for {
		c, err := b.r.ReadByte()
		if err != nil {
			return "", b.truncated("word", err)
		}
		if c == ' ' {
			if len(b.word) == 0 {
				continue
			}
			return string(b.word), nil
		}
		if c == '\n' || c == '\r' {
			if len(b.word) == 0 {
				continue
			}
			return "", &ParseError{Record: b.read, Msg: fmt.Sprintf("line break inside word %q", b.word)}
		}
		if len(b.word) >= maxWordBytes {
			return "", &ParseError{Record: b.read, Msg: fmt.Sprintf("word exceeds %d bytes", maxWordBytes)}
		}
		b.word = append(b.word, c)
	}
}

func (b *BinaryReader) truncated(part string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &ParseError{
			Record: b.read,
			Msg:    fmt.Sprintf("truncated %s: header declares %d records", part, b.vocab),
			Err:    io.ErrUnexpectedEOF,
		}
	}
	return &IOError{Path: "<stream>", Err: err}
}

// Close closes the underlying reader when it is closable.
func (b *BinaryReader) Close() error {
	if b.closer != nil {
		return b.closer.Close()
	}
	return nil
}
