package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/exp/mmap"
)

// Format names an on-disk embedding layout.
type Format string

const (
	// FormatAuto picks the layout from the file extension.
	FormatAuto Format = "auto"
	// FormatBinary is the word2vec binary layout.
	FormatBinary Format = "binary"
	// FormatText is the word2vec text layout.
	FormatText Format = "text"
	// FormatSQLite is an embeddings table in a SQLite database.
	FormatSQLite Format = "sqlite"
)

// Options controls how Open interprets a file.
type Options struct {
	Format     Format
	Compressed bool
}

// DetectFormat resolves FormatAuto from the file name. A ".gz" suffix is
// stripped before the extension is inspected and reported as compressed.
func DetectFormat(path string) (Format, bool) {
	name := strings.ToLower(filepath.Base(path))
	compressed := false
	if strings.HasSuffix(name, ".gz") {
		compressed = true
		name = strings.TrimSuffix(name, ".gz")
	}
	switch filepath.Ext(name) {
	case ".txt", ".vec":
		return FormatText, compressed
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite, compressed
	default:
		return FormatBinary, compressed
	}
}

// ParseFormat validates a configured format name. Empty means auto.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "", FormatAuto:
		return FormatAuto, nil
	case FormatBinary, FormatText, FormatSQLite:
		return f, nil
	default:
		return "", fmt.Errorf("unknown vectors format: %s (supported: auto, binary, text, sqlite)", s)
	}
}

// Open returns a Source reading the embedding file at path. Compressed files
// are decompressed with gzip; uncompressed flat files are memory-mapped.
func Open(ctx context.Context, path string, opts Options) (Source, error) {
	format := opts.Format
	compressed := opts.Compressed
	if format == "" || format == FormatAuto {
		var gz bool
		format, gz = DetectFormat(path)
		compressed = compressed || gz
	}

	if format == FormatSQLite {
		if compressed {
			return nil, fmt.Errorf("compressed sqlite sources are not supported: %s", path)
		}
		return NewSQLiteReader(ctx, path)
	}

	r, err := openStream(path, compressed)
	if err != nil {
		return nil, err
	}
	var src Source
	switch format {
	case FormatText:
		src, err = NewTextReader(r)
	case FormatBinary:
		src, err = NewBinaryReader(r)
	default:
		err = fmt.Errorf("unknown vectors format: %s", format)
	}
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	return src, nil
}

// openStream returns a reader over the raw or decompressed bytes of path.
func openStream(path string, compressed bool) (io.ReadCloser, error) {
	if !compressed {
		m, err := mmap.Open(path)
		if err != nil {
			return nil, &IOError{Path: path, Err: err}
		}
		return &mmapStream{Reader: io.NewSectionReader(m, 0, int64(m.Len())), m: m}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, &IOError{Path: path, Err: fmt.Errorf("gzip: %w", err)}
	}
	return &gzipStream{Reader: zr, f: f}, nil
}

type mmapStream struct {
	io.Reader
	m *mmap.ReaderAt
}

func (s *mmapStream) Close() error { return s.m.Close() }

type gzipStream struct {
	*gzip.Reader
	f *os.File
}

func (s *gzipStream) Close() error {
	zerr := s.Reader.Close()
	if err := s.f.Close(); err != nil {
		return err
	}
	return zerr
}
