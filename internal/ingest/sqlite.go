package ingest

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS embeddings (
	id INTEGER PRIMARY KEY,
	word TEXT NOT NULL,
	vector BLOB NOT NULL
);
`

// SQLiteReader streams records from an embeddings table ordered by id.
type SQLiteReader struct {
	db    *sql.DB
	rows  *sql.Rows
	dim   int
	count int
	read  int
	rec   Record
}

// NewSQLiteReader opens the database at path read-only and starts the row scan.
func NewSQLiteReader(ctx context.Context, path string) (*SQLiteReader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	dim, err := readMetaInt(ctx, db, "dimension")
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	count, err := readMetaInt(ctx, db, "count")
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if dim <= 0 || count < 0 {
		_ = db.Close()
		return nil, headerError(fmt.Sprintf("invalid meta: dimension %d, count %d", dim, count), nil)
	}
	rows, err := db.QueryContext(ctx, `SELECT word, vector FROM embeddings ORDER BY id`)
	if err != nil {
		_ = db.Close()
		return nil, headerError("query embeddings table", err)
	}
	return &SQLiteReader{
		db:    db,
		rows:  rows,
		dim:   dim,
		count: count,
		rec:   Record{Vector: make([]float32, dim)},
	}, nil
}

func readMetaInt(ctx context.Context, db *sql.DB, key string) (int, error) {
	var raw string
	err := db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return 0, headerError(fmt.Sprintf("meta key %q missing", key), nil)
	}
	if err != nil {
		return 0, headerError("read meta table", err)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, headerError(fmt.Sprintf("meta key %q is not an integer", key), err)
	}
	return n, nil
}

// Dimension returns the dimension recorded in the meta table.
func (s *SQLiteReader) Dimension() int { return s.dim }

// Len returns the count recorded in the meta table.
func (s *SQLiteReader) Len() int { return s.count }

// Read returns the next row as a record.
// Rows beyond the meta count are ignored; fewer rows is a truncation error.
func (s *SQLiteReader) Read() (*Record, error) {
	if s.read >= s.count {
		return nil, io.EOF
	}
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return nil, &ParseError{Record: s.read, Msg: "scan embeddings table", Err: err}
		}
		return nil, &ParseError{
			Record: s.read,
			Msg:    fmt.Sprintf("truncated table: meta declares %d records", s.count),
			Err:    io.ErrUnexpectedEOF,
		}
	}
	var word string
	var blob []byte
	if err := s.rows.Scan(&word, &blob); err != nil {
		return nil, &ParseError{Record: s.read, Msg: "scan row", Err: err}
	}
	if word == "" {
		return nil, &ParseError{Record: s.read, Msg: "empty word"}
	}
	if len(blob) != s.dim*4 {
		return nil, &ParseError{
			Record: s.read,
			Msg:    fmt.Sprintf("word %q has %d components, meta declares %d", word, len(blob)/4, s.dim),
		}
	}
	for i := range s.rec.Vector {
		v := math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, &ParseError{Record: s.read, Msg: fmt.Sprintf("non-finite component %d for word %q", i, word)}
		}
		s.rec.Vector[i] = v
	}
	s.rec.Word = word
	s.read++
	return &s.rec, nil
}

// Close releases the row cursor and the database handle.
func (s *SQLiteReader) Close() error {
	_ = s.rows.Close()
	return s.db.Close()
}

// WriteSQLite writes every record of src into a new embeddings database at path.
// Parent directories are created if they do not exist. An existing file is replaced.
func WriteSQLite(ctx context.Context, path string, src Source) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to replace database: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO embeddings (id, word, vector) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	n := 0
	for {
		rec, err := src.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(rec.Vector) != src.Dimension() {
			return &ParseError{Record: n, Msg: fmt.Sprintf("word %q has %d components, source declares %d", rec.Word, len(rec.Vector), src.Dimension())}
		}
		if _, err := stmt.ExecContext(ctx, n, rec.Word, float32SliceToBytes(rec.Vector)); err != nil {
			return fmt.Errorf("insert %q: %w", rec.Word, err)
		}
		n++
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES ('dimension', ?), ('count', ?)`,
		strconv.Itoa(src.Dimension()), strconv.Itoa(n),
	); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return tx.Commit()
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}
