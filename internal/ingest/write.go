package ingest

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WriteBinary writes src in the word2vec binary layout. The header declares
// src.Len() records, so src must yield exactly that many.
func WriteBinary(w io.Writer, src Source) error {
	return writeRecords(w, src, func(bw *bufio.Writer, rec *Record) error {
		if _, err := bw.WriteString(rec.Word); err != nil {
			return err
		}
		if err := bw.WriteByte(' '); err != nil {
			return err
		}
		if _, err := bw.Write(float32SliceToBytes(rec.Vector)); err != nil {
			return err
		}
		return bw.WriteByte('\n')
	})
}

// WriteText writes src in the word2vec text layout.
func WriteText(w io.Writer, src Source) error {
	return writeRecords(w, src, func(bw *bufio.Writer, rec *Record) error {
		var sb strings.Builder
		sb.WriteString(rec.Word)
		for _, v := range rec.Vector {
			sb.WriteByte(' ')
			sb.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
		}
		sb.WriteByte('\n')
		_, err := bw.WriteString(sb.String())
		return err
	})
}

func writeRecords(w io.Writer, src Source, write func(*bufio.Writer, *Record) error) error {
	bw := bufio.NewWriter(w)
	declared := src.Len()
	if _, err := fmt.Fprintf(bw, "%d %d\n", declared, src.Dimension()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
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
		if strings.ContainsAny(rec.Word, " \n\r") || rec.Word == "" {
			return &ParseError{Record: n, Msg: fmt.Sprintf("word %q cannot be written as a single token", rec.Word)}
		}
		if err := write(bw, rec); err != nil {
			return fmt.Errorf("write record %d: %w", n, err)
		}
		n++
	}
	if n != declared {
		return fmt.Errorf("source yielded %d records, header declares %d", n, declared)
	}
	return bw.Flush()
}
