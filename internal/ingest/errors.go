package ingest

import "fmt"

// ParseError reports malformed or truncated input. Record is the zero-based
// index of the offending record, or -1 for the header.
type ParseError struct {
	Record int
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	where := "header"
	if e.Record >= 0 {
		where = fmt.Sprintf("record %d", e.Record)
	}
	if e.Err != nil {
		return fmt.Sprintf("parse error at %s: %s: %v", where, e.Msg, e.Err)
	}
	return fmt.Sprintf("parse error at %s: %s", where, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

func headerError(msg string, err error) *ParseError {
	return &ParseError{Record: -1, Msg: msg, Err: err}
}

// IOError reports a file that could not be opened or read.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
