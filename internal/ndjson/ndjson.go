// Package ndjson provides newline-delimited JSON reading and writing over
// byte streams. The Reader tolerates arbitrarily long lines and yields any
// unterminated trailing line at end of stream.
package ndjson

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"sync"
)

// Reader reads newline-delimited records from an underlying stream.
type Reader struct {
	br *bufio.Reader
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReader(r)}
}

// ReadLine returns the next non-empty line with the trailing newline (and any
// carriage return) stripped. At end of stream a final unterminated line is
// returned before io.EOF.
func (r *Reader) ReadLine() ([]byte, error) {
	for {
		line, err := r.br.ReadBytes('\n')
		line = bytes.TrimRight(line, "\r\n")

		if err != nil {
			if err == io.EOF && len(line) > 0 {
				return line, nil
			}
			return nil, err
		}

		if len(line) == 0 {
			continue
		}
		return line, nil
	}
}

// Writer writes newline-delimited records to an underlying stream.
// Writes are serialized so concurrent callers cannot interleave lines.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteRaw writes a pre-encoded line, appending a newline if needed.
func (w *Writer) WriteRaw(line []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.w.Write(line); err != nil {
		return err
	}
	if len(line) == 0 || line[len(line)-1] != '\n' {
		if _, err := w.w.Write([]byte{'\n'}); err != nil {
			return err
		}
	}
	return nil
}

// WriteMessage marshals v as JSON and writes it as one line.
func (w *Writer) WriteMessage(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.WriteRaw(data)
}
