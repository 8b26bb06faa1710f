package stream

import (
	"bytes"
	"strings"
)

// LineParser maps one complete provider-native JSON line to zero or more
// canonical chunks. Implementations are stateful per process instance: tool
// input fragments accumulate inside the parser until the backend signals the
// block closed. Returning (nil, nil) means the line was a lifecycle-only
// record that produces no chunk. Returning an error means the line could not
// be interpreted as a record; the normalizer falls back to treating it as
// raw text.
type LineParser interface {
	ParseLine(line []byte) ([]Chunk, error)
}

// Normalizer reassembles newline-delimited records from arbitrary byte
// chunks and applies the shared normalization rules every provider must
// follow identically: partial trailing lines are buffered across Feed calls,
// unparseable lines degrade to text, and a session id is surfaced at most
// once per process and never for a resumed session.
type Normalizer struct {
	parser      LineParser
	buf         bytes.Buffer
	sessionSeen bool
}

// NewNormalizer creates a normalizer backed by the given provider parser.
func NewNormalizer(parser LineParser) *Normalizer {
	return &Normalizer{parser: parser}
}

// MarkSessionKnown suppresses session chunks for the rest of this process.
// Called when the process resumes an existing session, so a backend that
// re-announces the id on resume does not look like a fresh assignment.
func (n *Normalizer) MarkSessionKnown() {
	n.sessionSeen = true
}

// Feed consumes raw stdout bytes and returns the chunks produced by every
// complete line they finish. The chunk sequence is independent of how the
// bytes were split across calls.
func (n *Normalizer) Feed(data []byte) []Chunk {
	n.buf.Write(data)

	var chunks []Chunk
	for {
		raw := n.buf.Bytes()
		idx := bytes.IndexByte(raw, '\n')
		if idx < 0 {
			break
		}
		line := make([]byte, idx)
		copy(line, raw[:idx])
		n.buf.Next(idx + 1)

		chunks = append(chunks, n.handleLine(line)...)
	}
	return chunks
}

// Flush handles end of stream: any non-empty remainder is parsed as a final
// line. The normalizer must not be fed again afterwards.
func (n *Normalizer) Flush() []Chunk {
	rest := n.buf.Bytes()
	n.buf.Reset()
	if len(bytes.TrimSpace(rest)) == 0 {
		return nil
	}
	return n.handleLine(rest)
}

func (n *Normalizer) handleLine(line []byte) []Chunk {
	trimmed := bytes.TrimRight(line, "\r")
	if len(bytes.TrimSpace(trimmed)) == 0 {
		return nil
	}

	chunks, err := n.parser.ParseLine(trimmed)
	if err != nil {
		// Not a record. CLIs occasionally print plain text on stdout; surface
		// it instead of dropping it.
		return []Chunk{TextChunk{Text: strings.TrimRight(string(trimmed), "\n")}}
	}

	return n.filterSession(chunks)
}

// filterSession enforces the at-most-once session id rule.
func (n *Normalizer) filterSession(chunks []Chunk) []Chunk {
	out := chunks[:0]
	for _, c := range chunks {
		if _, ok := c.(SessionChunk); ok {
			if n.sessionSeen {
				continue
			}
			n.sessionSeen = true
		}
		out = append(out, c)
	}
	return out
}
