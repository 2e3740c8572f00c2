package stream

import (
	"errors"
	"io"
	"strings"
)

const (
	// EventLabel prefixes every data event on the wire.
	EventLabel = "data: "
	// boundary separates events.
	boundary = "\n\n"
	// readSize is the chunk size requested from the transport.
	readSize = 32 * 1024
)

// Framer reassembles event payloads from arbitrarily split text fragments.
// Only the unterminated tail of the stream is retained between pushes.
type Framer struct {
	buf string
}

// NewFramer creates an empty Framer
func NewFramer() *Framer {
	return &Framer{}
}

// Push appends a fragment and returns the payloads of every event it
// completed, in stream order. Pieces without the data label and empty
// payloads are dropped.
func (f *Framer) Push(fragment string) []string {
	f.buf += fragment
	if strings.Contains(f.buf, "\r\n") {
		f.buf = strings.ReplaceAll(f.buf, "\r\n", "\n")
	}

	pieces := strings.Split(f.buf, boundary)
	f.buf = pieces[len(pieces)-1]

	var payloads []string
	for _, piece := range pieces[:len(pieces)-1] {
		if !strings.HasPrefix(piece, EventLabel) {
			continue
		}
		payload := strings.TrimSpace(piece[len(EventLabel):])
		if payload == "" {
			continue
		}
		payloads = append(payloads, payload)
	}
	return payloads
}

// Buffered returns the unterminated remainder
func (f *Framer) Buffered() string {
	return f.buf
}

// Reset drops any buffered remainder
func (f *Framer) Reset() {
	f.buf = ""
}

// Reader drives a Framer from a transport stream
type Reader struct {
	src    io.Reader
	framer *Framer
	chunk  []byte
}

// NewReader creates a Reader with a fresh Framer
func NewReader(src io.Reader) *Reader {
	return &Reader{
		src:    src,
		framer: NewFramer(),
		chunk:  make([]byte, readSize),
	}
}

// Next reads one chunk from the transport and returns the payloads it
// completed, possibly none. At end of stream the unterminated remainder
// is discarded and io.EOF is returned.
func (r *Reader) Next() ([]string, error) {
	n, err := r.src.Read(r.chunk)
	var payloads []string
	if n > 0 {
		payloads = r.framer.Push(string(r.chunk[:n]))
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			r.framer.Reset()
			return payloads, io.EOF
		}
		return payloads, err
	}
	return payloads, nil
}

// Pending returns the unterminated remainder; empty after io.EOF.
func (r *Reader) Pending() string {
	return r.framer.Buffered()
}
