package proto

import "bytes"

// Framer reassembles messages from a sentinel-delimited byte stream.
//
// FIFOs deliver arbitrary chunks: one read may carry a fragment of a
// message, several complete messages, or a sentinel split across two
// reads.  Framer accumulates everything fed to it and emits each message
// exactly once, in stream order, regardless of chunking.
type Framer struct {
	sentinel []byte
	buf      []byte
}

// NewFramer returns a Framer splitting on sentinel.
func NewFramer(sentinel string) *Framer {
	return &Framer{sentinel: []byte(sentinel)}
}

// Feed appends p to the accumulator and returns every message completed
// by it.  A message is the content preceding one sentinel occurrence;
// the sentinel itself is consumed.
func (f *Framer) Feed(p []byte) []string {
	f.buf = append(f.buf, p...)
	var msgs []string
	for {
		i := bytes.Index(f.buf, f.sentinel)
		if i < 0 {
			break
		}
		msgs = append(msgs, string(f.buf[:i]))
		f.buf = f.buf[i+len(f.sentinel):]
	}
	return msgs
}

// Pending returns the number of buffered bytes awaiting a sentinel.
func (f *Framer) Pending() int {
	return len(f.buf)
}
