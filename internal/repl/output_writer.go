package repl

import (
	"io"
	"sync"
)

// crlfWriter turns bare '\n' into "\r\n" so output lands at column 0 while
// the line editor holds the terminal in raw mode. Existing "\r\n" pairs,
// including ones split across writes, pass through unchanged.
type crlfWriter struct {
	out io.Writer

	mu     sync.Mutex
	lastCR bool
}

func newCRLFWriter(out io.Writer) io.Writer {
	return &crlfWriter{out: out}
}

func (w *crlfWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	buf := make([]byte, 0, len(p)+8)
	for _, b := range p {
		if b == '\n' && !w.lastCR {
			buf = append(buf, '\r')
		}
		buf = append(buf, b)
		w.lastCR = b == '\r'
	}
	if _, err := w.out.Write(buf); err != nil {
		return 0, err
	}
	return len(p), nil
}
