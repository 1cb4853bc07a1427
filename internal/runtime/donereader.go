package runtime

import (
	"io"
	"sync"
)

// Wraps an [io.Reader] and signals when the stream ends.
//
// The done channel is closed exactly once on the first terminal error,
// [io.EOF] included. A failed reader must still fire the signal, otherwise
// an exec process waiting on stdin EOF would hang.
type doneReader struct {
	r    io.Reader
	once sync.Once
	done chan struct{}
}

// Creates a new [doneReader] wrapping the given reader.
func newDoneReader(r io.Reader) *doneReader {
	return &doneReader{r: r, done: make(chan struct{})}
}

// Delegates to the underlying reader, closing the done channel on the
// first error.
func (d *doneReader) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	if err != nil {
		d.once.Do(func() { close(d.done) })
	}
	return n, err
}
