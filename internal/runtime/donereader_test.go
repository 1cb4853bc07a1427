package runtime

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestDoneReaderSignalsEOF(t *testing.T) {
	dr := newDoneReader(strings.NewReader("abc"))

	buf := make([]byte, 8)
	n, err := dr.Read(buf)
	if n != 3 || (err != nil && err != io.EOF) {
		t.Fatalf("unexpected read: n=%d err=%v", n, err)
	}

	// Drain until EOF.
	for err == nil {
		_, err = dr.Read(buf)
	}
	if err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}

	select {
	case <-dr.done:
	default:
		t.Fatal("done channel not closed after EOF")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("broken")
}

func TestDoneReaderSignalsError(t *testing.T) {
	dr := newDoneReader(failingReader{})

	if _, err := dr.Read(make([]byte, 1)); err == nil {
		t.Fatal("expected read error")
	}

	select {
	case <-dr.done:
	default:
		t.Fatal("done channel not closed after error")
	}

	// A second failing read must not close the channel twice.
	dr.Read(make([]byte, 1))
}
