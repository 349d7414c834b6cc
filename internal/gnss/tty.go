package gnss

import (
	"bufio"
	"fmt"
	"io"
)

// TTYReader reads NMEA sentences line-by-line off a serial device (or any
// io.ReadCloser standing in for one). The vendor HAL owns opening and
// configuring the actual tty (baud rate, UBX enable commands); TTYReader
// only consumes the sentence stream.
type TTYReader struct {
	rc   io.ReadCloser
	scan *bufio.Scanner
}

// NewTTYReader wraps an already-open serial connection.
func NewTTYReader(rc io.ReadCloser) *TTYReader {
	return &TTYReader{rc: rc, scan: bufio.NewScanner(rc)}
}

func (r *TTYReader) NextFix() (Fix, bool, error) {
	if !r.scan.Scan() {
		if err := r.scan.Err(); err != nil {
			return Fix{}, false, fmt.Errorf("gnss: tty read: %w", err)
		}
		return Fix{}, false, io.EOF
	}
	return parseRMC(r.scan.Text())
}

func (r *TTYReader) Close() error { return r.rc.Close() }
