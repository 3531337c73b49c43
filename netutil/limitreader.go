package netutil

import (
	"errors"
	"fmt"
	"io"
)

// LimitedReader reads at most a fixed number of bytes from the underlying
// reader and fails with SizeLimitExceededError when more data is available.
// Unlike io.LimitReader it distinguishes "exactly at the limit" from
// "truncated" by probing one byte past the limit.
type LimitedReader struct {
	r     io.Reader
	n     int64
	limit int64
	read  int64
}

// NewLimitedReader wraps r with a byte limit.
func NewLimitedReader(r io.Reader, limit int64) *LimitedReader {
	return &LimitedReader{r: r, n: limit, limit: limit}
}

// Read implements io.Reader.
func (l *LimitedReader) Read(p []byte) (int, error) {
	if l.n <= 0 {
		return 0, &SizeLimitExceededError{Limit: l.limit, Read: l.read}
	}
	if int64(len(p)) > l.n {
		p = p[:l.n]
	}

	n, err := l.r.Read(p)
	l.n -= int64(n)
	l.read += int64(n)

	if l.n == 0 && err == nil {
		var probe [1]byte
		extra, probeErr := l.r.Read(probe[:])
		if extra > 0 {
			return n, &SizeLimitExceededError{Limit: l.limit, Read: l.read + 1}
		}
		if probeErr != nil && probeErr != io.EOF {
			return n, probeErr
		}
	}
	return n, err
}

// BytesRead returns the number of bytes read so far.
func (l *LimitedReader) BytesRead() int64 {
	return l.read
}

// SizeLimitExceededError reports a response body larger than the limit.
type SizeLimitExceededError struct {
	Limit int64
	Read  int64
}

func (e *SizeLimitExceededError) Error() string {
	return fmt.Sprintf("size limit exceeded: read %d bytes, limit is %d bytes", e.Read, e.Limit)
}

// IsSizeLimitExceededError reports whether err is a SizeLimitExceededError.
func IsSizeLimitExceededError(err error) bool {
	var limitErr *SizeLimitExceededError
	return errors.As(err, &limitErr)
}
