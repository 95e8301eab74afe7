package shellrpc

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
)

const readChunkSize = 4096

// frameScanner scans a byte stream for frame delimiters using buffered reads.
// Tokens are delimited by either a newline or a NUL sentinel.
type frameScanner struct {
	r       io.Reader
	pending []byte
	buf     [readChunkSize]byte
}

func newFrameScanner(r io.Reader) *frameScanner {
	return &frameScanner{r: r}
}

// next returns the bytes up to (and excluding) the next delimiter, along with
// the delimiter itself: '\n' for a line, 0 for a NUL sentinel. A closed stream
// is an error; the protocol never ends a frame with EOF.
func (s *frameScanner) next() (tok []byte, delim byte, err error) {
	for {
		if i := indexDelim(s.pending); i >= 0 {
			tok = append([]byte(nil), s.pending[:i]...)
			delim = s.pending[i]
			s.pending = append(s.pending[:0], s.pending[i+1:]...)

			return tok, delim, nil
		}

		n, err := s.r.Read(s.buf[:])
		if n > 0 {
			s.pending = append(s.pending, s.buf[:n]...)
			continue
		}

		if err == nil {
			err = io.EOF
		}

		return nil, 0, errors.Wrap(err, "stream closed mid-frame")
	}
}

func indexDelim(b []byte) int {
	i := bytes.IndexByte(b, '\n')
	j := bytes.IndexByte(b, 0)

	switch {
	case i < 0:
		return j
	case j < 0:
		return i
	case i < j:
		return i
	default:
		return j
	}
}
