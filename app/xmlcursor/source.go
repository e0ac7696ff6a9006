package xmlcursor

import (
	"bufio"
	"fmt"
	"io"

	"golang.org/x/text/encoding/htmlindex"
)

// sourceReader feeds the XML decoder one byte at a time (encoding/xml skips
// its own buffering for io.ByteReader sources) and remembers the last three
// bytes handed out.
type sourceReader struct {
	r          *bufio.Reader
	tail       [3]byte
	transcoded bool
}

func newSourceReader(r io.Reader) *sourceReader {
	return &sourceReader{r: bufio.NewReader(r)}
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	for _, b := range p[:n] {
		s.push(b)
	}
	return n, err
}

func (s *sourceReader) ReadByte() (byte, error) {
	b, err := s.r.ReadByte()
	if err == nil {
		s.push(b)
	}
	return b, err
}

func (s *sourceReader) push(b byte) {
	s.tail[0], s.tail[1], s.tail[2] = s.tail[1], s.tail[2], b
}

// endsCDATA reports whether the decoder last stopped right after "]]>".
// Once a transcoder sits between us and the decoder the byte positions no
// longer line up, so CDATA is reported as plain text.
func (s *sourceReader) endsCDATA() bool {
	return !s.transcoded && s.tail == [3]byte{']', ']', '>'}
}

// charsetReader converts documents declaring a non UTF-8 encoding.
func (s *sourceReader) charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	s.transcoded = true
	return enc.NewDecoder().Reader(input), nil
}
