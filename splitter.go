package sseclient

import "bytes"

// Event block delimiters in the SSE wire format. Streams can mix all three
// conventions, the earliest match in the buffer ends the current block.
var delimiters = [][]byte{
	[]byte("\r\n\r\n"),
	[]byte("\n\n"),
	[]byte("\r\r"),
}

// splitter accumulates a raw byte stream and extracts complete event blocks
// from it. Bytes of a partially received event stay in the buffer until the
// rest of the event arrives.
type splitter struct {
	buf []byte
}

// feed appends a single transport read to the accumulation buffer and
// returns all event blocks completed by it. Returned blocks do not include
// the delimiter, empty blocks are dropped. Blocks are copies and are safe to
// retain.
func (s *splitter) feed(p []byte) [][]byte {
	s.buf = append(s.buf, p...)

	var blocks [][]byte
	for {
		pos, width := nextDelimiter(s.buf)
		if pos < 0 {
			break
		}
		if pos > 0 {
			block := make([]byte, pos)
			copy(block, s.buf)
			blocks = append(blocks, block)
		}
		s.buf = s.buf[pos+width:]
	}
	return blocks
}

// nextDelimiter returns the position and length of the earliest event block
// delimiter in b, or (-1, 0) if b contains no complete delimiter yet.
func nextDelimiter(b []byte) (pos int, width int) {
	pos = -1
	for _, d := range delimiters {
		if i := bytes.Index(b, d); i >= 0 && (pos < 0 || i < pos) {
			pos = i
			width = len(d)
		}
	}
	return pos, width
}
