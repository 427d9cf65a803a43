package sseclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitterFeed(t *testing.T) {
	tests := []struct {
		msg    string
		chunks []string
		blocks []string
	}{
		{
			msg:    "LF pair delimiter",
			chunks: []string{"data: a\n\n"},
			blocks: []string{"data: a"},
		},
		{
			msg:    "CRLF pair delimiter",
			chunks: []string{"data: a\r\n\r\n"},
			blocks: []string{"data: a"},
		},
		{
			msg:    "CR pair delimiter",
			chunks: []string{"data: a\r\r"},
			blocks: []string{"data: a"},
		},
		{
			msg:    "multiple events in a single read",
			chunks: []string{"data: a\n\ndata: b\n\n"},
			blocks: []string{"data: a", "data: b"},
		},
		{
			msg:    "empty blocks are dropped",
			chunks: []string{"\n\n\n\ndata: a\n\n"},
			blocks: []string{"data: a"},
		},
		{
			msg:    "incomplete event is buffered",
			chunks: []string{"data: a"},
			blocks: nil,
		},
		{
			msg:    "event completed by a later read",
			chunks: []string{"data: a", "\n", "\n"},
			blocks: []string{"data: a"},
		},
		{
			msg:    "CRLF delimiter split between reads",
			chunks: []string{"data: a\r\n", "\r\n"},
			blocks: []string{"data: a"},
		},
		{
			msg:    "trailing bytes stay buffered",
			chunks: []string{"data: a\n\ndata: b"},
			blocks: []string{"data: a"},
		},
		{
			msg:    "mixed delimiter conventions",
			chunks: []string{"data: a\n\ndata: b\r\n\r\ndata: c\r\r"},
			blocks: []string{"data: a", "data: b", "data: c"},
		},
		{
			msg:    "multi line event kept whole",
			chunks: []string{"event: foo\ndata: a\ndata: b\n\n"},
			blocks: []string{"event: foo\ndata: a\ndata: b"},
		},
	}

	for _, test := range tests {
		var s splitter
		var blocks []string
		for _, chunk := range test.chunks {
			for _, block := range s.feed([]byte(chunk)) {
				blocks = append(blocks, string(block))
			}
		}
		assert.Equal(t, test.blocks, blocks, test.msg)
	}
}

// Splitting the same stream in different places must always produce the same
// event blocks.
func TestSplitterFragmentation(t *testing.T) {
	stream := "id: 1\ndata: hello\n\n" +
		"event: tick\r\ndata: a\r\ndata: b\r\n\r\n" +
		":keep-alive\n\n" +
		"retry: 5000\n\nid: 2\rdata: bye\r\r"

	var whole splitter
	var want []string
	for _, block := range whole.feed([]byte(stream)) {
		want = append(want, string(block))
	}
	assert.NotEmpty(t, want)

	var byByte splitter
	var got []string
	for i := 0; i < len(stream); i++ {
		for _, block := range byByte.feed([]byte{stream[i]}) {
			got = append(got, string(block))
		}
	}
	assert.Equal(t, want, got)
}
