package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/advbet/sseclient"
)

func TestSubjectFor(t *testing.T) {
	tests := []struct {
		msg     string
		prefix  string
		event   string
		subject string
	}{
		{msg: "plain event type", prefix: "sse", event: "message", subject: "sse.message"},
		{msg: "dots are escaped", prefix: "sse", event: "odds.update", subject: "sse.odds_update"},
		{msg: "wildcards are escaped", prefix: "sse", event: "a*b>c", subject: "sse.a_b_c"},
		{msg: "spaces are escaped", prefix: "sse", event: "two words", subject: "sse.two_words"},
	}

	for _, test := range tests {
		assert.Equal(t, test.subject, subjectFor(test.prefix, test.event), test.msg)
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	s, err := openStore(ctx, config{Driver: "memory"})
	assert.NoError(t, err)
	assert.IsType(t, &sseclient.MemoryStore{}, s)

	s, err = openStore(ctx, config{
		Driver:    "file",
		StorePath: filepath.Join(t.TempDir(), "relay.state"),
	})
	assert.NoError(t, err)
	assert.IsType(t, &sseclient.FileStore{}, s)

	_, err = openStore(ctx, config{Driver: "bolt"})
	assert.Error(t, err)
}
