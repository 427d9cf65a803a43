package sseclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBasicAuth(t *testing.T) {
	tests := []struct {
		msg      string
		username string
		password string
		header   string
	}{
		{
			msg:      "regular credentials",
			username: "user",
			password: "pass",
			header:   "Basic dXNlcjpwYXNz",
		},
		{
			msg:      "empty credentials",
			username: "",
			password: "",
			header:   "Basic Og==",
		},
		{
			msg:      "password with a colon",
			username: "user",
			password: "pa:ss",
			header:   "Basic dXNlcjpwYTpzcw==",
		},
	}

	for _, test := range tests {
		assert.Equal(t, test.header, BasicAuth(test.username, test.password), test.msg)
	}
}
