package sseclient

import (
	"strconv"
	"strings"
	"time"
)

// fields is a parsed representation of a single event block. Map keys are
// field names, values of repeated fields are joined with "\n" in the order
// they were received. Key presence carries meaning, id field with an empty
// value is not the same as a missing id field.
type fields map[string]string

// parseBlock interprets a single raw event block. For a regular event block
// it returns the field map. For a block carrying a retry field it returns
// the new retry interval with ok set to true, such blocks are never
// dispatched and their other fields are discarded. Comment blocks, empty
// blocks and blocks with a malformed retry value return a nil map.
func parseBlock(block []byte) (f fields, retry time.Duration, ok bool) {
	if len(block) == 0 || block[0] == ':' {
		return nil, 0, false
	}

	lines := splitLines(block)
	for _, line := range lines {
		if strings.Contains(line, "retry:") {
			retry, ok = retryValue(line)
			return nil, retry, ok
		}
	}

	f = make(fields)
	for _, line := range lines {
		name, value := parseField(line)
		if name == "" {
			continue
		}
		if prev, found := f[name]; found {
			f[name] = prev + "\n" + value
		} else {
			f[name] = value
		}
	}
	return f, 0, false
}

// splitLines splits a raw event block into lines. All three line ending
// conventions are accepted and can be mixed within a single block.
func splitLines(block []byte) []string {
	var lines []string
	start := 0
	for i := 0; i < len(block); i++ {
		switch block[i] {
		case '\n':
			lines = append(lines, string(block[start:i]))
			start = i + 1
		case '\r':
			lines = append(lines, string(block[start:i]))
			if i+1 < len(block) && block[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	if start < len(block) {
		lines = append(lines, string(block[start:]))
	}
	return lines
}

// parseField splits a single line into a field name and a value. Line is
// split on the first colon, line without a colon is a field with an empty
// value. Both parts are trimmed of surrounding whitespace so "data:value"
// and "data: value" forms are equal.
func parseField(line string) (name, value string) {
	name, value, _ = strings.Cut(line, ":")
	return strings.TrimSpace(name), strings.TrimSpace(value)
}

// retryValue extracts the retry interval from an event block line. Value is
// taken after the last colon of the line and is expected to be an interval
// in milliseconds. ok reports whether the value was well formed.
func retryValue(line string) (time.Duration, bool) {
	i := strings.LastIndex(line, ":")
	ms, err := strconv.Atoi(strings.TrimSpace(line[i+1:]))
	if err != nil || ms < 0 {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}
