// Package wire decodes the UDP control datagrams that drive overlay widgets.
//
// The scanner is deliberately not a general JSON parser: it performs bounded
// byte scans for a `"key"` pattern followed by a colon and a typed value read.
// A missing or malformed field is reported as absent, never as a global parse
// failure, so the rest of the datagram is still processed. Escape sequences
// pass through undecoded and nesting is balanced by plain brace/bracket depth
// counting (the grammar assumes well-formed nesting; a mismatched brace aborts
// the current object only).
package wire

import (
	"bytes"
	"strconv"
)

// findValue locates the start of the value for key inside buf. It returns -1
// when the key or its colon is absent. Like the wire contract itself the
// lookup is loose: the first occurrence of the quoted key wins, wherever it
// sits in buf.
func findValue(buf []byte, key string) int {
	pat := make([]byte, 0, len(key)+2)
	pat = append(pat, '"')
	pat = append(pat, key...)
	pat = append(pat, '"')
	i := bytes.Index(buf, pat)
	if i < 0 {
		return -1
	}
	p := i + len(pat)
	j := bytes.IndexByte(buf[p:], ':')
	if j < 0 {
		return -1
	}
	p += j + 1
	for p < len(buf) && isSpace(buf[p]) {
		p++
	}
	if p >= len(buf) {
		return -1
	}
	return p
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// FieldInt extracts an integer value for key. Hex (0x...) and octal prefixes
// are honored the way the senders emit colors. Non-numeric values report absent.
func FieldInt(buf []byte, key string) (int, bool) {
	p := findValue(buf, key)
	if p < 0 {
		return 0, false
	}
	tok := numberToken(buf[p:])
	if tok == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(tok, 0, 64)
	if err != nil {
		// Tolerate a float where an int was requested by truncating.
		f, ferr := strconv.ParseFloat(tok, 64)
		if ferr != nil {
			return 0, false
		}
		return int(f), true
	}
	return int(v), true
}

// FieldFloat extracts a floating point value for key.
func FieldFloat(buf []byte, key string) (float64, bool) {
	p := findValue(buf, key)
	if p < 0 {
		return 0, false
	}
	tok := numberToken(buf[p:])
	if tok == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FieldBool extracts a true/false literal for key.
func FieldBool(buf []byte, key string) (bool, bool) {
	p := findValue(buf, key)
	if p < 0 {
		return false, false
	}
	rest := buf[p:]
	switch {
	case bytes.HasPrefix(rest, []byte("true")):
		return true, true
	case bytes.HasPrefix(rest, []byte("false")):
		return false, true
	}
	return false, false
}

// FieldString extracts a quoted string for key, truncated to max bytes when
// max > 0. Escape sequences are passed through verbatim.
func FieldString(buf []byte, key string, max int) (string, bool) {
	p := findValue(buf, key)
	if p < 0 || buf[p] != '"' {
		return "", false
	}
	p++
	q := bytes.IndexByte(buf[p:], '"')
	if q < 0 {
		return "", false
	}
	s := buf[p : p+q]
	if max > 0 && len(s) > max {
		s = s[:max]
	}
	return string(s), true
}

// FieldIntArray extracts up to max integers from a flat array value. The
// second result reports whether the key with an array value was present at
// all, so callers can distinguish "no change" from "set to empty".
func FieldIntArray(buf []byte, key string, max int) ([]int, bool) {
	p := findValue(buf, key)
	if p < 0 || buf[p] != '[' {
		return nil, false
	}
	out := make([]int, 0, max)
	p++
	for p < len(buf) && len(out) < max {
		for p < len(buf) && isSpace(buf[p]) {
			p++
		}
		if p >= len(buf) || buf[p] == ']' {
			break
		}
		tok := numberToken(buf[p:])
		if tok == "" {
			break
		}
		v, err := strconv.ParseInt(tok, 0, 64)
		if err != nil {
			break
		}
		out = append(out, int(v))
		p += len(tok)
		for p < len(buf) && buf[p] != ',' && buf[p] != ']' {
			p++
		}
		if p < len(buf) && buf[p] == ',' {
			p++
		}
	}
	return out, true
}

// arrayBody returns the contents between the balanced brackets of key's array
// value, or nil when absent. Depth counting spans both bracket kinds so object
// elements survive. A bracket that never closes means the datagram was cut
// mid-array; the entries received before the cut still decode, so the rest of
// the buffer is the body.
func arrayBody(buf []byte, key string) []byte {
	p := findValue(buf, key)
	if p < 0 || buf[p] != '[' {
		return nil
	}
	depth := 0
	for i := p; i < len(buf); i++ {
		switch buf[i] {
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 {
				return buf[p+1 : i]
			}
		}
	}
	return buf[p+1:]
}

// objects splits an array body into balanced {...} windows. An unbalanced
// object terminates the scan; objects collected before it stand.
func objects(arr []byte) [][]byte {
	var out [][]byte
	p := 0
	for p < len(arr) {
		for p < len(arr) && arr[p] != '{' && arr[p] != ']' {
			p++
		}
		if p >= len(arr) || arr[p] == ']' {
			break
		}
		start := p
		depth := 1
		p++
		for p < len(arr) && depth > 0 {
			switch arr[p] {
			case '{':
				depth++
			case '}':
				depth--
			}
			p++
		}
		if depth != 0 {
			break
		}
		out = append(out, arr[start:p])
	}
	return out
}

// elements splits an array body into top-level scalar tokens, honoring quoted
// strings so embedded commas do not split an element.
func elements(arr []byte) [][]byte {
	var out [][]byte
	p := 0
	for p < len(arr) {
		for p < len(arr) && isSpace(arr[p]) {
			p++
		}
		if p >= len(arr) {
			break
		}
		start := p
		if arr[p] == '"' {
			p++
			for p < len(arr) && arr[p] != '"' {
				p++
			}
			if p < len(arr) {
				p++ // closing quote
			}
		} else {
			for p < len(arr) && arr[p] != ',' {
				p++
			}
		}
		end := p
		for end > start && isSpace(arr[end-1]) {
			end--
		}
		out = append(out, arr[start:end])
		for p < len(arr) && arr[p] != ',' {
			p++
		}
		if p < len(arr) {
			p++ // comma
		}
	}
	return out
}

// numberToken returns the longest numeric-looking prefix of buf as a string.
func numberToken(buf []byte) string {
	i := 0
	for i < len(buf) {
		c := buf[i]
		if (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.' ||
			c == 'e' || c == 'E' || c == 'x' || c == 'X' ||
			(c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') {
			i++
			continue
		}
		break
	}
	return string(buf[:i])
}
