// Package httpx implements the wire codec: header utilities, request-line
// and status-line parsing/serialization, body readers and writers, and the
// RFC 7230 §3.3.3 body-framing decision. Every function here operates on
// raw bytes and an in-memory *netx.ReceiveBuffer; none of it performs I/O.
package httpx

import (
	"bytes"

	"github.com/wire1/h1/internal/h1err"
)

// Field is a single (name, value) header pair, stored as the raw bytes that
// appeared (or will appear) on the wire. Names compare case-insensitively;
// order is preserved (spec.md §3).
type Field struct {
	Name  []byte
	Value []byte
}

// Headers is an ordered sequence of header fields.
type Headers []Field

// Clone returns a deep copy, so that cleanup routines can produce a
// modified header list without mutating the caller's slice (spec.md §4.6).
func (h Headers) Clone() Headers {
	out := make(Headers, len(h))
	for i, f := range h {
		out[i] = Field{
			Name:  append([]byte(nil), f.Name...),
			Value: append([]byte(nil), f.Value...),
		}
	}
	return out
}

func eqFold(a, b []byte) bool {
	return bytes.EqualFold(a, b)
}

// GetCommaHeader returns the concatenation of all values for the
// case-insensitive header name, split on commas, each element trimmed of
// surrounding whitespace and lowercased (spec.md §4.2).
func GetCommaHeader(h Headers, name string) [][]byte {
	var out [][]byte
	nameB := []byte(name)
	for _, f := range h {
		if !eqFold(f.Name, nameB) {
			continue
		}
		for _, part := range bytes.Split(f.Value, []byte(",")) {
			part = bytes.TrimSpace(part)
			if len(part) == 0 {
				continue
			}
			out = append(out, bytes.ToLower(part))
		}
	}
	return out
}

// SetCommaHeader removes all existing entries with the given case
// insensitive name and appends one new entry per value (spec.md §4.2). The
// values are assumed to already be wire-encoded; passing an empty values
// slice simply removes the header.
func SetCommaHeader(h Headers, name string, values [][]byte) Headers {
	nameB := []byte(name)
	out := make(Headers, 0, len(h)+len(values))
	for _, f := range h {
		if eqFold(f.Name, nameB) {
			continue
		}
		out = append(out, f)
	}
	for _, v := range values {
		out = append(out, Field{Name: append([]byte(nil), nameB...), Value: v})
	}
	return out
}

// HasExpect100Continue reports whether the request has an HTTP version >=
// 1.1 and a case-insensitive Expect header containing "100-continue"
// (spec.md §4.2).
func HasExpect100Continue(version []byte, h Headers) bool {
	if VersionLess(version, []byte("1.1")) {
		return false
	}
	for _, v := range GetCommaHeader(h, "Expect") {
		if bytes.Equal(v, []byte("100-continue")) {
			return true
		}
	}
	return false
}

// isValidFieldName reports whether s is a valid HTTP header field name per
// RFC 7230 §3.2.6 (tchar token characters).
func isValidFieldName(s []byte) bool {
	if len(s) == 0 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'A' && c <= 'Z',
			c >= 'a' && c <= 'z',
			c >= '0' && c <= '9',
			c == '!', c == '#', c == '$', c == '%', c == '&', c == '\'',
			c == '*', c == '+', c == '-', c == '.', c == '^', c == '_',
			c == '`', c == '|', c == '~':
			continue
		default:
			return false
		}
	}
	return true
}

// isValidFieldValue reports whether s contains no control character other
// than HTAB, per RFC 7230 §3.2.6; bytes 0x80 and above (obs-text) are
// accepted.
func isValidFieldValue(s []byte) bool {
	for _, c := range s {
		if c == '\t' {
			continue
		}
		if c < 32 || c == 127 {
			return false
		}
	}
	return true
}

// ValidateField checks a single header field for RFC 7230 §3.2.6 validity.
func ValidateField(f Field) error {
	if !isValidFieldName(f.Name) {
		return h1err.WithHint(400, "invalid header field name")
	}
	if !isValidFieldValue(f.Value) {
		return h1err.WithHint(400, "invalid header field value")
	}
	return nil
}
