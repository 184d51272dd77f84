// Package headers parses the header block of a raw HTTP/1.1 response.
package headers

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/nonandgoku/Vita3K/internal/utils"
)

const base64Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// Metadata is a parsed, transient view of one response's header block.
// It is recomputed per request and never persisted.
type Metadata struct {
	StatusCode   int
	StatusPhrase string
	fields       map[string]string
}

// Parse tokenizes a raw header block (anything past the first blank line is
// ignored) into a status code and a case-insensitive field map.
func Parse(block string) Metadata {
	if i := strings.Index(block, "\r\n\r\n"); i >= 0 {
		block = block[:i]
	}
	m := Metadata{fields: make(map[string]string)}
	lines := strings.Split(block, "\r\n")
	if len(lines) == 0 {
		return m
	}
	if parts := strings.SplitN(lines[0], " ", 3); len(parts) >= 2 && strings.HasPrefix(parts[0], "HTTP/") {
		if code, err := strconv.Atoi(parts[1]); err == nil {
			m.StatusCode = code
		}
		if len(parts) == 3 {
			m.StatusPhrase = parts[2]
		}
	}
	for _, line := range lines[1:] {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		m.fields[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	return m
}

// Get returns a header value by case-insensitive name, "" when absent.
func (m Metadata) Get(key string) string {
	return m.fields[strings.ToLower(key)]
}

func (m Metadata) IsOK() bool {
	return m.StatusCode == 200 || m.StatusCode == 206
}

func (m Metadata) IsPartial() bool {
	return m.StatusCode == 206
}

func (m Metadata) IsRedirect() bool {
	return m.StatusCode >= 300 && m.StatusCode < 400
}

func (m Metadata) IsNotFound() bool {
	return m.StatusCode == 404
}

// Location returns the redirect target, or "" when the header is absent or
// does not carry an absolute http(s) URL.
func (m Metadata) Location() string {
	loc := m.Get("Location")
	if !strings.HasPrefix(loc, "http://") && !strings.HasPrefix(loc, "https://") {
		return ""
	}
	if i := strings.IndexFunc(loc, unicode.IsSpace); i >= 0 {
		loc = loc[:i]
	}
	return loc
}

// ContentLength returns the declared body length. Absent or non-numeric
// values yield 0, which callers treat as failure.
func (m Metadata) ContentLength() int64 {
	value := m.Get("Content-Length")
	if value == "" {
		return 0
	}
	for _, c := range value {
		if c < '0' || c > '9' {
			return 0
		}
	}
	size, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return size
}

// ContentMD5 decodes the base64 Content-MD5 value into a 32-character
// uppercase hex digest. An absent or malformed header is an error.
func (m Metadata) ContentMD5() (string, error) {
	value := m.Get("Content-MD5")
	if value == "" {
		return "", utils.ErrMissingChecksum
	}
	digest, err := decodeBase64(value)
	if err != nil {
		return "", err
	}
	if len(digest) != md5.Size {
		return "", fmt.Errorf("decoded checksum is %d bytes, want %d", len(digest), md5.Size)
	}
	return FormatDigest(digest), nil
}

// decodeBase64 runs a 6-bit accumulator over the value, skipping padding and
// whitespace. Any character outside the alphabet aborts the decode.
func decodeBase64(value string) ([]byte, error) {
	var out []byte
	var accum uint32
	bits := 0
	for _, c := range value {
		if c == '=' || unicode.IsSpace(c) {
			continue
		}
		index := strings.IndexRune(base64Chars, c)
		if index < 0 {
			return nil, fmt.Errorf("invalid character in base64 value: %q", c)
		}
		accum = accum<<6 | uint32(index)
		bits += 6
		if bits >= 8 {
			bits -= 8
			out = append(out, byte(accum>>bits))
		}
	}
	return out, nil
}

// FormatDigest renders a raw digest as uppercase hex, two characters per byte.
func FormatDigest(digest []byte) string {
	var b strings.Builder
	for _, c := range digest {
		fmt.Fprintf(&b, "%02X", c)
	}
	return b.String()
}

// BodyStart returns the index of the first body byte (past the CRLFCRLF
// separator), or -1 when the buffer does not yet contain a full header block.
func BodyStart(buf []byte) int {
	i := bytes.Index(buf, []byte("\r\n\r\n"))
	if i < 0 {
		return -1
	}
	return i + 4
}
