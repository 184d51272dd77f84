package headers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okBlock = "HTTP/1.1 200 OK\r\n" +
	"Date: Mon, 27 Jul 2009 12:28:53 GMT\r\n" +
	"Content-Length: 1000\r\n" +
	"Content-MD5: kAFQmDzST7DWlj99KOF/cg==\r\n" +
	"Connection: close\r\n" +
	"\r\n" +
	"body bytes that must be ignored"

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name     string
		block    string
		code     int
		redirect bool
		notFound bool
		ok       bool
	}{
		{"ok", "HTTP/1.1 200 OK\r\n\r\n", 200, false, false, true},
		{"partial", "HTTP/1.1 206 Partial Content\r\n\r\n", 206, false, false, true},
		{"found", "HTTP/1.1 302 Found\r\nLocation: https://example.com/fw.PUP\r\n\r\n", 302, true, false, false},
		{"not found", "HTTP/1.1 404 Not Found\r\n\r\n", 404, false, true, false},
		{"garbage status line", "NOT-HTTP\r\nContent-Length: 5\r\n\r\n", 0, false, false, false},
		{"empty", "", 0, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := Parse(tt.block)
			assert.Equal(t, tt.code, meta.StatusCode)
			assert.Equal(t, tt.redirect, meta.IsRedirect())
			assert.Equal(t, tt.notFound, meta.IsNotFound())
			assert.Equal(t, tt.ok, meta.IsOK())
		})
	}
}

func TestParseFields(t *testing.T) {
	meta := Parse(okBlock)
	assert.Equal(t, "close", meta.Get("connection"))
	assert.Equal(t, "close", meta.Get("Connection"))
	assert.Equal(t, "", meta.Get("X-Missing"))
	// nothing past the separator is treated as a header
	assert.Equal(t, "", meta.Get("body bytes that must be ignored"))
}

func TestLocation(t *testing.T) {
	tests := []struct {
		name  string
		block string
		want  string
	}{
		{"https", "HTTP/1.1 302 Found\r\nLocation: https://dus01.psv.update.playstation.net/fw.PUP\r\n\r\n", "https://dus01.psv.update.playstation.net/fw.PUP"},
		{"http", "HTTP/1.1 302 Found\r\nLocation: http://example.com/a\r\n\r\n", "http://example.com/a"},
		{"absent", "HTTP/1.1 302 Found\r\n\r\n", ""},
		{"relative is rejected", "HTTP/1.1 302 Found\r\nLocation: /elsewhere\r\n\r\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.block).Location())
		})
	}
}

func TestContentLength(t *testing.T) {
	tests := []struct {
		name  string
		block string
		want  int64
	}{
		{"valid", "HTTP/1.1 200 OK\r\nContent-Length: 271645344\r\n\r\n", 271645344},
		{"absent", "HTTP/1.1 200 OK\r\n\r\n", 0},
		{"non-numeric", "HTTP/1.1 200 OK\r\nContent-Length: 12a4\r\n\r\n", 0},
		{"negative", "HTTP/1.1 200 OK\r\nContent-Length: -5\r\n\r\n", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.block).ContentLength())
		})
	}
}

func TestContentMD5(t *testing.T) {
	t.Run("decodes to uppercase hex", func(t *testing.T) {
		digest, err := Parse(okBlock).ContentMD5()
		require.NoError(t, err)
		assert.Equal(t, "900150983CD24FB0D6963F7D28E17F72", digest)
		assert.Len(t, digest, 32)
	})

	t.Run("padding and whitespace are skipped", func(t *testing.T) {
		block := "HTTP/1.1 200 OK\r\nContent-MD5: XrY7u+Ae7tCTyyK7j1rNww==\r\n\r\n"
		digest, err := Parse(block).ContentMD5()
		require.NoError(t, err)
		assert.Equal(t, "5EB63BBBE01EEED093CB22BB8F5ACDC3", digest)
	})

	t.Run("absent header", func(t *testing.T) {
		_, err := Parse("HTTP/1.1 200 OK\r\n\r\n").ContentMD5()
		require.Error(t, err)
	})

	t.Run("character outside the alphabet aborts", func(t *testing.T) {
		block := "HTTP/1.1 200 OK\r\nContent-MD5: kAFQmDzST7DWlj99KO*/cg==\r\n\r\n"
		_, err := Parse(block).ContentMD5()
		require.Error(t, err)
	})

	t.Run("wrong digest length", func(t *testing.T) {
		block := "HTTP/1.1 200 OK\r\nContent-MD5: QUJD\r\n\r\n" // decodes to 3 bytes
		_, err := Parse(block).ContentMD5()
		require.Error(t, err)
	})
}

func TestBodyStart(t *testing.T) {
	assert.Equal(t, -1, BodyStart([]byte("HTTP/1.1 200 OK\r\nContent-Length: 3\r\n")))
	assert.Equal(t, 4, BodyStart([]byte("\r\n\r\nabc")))

	buf := []byte("HTTP/1.1 200 OK\r\n\r\nabc")
	start := BodyStart(buf)
	require.Equal(t, 19, start)
	assert.Equal(t, "abc", string(buf[start:]))
}

func TestFormatDigest(t *testing.T) {
	assert.Equal(t, "00FF10", FormatDigest([]byte{0x00, 0xFF, 0x10}))
}
