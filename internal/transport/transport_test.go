package transport

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{InsecureSkipVerify: true}

func TestSplitURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantHost string
		wantPath string
	}{
		{"host and path", "https://example.com/update/fw.PUP", "example.com", "/update/fw.PUP"},
		{"host with port", "https://example.com:8443/fw.PUP", "example.com:8443", "/fw.PUP"},
		{"no path", "https://example.com", "example.com", "/"},
		{"no scheme", "example.com/fw.PUP", "", "/"},
		{"deep path with query", "https://example.com/a/b?c=d", "example.com", "/a/b?c=d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, path := SplitURL(tt.url)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPath, path)
		})
	}
}

type recordedRequest struct {
	mu          sync.Mutex
	method      string
	path        string
	host        string
	rangeHeader string
	acceptRange string
	userAgent   string
}

func TestOpenSendsRequest(t *testing.T) {
	var rec recordedRequest
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.mu.Lock()
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.host = r.Host
		rec.rangeHeader = r.Header.Get("Range")
		rec.userAgent = r.Header.Get("User-Agent")
		rec.mu.Unlock()
		w.Header().Set("Content-Length", "5")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "hello")
	}))
	defer server.Close()

	session, err := Open(server.URL+"/update/fw.PUP", "GET", 0, testConfig)
	require.NoError(t, err)
	defer session.Close()

	data, err := io.ReadAll(sessionReader{session})
	require.NoError(t, err)
	assert.Contains(t, string(data), "HTTP/1.1 200 OK")
	assert.True(t, strings.HasSuffix(string(data), "hello"))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, "GET", rec.method)
	assert.Equal(t, "/update/fw.PUP", rec.path)
	assert.Equal(t, strings.TrimPrefix(server.URL, "https://"), rec.host)
	assert.Empty(t, rec.rangeHeader, "no Range header without a resume offset")
	assert.NotEmpty(t, rec.userAgent)
}

func TestOpenResumeSendsRangeHeaders(t *testing.T) {
	var rec recordedRequest
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.mu.Lock()
		rec.rangeHeader = r.Header.Get("Range")
		rec.acceptRange = r.Header.Get("Accept-Ranges")
		rec.mu.Unlock()
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(http.StatusPartialContent)
	}))
	defer server.Close()

	session, err := Open(server.URL+"/fw.PUP", "GET", 500, testConfig)
	require.NoError(t, err)
	session.Close()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, "bytes=500-", rec.rangeHeader)
	assert.Equal(t, "bytes", rec.acceptRange)
}

func TestFetch(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "9")
		w.Header().Set("Content-MD5", "kAFQmDzST7DWlj99KOF/cg==")
		w.WriteHeader(http.StatusOK)
		if r.Method != "HEAD" {
			io.WriteString(w, "some body")
		}
	}))
	defer server.Close()

	t.Run("GET returns headers and body", func(t *testing.T) {
		response, err := Fetch(server.URL+"/fw.PUP", "GET", testConfig)
		require.NoError(t, err)
		assert.Contains(t, response, "HTTP/1.1 200 OK")
		assert.Contains(t, response, "Content-MD5: kAFQmDzST7DWlj99KOF/cg==")
		assert.True(t, strings.HasSuffix(response, "some body"))
	})

	t.Run("HEAD returns headers only", func(t *testing.T) {
		response, err := Fetch(server.URL+"/fw.PUP", "HEAD", testConfig)
		require.NoError(t, err)
		assert.Contains(t, response, "Content-Length: 9")
		assert.False(t, strings.Contains(response, "some body"))
	})
}

func TestOpenFailures(t *testing.T) {
	t.Run("unresolvable host", func(t *testing.T) {
		_, err := Open("https://no-such-host.invalid/fw.PUP", "GET", 0, testConfig)
		require.Error(t, err)
	})

	t.Run("certificate verification failure without insecure", func(t *testing.T) {
		server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer server.Close()
		_, err := Open(server.URL+"/fw.PUP", "GET", 0, Config{})
		require.Error(t, err)
	})

	t.Run("connection refused", func(t *testing.T) {
		server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()
		_, err := Open(url+"/fw.PUP", "GET", 0, testConfig)
		require.Error(t, err)
	})
}

func TestCloseIdempotent(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "0")
	}))
	defer server.Close()

	session, err := Open(server.URL+"/fw.PUP", "HEAD", 0, testConfig)
	require.NoError(t, err)
	session.Close()
	session.Close() // second close must be a no-op

	var nilSession *Session
	nilSession.Close() // nil receiver is also safe
}

// sessionReader adapts a Session to io.Reader for test helpers.
type sessionReader struct {
	s *Session
}

func (r sessionReader) Read(p []byte) (int, error) {
	return r.s.Read(p)
}
