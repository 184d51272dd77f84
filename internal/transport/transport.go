// Package transport owns one socket and one TLS session per request: it
// resolves the host, connects, performs the handshake, sends a raw HTTP/1.1
// request and exposes a blocking read over the encrypted stream.
package transport

import (
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/nonandgoku/Vita3K/internal/utils"
)

type Config struct {
	DialTimeout        time.Duration
	InsecureSkipVerify bool
	UserAgent          string
	TuneSockets        bool // larger socket buffers + TCP_NODELAY
}

func (c Config) withDefaults() Config {
	if c.DialTimeout == 0 {
		c.DialTimeout = 30 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = utils.ToolUserAgent
	}
	return c
}

// Session is one connected, handshaken TLS stream bound to a single
// request/response exchange. It is either fully established or never
// returned at all; partial setup is torn down internally.
type Session struct {
	conn    net.Conn
	tlsConn *tls.Conn
	closed  bool
}

// SplitURL extracts host (with optional port) and request path from
// scheme://host/path. A URL without "://" yields an empty host; a URL
// without a path component yields "/".
func SplitURL(rawURL string) (host, path string) {
	path = "/"
	start := strings.Index(rawURL, "://")
	if start < 0 {
		return "", path
	}
	rest := rawURL[start+3:]
	if slash := strings.Index(rest, "/"); slash >= 0 {
		return rest[:slash], rest[slash:]
	}
	return rest, path
}

// Open connects to the URL's host, performs the TLS handshake and sends a
// METHOD request for its path. A resumeOffset above zero adds a Range header
// for the remaining bytes. The connection is single-use (Connection: close).
func Open(rawURL, method string, resumeOffset int64, cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()
	log := utils.GetLogger("transport")
	host, path := SplitURL(rawURL)
	hostname := host
	addr := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		hostname = h
	} else {
		addr = net.JoinHostPort(host, "443")
	}

	if _, err := net.LookupHost(hostname); err != nil {
		log.Error().Err(err).Str("host", hostname).Msg("Unable to resolve address for host")
		return nil, fmt.Errorf("error resolving host %s: %v", hostname, err)
	}

	dialer := &net.Dialer{Timeout: cfg.DialTimeout}
	if cfg.TuneSockets {
		dialer.Control = func(network, address string, c syscall.RawConn) error {
			return c.Control(func(fd uintptr) {
				setSocketOptions(fd)
			})
		}
	}
	conn, err := dialer.Dial("tcp", addr)
	if err != nil {
		log.Error().Err(err).Str("addr", addr).Msg("Failed to connect")
		return nil, fmt.Errorf("error connecting to %s: %v", addr, err)
	}

	tlsConn := tls.Client(conn, &tls.Config{
		ServerName:         hostname,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	})
	if err := tlsConn.Handshake(); err != nil {
		conn.Close()
		log.Error().Err(err).Str("host", hostname).Msg("Error establishing TLS connection")
		return nil, fmt.Errorf("error establishing TLS connection: %v", err)
	}

	s := &Session{conn: conn, tlsConn: tlsConn}
	request := buildRequest(method, path, host, cfg.UserAgent, resumeOffset)
	if _, err := tlsConn.Write([]byte(request)); err != nil {
		s.Close()
		log.Error().Err(err).Str("request", request).Msg("Error sending request")
		return nil, fmt.Errorf("error sending request: %v", err)
	}
	log.Debug().Str("method", method).Str("host", host).Str("path", path).Int64("resumeOffset", resumeOffset).Msg("Request sent")
	return s, nil
}

func buildRequest(method, path, host, userAgent string, resumeOffset int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s HTTP/1.1\r\n", method, path)
	fmt.Fprintf(&b, "Host: %s\r\n", host)
	if resumeOffset > 0 {
		b.WriteString("Accept-Ranges: bytes\r\n")
		fmt.Fprintf(&b, "Range: bytes=%d-\r\n", resumeOffset)
	}
	fmt.Fprintf(&b, "User-Agent: %s\r\n", userAgent)
	b.WriteString("Connection: close\r\n\r\n")
	return b.String()
}

// Read blocks until response bytes arrive; io.EOF marks end of stream.
func (s *Session) Read(p []byte) (int, error) {
	return s.tlsConn.Read(p)
}

// Close shuts down the TLS channel and the socket. Safe to call more than
// once; every exit path of a request must go through it.
func (s *Session) Close() {
	if s == nil || s.closed {
		return
	}
	s.closed = true
	s.tlsConn.Close()
	s.conn.Close()
}

// Fetch opens a single-use session and reads the whole response, headers
// included, into a string.
func Fetch(rawURL, method string, cfg Config) (string, error) {
	s, err := Open(rawURL, method, 0, cfg)
	if err != nil {
		return "", err
	}
	defer s.Close()
	var response strings.Builder
	buf := make([]byte, utils.DefaultChunkSize)
	for {
		n, err := s.Read(buf)
		if n > 0 {
			response.Write(buf[:n])
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return "", fmt.Errorf("error reading response: %v", err)
		}
	}
	return response.String(), nil
}
