package utils

import "errors"

// DefaultChunkSize is the read size for the secure stream copy loop.
const DefaultChunkSize = 64 * 1024

// DefaultBufferSize is used for socket send/receive buffers.
const DefaultBufferSize = 1024 * 1024

const ToolUserAgent = "vitafetch/1.1"

var ErrMissingChecksum = errors.New("server didn't provide Content-MD5 header")
var ErrMissingLength = errors.New("server didn't provide Content-Length header")
