// Package download sequences one resumable, integrity-verified file download:
// metadata probe, single-hop redirect, resume-offset arithmetic, body
// streaming with pause/cancel control and final checksum validation.
package download

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/nonandgoku/Vita3K/internal/checksum"
	"github.com/nonandgoku/Vita3K/internal/headers"
	"github.com/nonandgoku/Vita3K/internal/transport"
	"github.com/nonandgoku/Vita3K/internal/utils"
)

// A response header block larger than this is treated as malformed.
const maxHeaderBytes = 64 * 1024

// Control is the caller's decision, sampled once per streamed chunk and
// never buffered: keep downloading, and whether to hold in pause.
type Control struct {
	Download bool
	Pause    bool
}

// ProgressFunc receives percent complete (0..100) and an ETA in seconds and
// returns the control signal for the next chunk. It is invoked synchronously
// on the downloading goroutine, and once more with (0, 0) after the stream
// ends so the caller can reset its display.
type ProgressFunc func(percent float64, etaSeconds int64) Control

type Config struct {
	ChunkSize     int
	PauseInterval time.Duration
	Transport     transport.Config
}

func (c Config) withDefaults() Config {
	if c.ChunkSize == 0 {
		c.ChunkSize = utils.DefaultChunkSize
	}
	if c.PauseInterval == 0 {
		c.PauseInterval = 100 * time.Millisecond
	}
	return c
}

type Downloader struct {
	cfg Config
	log zerolog.Logger
}

func New(cfg Config) *Downloader {
	return &Downloader{cfg: cfg.withDefaults(), log: utils.GetLogger("download")}
}

// DownloadFile fetches a URL to outputPath with default configuration.
func DownloadFile(url, outputPath string, progress ProgressFunc) bool {
	return New(Config{}).DownloadFile(url, outputPath, progress)
}

// DownloadFile runs the full state machine and reports success as a single
// boolean; diagnostic detail goes to the log only. On failure a partially
// downloaded file is left in place for a later resume, except on checksum
// mismatch where it is deleted.
func (d *Downloader) DownloadFile(url, outputPath string, progress ProgressFunc) bool {
	meta, url, ok := d.probe(url)
	if !ok {
		return false
	}

	expectedMD5, err := meta.ContentMD5()
	if err != nil {
		d.log.Error().Err(err).Str("url", url).Msg("Failed to get Content-MD5 from header")
		return false
	}
	totalSize := meta.ContentLength()
	if totalSize <= 0 {
		d.log.Error().Err(utils.ErrMissingLength).Str("url", url).Msg("Failed to get file size from header")
		return false
	}

	var resumeOffset int64
	if fileInfo, err := os.Stat(outputPath); err == nil {
		resumeOffset = fileInfo.Size()
	}

	lastControl := Control{Download: true}
	downloaded := resumeOffset
	if resumeOffset < totalSize {
		downloaded, lastControl, ok = d.streamBody(url, outputPath, resumeOffset, totalSize, progress)
		if !ok {
			return false
		}
	} else {
		d.log.Debug().Str("file", outputPath).Int64("size", resumeOffset).Msg("File already complete, verifying")
	}

	if progress != nil {
		progress(0, 0)
	}

	// 99% tolerance: the last chunk may not land exactly on the total.
	if downloaded*100 < totalSize*99 {
		if lastControl.Download {
			d.log.Error().Int64("downloaded", downloaded).Int64("expected", totalSize).Msg("Downloaded size is short of expected file size")
		} else {
			d.log.Warn().Int64("downloaded", downloaded).Int64("expected", totalSize).Msg("Canceled by user")
		}
		return false
	}

	fileMD5, err := checksum.HashFile(outputPath)
	if err != nil {
		d.log.Error().Err(err).Str("file", outputPath).Msg("Failed to hash downloaded file")
		return false
	}
	if fileMD5 != expectedMD5 {
		d.log.Error().Str("expected", expectedMD5).Str("downloaded", fileMD5).Msg("Downloaded file is corrupted, removing it")
		os.Remove(outputPath)
		return false
	}
	return true
}

// probe issues a HEAD request and follows at most one redirect hop. It
// returns the final metadata and URL.
func (d *Downloader) probe(url string) (headers.Metadata, string, bool) {
	response, err := transport.Fetch(url, "HEAD", d.cfg.Transport)
	if err != nil {
		d.log.Error().Err(err).Str("url", url).Msg("Failed to get header")
		return headers.Metadata{}, url, false
	}
	meta := headers.Parse(response)

	if meta.IsRedirect() {
		location := meta.Location()
		if location == "" {
			d.log.Error().Str("url", url).Msg("Redirect response without a usable Location header")
			return meta, url, false
		}
		url = location
		response, err = transport.Fetch(url, "HEAD", d.cfg.Transport)
		if err != nil {
			d.log.Error().Err(err).Str("url", url).Msg("Failed to get header on redirected URL")
			return meta, url, false
		}
		meta = headers.Parse(response)
	}

	if meta.IsNotFound() {
		d.log.Error().Str("url", url).Msg("404 Not Found")
		return meta, url, false
	}
	return meta, url, true
}

// streamBody opens the GET stream at resumeOffset, consumes the echoed
// header block and appends body bytes to the output file while the control
// signal allows it. It returns the total bytes on disk and the last in-loop
// control signal.
func (d *Downloader) streamBody(url, outputPath string, resumeOffset, totalSize int64, progress ProgressFunc) (int64, Control, bool) {
	ctl := Control{Download: true}

	session, err := transport.Open(url, "GET", resumeOffset, d.cfg.Transport)
	if err != nil {
		return resumeOffset, ctl, false
	}
	defer session.Close()

	headerBlock, leftover, err := readHeaderBlock(session)
	if err != nil {
		d.log.Error().Err(err).Str("url", url).Msg("Error reading response header")
		return resumeOffset, ctl, false
	}
	bodyMeta := headers.Parse(headerBlock)
	if bodyMeta.IsNotFound() {
		d.log.Error().Str("url", url).Msg("404 Not Found")
		return resumeOffset, ctl, false
	}
	if resumeOffset > 0 && !bodyMeta.IsPartial() {
		d.log.Error().Int("status", bodyMeta.StatusCode).Msg("Server ignored range request, cannot resume")
		return resumeOffset, ctl, false
	}

	outFile, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		d.log.Error().Err(err).Str("file", outputPath).Msg("Error opening output file")
		return resumeOffset, ctl, false
	}
	defer outFile.Close()

	downloaded := resumeOffset
	sessionBase := resumeOffset
	sessionStart := time.Now()
	percent := 0.0
	eta := int64(0)

	tick := func(chunk []byte) bool {
		if _, err := outFile.Write(chunk); err != nil {
			d.log.Error().Err(err).Str("file", outputPath).Msg("Error writing to output file")
			return false
		}
		downloaded += int64(len(chunk))
		percent = float64(downloaded) / float64(totalSize) * 100
		eta = estimateETA(totalSize-downloaded, downloaded-sessionBase, time.Since(sessionStart))
		return true
	}

	if len(leftover) > 0 {
		if !tick(leftover) {
			return downloaded, ctl, false
		}
		if progress != nil {
			ctl = progress(percent, eta)
		}
	}

	buf := make([]byte, d.cfg.ChunkSize)
	for ctl.Download {
		if ctl.Pause {
			// Reset the ETA baseline so paused time doesn't count
			// against throughput.
			time.Sleep(d.cfg.PauseInterval)
			sessionBase = downloaded
			sessionStart = time.Now()
			if progress != nil {
				ctl = progress(percent, eta)
			}
			continue
		}
		n, readErr := session.Read(buf)
		if n > 0 {
			if !tick(buf[:n]) {
				return downloaded, ctl, false
			}
		}
		if progress != nil {
			ctl = progress(percent, eta)
		}
		if readErr != nil {
			if readErr != io.EOF {
				d.log.Error().Err(readErr).Str("url", url).Msg("Error reading body stream")
			}
			break
		}
	}

	session.Close()
	d.log.Debug().Int64("resumeOffset", resumeOffset).Int64("downloaded", downloaded-resumeOffset).Int64("total", downloaded).Msg("Body stream finished")
	return downloaded, ctl, true
}

// estimateETA projects seconds remaining from this session's throughput.
func estimateETA(remainingBytes, sessionBytes int64, elapsed time.Duration) int64 {
	if sessionBytes <= 0 || remainingBytes <= 0 {
		return 0
	}
	eta := float64(remainingBytes) / float64(sessionBytes) * float64(elapsed.Milliseconds())
	return int64(eta) / 1000
}

// readHeaderBlock reads the stream until the header/body separator and
// returns the header text plus any body bytes read past it.
func readHeaderBlock(session *transport.Session) (string, []byte, error) {
	var accum []byte
	buf := make([]byte, 1024)
	for {
		n, err := session.Read(buf)
		if n > 0 {
			accum = append(accum, buf[:n]...)
			if i := headers.BodyStart(accum); i >= 0 {
				return string(accum[:i]), accum[i:], nil
			}
			if len(accum) > maxHeaderBytes {
				return "", nil, errors.New("response header too large")
			}
		}
		if err != nil {
			if err == io.EOF {
				return "", nil, errors.New("connection closed before end of header")
			}
			return "", nil, fmt.Errorf("error reading response header: %v", err)
		}
	}
}
