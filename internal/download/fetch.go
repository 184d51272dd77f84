package download

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nonandgoku/Vita3K/internal/headers"
	"github.com/nonandgoku/Vita3K/internal/transport"
	"github.com/nonandgoku/Vita3K/internal/utils"
)

// FetchMatch downloads a small resource and returns the first capture of re
// applied to the response body. Used for version-string style lookups.
func FetchMatch(url string, re *regexp.Regexp, cfg transport.Config) (string, error) {
	log := utils.GetLogger("download")
	response, err := transport.Fetch(url, "GET", cfg)
	if err != nil {
		return "", err
	}
	meta := headers.Parse(response)
	if meta.IsNotFound() {
		return "", fmt.Errorf("404 Not Found: %s", url)
	}
	body := response
	if i := strings.Index(response, "\r\n\r\n"); i >= 0 {
		body = response[i+4:]
	}
	match := re.FindStringSubmatch(body)
	if len(match) < 2 {
		log.Debug().Str("url", url).Str("pattern", re.String()).Msg("No capture matched response body")
		return "", fmt.Errorf("no match for pattern %s", re)
	}
	return match[1], nil
}
