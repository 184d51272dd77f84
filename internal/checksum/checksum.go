// Package checksum streams files through an incremental MD5 accumulator.
package checksum

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nonandgoku/Vita3K/internal/utils"
)

// HashFile computes the MD5 digest of a file as a 32-character uppercase hex
// string. The file is read in fixed-size chunks, the final partial chunk
// included.
func HashFile(filePath string) (string, error) {
	log := utils.GetLogger("checksum")
	file, err := os.Open(filePath)
	if err != nil {
		log.Error().Err(err).Str("file", filePath).Msg("Failed to open file")
		return "", fmt.Errorf("error opening file %s: %v", filePath, err)
	}
	defer file.Close()
	return Hash(file)
}

// Hash digests an arbitrary stream with the same rendering as HashFile.
func Hash(r io.Reader) (string, error) {
	h := md5.New()
	buf := make([]byte, 32*1024)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", fmt.Errorf("error reading data to hash: %v", err)
	}
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil))), nil
}
