package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nonandgoku/Vita3K/internal/checksum"
	"github.com/nonandgoku/Vita3K/internal/output"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [FILE] [MD5]",
		Short: "Verify a downloaded file against an expected MD5 digest",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			filePath, expected := args[0], args[1]
			digest, err := checksum.HashFile(filePath)
			if err != nil {
				output.PrintError(fmt.Sprintf("Failed to hash %s: %v", filePath, err))
				os.Exit(1)
			}
			if !strings.EqualFold(digest, expected) {
				output.PrintError(fmt.Sprintf("Checksum mismatch: expected %s, got %s", strings.ToUpper(expected), digest))
				os.Exit(1)
			}
			output.PrintSuccess(fmt.Sprintf("Checksum OK: %s", digest))
		},
	}
}
