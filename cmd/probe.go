package cmd

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/nonandgoku/Vita3K/internal/download"
	"github.com/nonandgoku/Vita3K/internal/headers"
	"github.com/nonandgoku/Vita3K/internal/output"
	"github.com/nonandgoku/Vita3K/internal/transport"
)

func newProbeCmd() *cobra.Command {
	var matchPattern string

	cmd := &cobra.Command{
		Use:   "probe [URL]",
		Short: "Show the metadata a server declares for a resource",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			url := args[0]
			cfg := downloadConfig().Transport

			if matchPattern != "" {
				re, err := regexp.Compile(matchPattern)
				if err != nil {
					output.PrintError(fmt.Sprintf("Invalid pattern: %v", err))
					os.Exit(1)
				}
				result, err := download.FetchMatch(url, re, cfg)
				if err != nil {
					output.PrintError(fmt.Sprintf("Match failed: %v", err))
					os.Exit(1)
				}
				fmt.Println(result)
				return
			}

			response, err := transport.Fetch(url, "HEAD", cfg)
			if err != nil {
				output.PrintError(fmt.Sprintf("Probe failed: %v", err))
				os.Exit(1)
			}
			meta := headers.Parse(response)
			printMetadata(url, meta)
		},
	}

	cmd.Flags().StringVarP(&matchPattern, "match", "m", "", "Fetch the body and print the first capture of this pattern")
	return cmd
}

func printMetadata(url string, meta headers.Metadata) {
	digest, err := meta.ContentMD5()
	if err != nil {
		digest = "(absent)"
	}
	size := "(absent)"
	if length := meta.ContentLength(); length > 0 {
		size = fmt.Sprintf("%s (%d bytes)", output.FormatBytes(uint64(length)), length)
	}
	location := meta.Location()
	if location == "" {
		location = "-"
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("FIELD", "VALUE").
		Row("URL", url).
		Row("Status", strconv.Itoa(meta.StatusCode)+" "+meta.StatusPhrase).
		Row("Content-Length", size).
		Row("Content-MD5", digest).
		Row("Location", location)
	fmt.Println(t)
}
