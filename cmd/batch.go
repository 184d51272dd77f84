package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nonandgoku/Vita3K/internal/output"
	"github.com/nonandgoku/Vita3K/internal/scheduler"
	"github.com/nonandgoku/Vita3K/internal/utils"
)

func newBatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch [YAML_FILE]",
		Short: "Process multiple downloads from a YAML manifest",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			entries, err := utils.ReadDownloadList(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading batch file: %v\n", err)
				os.Exit(1)
			}
			if len(entries) == 0 {
				fmt.Fprintf(os.Stderr, "No valid entries found in the batch file\n")
				os.Exit(1)
			}
			stop := watchInterrupt()
			if err := scheduler.Run(entries, workers, downloadConfig(), stop); err != nil {
				fmt.Println()
				output.PrintError("Encountered failed operation(s)")
				os.Exit(1)
			}
		},
	}
}
