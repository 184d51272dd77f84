package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/nonandgoku/Vita3K/internal/download"
	"github.com/nonandgoku/Vita3K/internal/output"
	"github.com/nonandgoku/Vita3K/internal/scheduler"
	"github.com/nonandgoku/Vita3K/internal/transport"
	"github.com/nonandgoku/Vita3K/internal/utils"
)

var (
	outputPath  string
	workers     int
	chunkSize   int
	dialTimeout time.Duration
	userAgent   string
	insecure    bool
	tuneSockets bool
	fresh       bool
	debug       bool
)

var VitafetchVersion = "dev"

var rootCmd = &cobra.Command{
	Use:     "vitafetch [URL]",
	Short:   "Vitafetch downloads firmware images over a raw TLS transport and verifies them against their Content-MD5",
	Version: VitafetchVersion,
	Args:    cobra.MaximumNArgs(1),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		utils.InitLogger(debug)
	},
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			output.PrintError("No URL provided")
			cmd.Usage()
			os.Exit(1)
		}
		url := args[0]
		if outputPath == "" {
			outputPath = inferOutputPath(url)
		}
		if fresh {
			if _, err := os.Stat(outputPath); err == nil {
				outputPath = utils.RenewOutputPath(outputPath)
			}
		}
		entries := []utils.DownloadEntry{{URL: url, OutputPath: outputPath}}
		stop := watchInterrupt()
		if err := scheduler.Run(entries, 1, downloadConfig(), stop); err != nil {
			fmt.Println()
			output.PrintError("Encountered failed operation(s)")
			os.Exit(1)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (inferred from the URL if not provided)")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", 1, "Number of downloads to run in parallel")
	rootCmd.PersistentFlags().IntVar(&chunkSize, "chunk-size", utils.DefaultChunkSize, "Read size in bytes for the body stream")
	rootCmd.PersistentFlags().DurationVarP(&dialTimeout, "timeout", "t", 30*time.Second, "Connection timeout (eg. 5s, 1m)")
	rootCmd.PersistentFlags().StringVarP(&userAgent, "user-agent", "a", utils.ToolUserAgent, "User agent")
	rootCmd.PersistentFlags().BoolVar(&insecure, "insecure", false, "Skip TLS certificate verification")
	rootCmd.Flags().BoolVar(&fresh, "fresh", false, "Download to a renewed path instead of resuming an existing file")
	rootCmd.PersistentFlags().BoolVar(&tuneSockets, "tune", false, "Enable larger socket buffers for faster transfers")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newProbeCmd())
	rootCmd.AddCommand(newVerifyCmd())
}

func downloadConfig() download.Config {
	return download.Config{
		ChunkSize: chunkSize,
		Transport: transport.Config{
			DialTimeout:        dialTimeout,
			InsecureSkipVerify: insecure,
			UserAgent:          userAgent,
			TuneSockets:        tuneSockets,
		},
	}
}

// watchInterrupt flips the cooperative stop flag on the first Ctrl-C so that
// in-flight downloads wind down at their next progress tick.
func watchInterrupt() *atomic.Bool {
	var stop atomic.Bool
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		stop.Store(true)
		output.PrintWarning("Interrupt received, stopping downloads")
	}()
	return &stop
}

func inferOutputPath(url string) string {
	_, path := transport.SplitURL(url)
	parts := strings.Split(path, "/")
	name := parts[len(parts)-1]
	if name == "" {
		name = "download"
	}
	return name
}
