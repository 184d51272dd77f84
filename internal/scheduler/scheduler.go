// Package scheduler fans a batch of download entries out to a bounded pool
// of workers and wires each download's progress into the display manager.
package scheduler

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nonandgoku/Vita3K/internal/download"
	"github.com/nonandgoku/Vita3K/internal/output"
	"github.com/nonandgoku/Vita3K/internal/utils"
)

// Run processes all entries with at most workers downloads in flight. The
// stop flag is the cooperative cancel signal: once set, every in-flight
// download winds down at its next progress tick.
func Run(entries []utils.DownloadEntry, workers int, cfg download.Config, stop *atomic.Bool) error {
	if workers < 1 {
		workers = 1
	}
	outputMgr := output.NewManager()
	outputMgr.StartDisplay()
	defer outputMgr.StopDisplay()

	var failures atomic.Int32
	var g errgroup.Group
	g.SetLimit(workers)
	for _, entry := range entries {
		g.Go(func() error {
			jobID := uuid.New().String()
			outputMgr.Register(jobID, entry.OutputPath)

			progress := func(percent float64, etaSeconds int64) download.Control {
				outputMgr.SetProgress(jobID, percent, etaSeconds)
				return download.Control{Download: !stop.Load()}
			}

			d := download.New(cfg)
			if !d.DownloadFile(entry.URL, entry.OutputPath, progress) {
				failures.Add(1)
				outputMgr.ReportError(jobID, fmt.Errorf("download failed for %s", entry.URL))
				return nil
			}
			outputMgr.Complete(jobID, "")
			return nil
		})
	}
	g.Wait()

	if n := failures.Load(); n > 0 {
		return fmt.Errorf("%d of %d downloads failed", n, len(entries))
	}
	return nil
}
