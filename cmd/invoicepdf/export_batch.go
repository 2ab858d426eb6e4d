package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	invoicepdf "github.com/alnah/go-invoicepdf"
	"github.com/alnah/go-invoicepdf/internal/server"
)

// Sentinel errors for batch operations.
var (
	ErrNoInput       = errors.New("no input specified")
	ErrReadInput     = errors.New("failed to read input file")
	ErrExportsFailed = errors.New("exports failed")
)

// exportParams groups settings shared by every job of a batch.
type exportParams struct {
	saver    invoicepdf.Saver
	targetID string
}

// exportResult holds the outcome of a single export.
type exportResult struct {
	InputPath string
	Location  string
	Pages     int
	Err       error
	Duration  time.Duration
}

// exportBatch processes jobs concurrently, one pooled exporter per worker.
// Results keep the order of jobs.
func exportBatch(ctx context.Context, pool Pool, jobs []exportJob, params *exportParams) []exportResult {
	if len(jobs) == 0 {
		return nil
	}

	concurrency := min(pool.Size(), len(jobs))

	results := make([]exportResult, len(jobs))
	var wg sync.WaitGroup
	queue := make(chan int, len(jobs))

	for range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()

			exp, err := pool.Acquire(ctx)
			if err != nil {
				// No exporter for this worker: fail what it would have taken
				for idx := range queue {
					results[idx] = exportResult{InputPath: jobs[idx].InputPath, Err: err}
				}
				return
			}
			defer pool.Release(exp)

			for idx := range queue {
				if ctx.Err() != nil {
					results[idx] = exportResult{InputPath: jobs[idx].InputPath, Err: ctx.Err()}
					continue
				}
				results[idx] = exportFile(ctx, exp, jobs[idx], params)
			}
		}()
	}

	for i := range jobs {
		queue <- i
	}
	close(queue)

	wg.Wait()
	return results
}

// exportFile exports one job and returns the result.
func exportFile(ctx context.Context, exp server.Exporter, job exportJob, params *exportParams) exportResult {
	start := time.Now()
	result := exportResult{InputPath: job.InputPath}

	req := invoicepdf.Request{
		TargetID: params.targetID,
		Filename: job.Filename,
		Saver:    params.saver,
	}

	var out *invoicepdf.Outcome
	var err error
	switch job.Kind {
	case kindHTML:
		var content []byte
		content, err = os.ReadFile(job.InputPath) // #nosec G304 -- discovered path
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrReadInput, err)
			break
		}
		if abs, absErr := filepath.Abs(job.InputPath); absErr == nil {
			req.BaseDir = filepath.Dir(abs)
		}
		out, err = exp.ExportHTML(ctx, string(content), req)
	default:
		var inv *invoicepdf.Invoice
		inv, err = invoicepdf.LoadInvoice(job.InputPath)
		if err != nil {
			break
		}
		out, err = exp.ExportInvoice(ctx, inv, req)
	}

	result.Duration = time.Since(start)
	if err != nil {
		result.Err = err
		return result
	}
	result.Location = out.Location
	result.Pages = out.Pages
	return result
}

// resultSummary holds the count of succeeded and failed exports.
type resultSummary struct {
	Succeeded int
	Failed    int
}

// countResults tallies succeeded and failed exports.
func countResults(results []exportResult) resultSummary {
	var summary resultSummary
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}
	return summary
}

// printResults outputs export results and returns the failure count.
func printResults(results []exportResult, quiet, verbose bool, targetID string, env *Environment) int {
	summary := countResults(results)

	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(env.Stderr, "FAILED %s: %v%s\n", r.InputPath, r.Err, hintFor(r.Err, targetID))
			continue
		}

		if quiet {
			continue
		}

		if verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%d page(s), %v)\n", r.InputPath, r.Location, r.Pages, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.Location)
		}
	}

	if !quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)
	}

	return summary.Failed
}
