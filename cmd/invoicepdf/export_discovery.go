package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	invoicepdf "github.com/alnah/go-invoicepdf"
)

// Sentinel errors for input discovery.
var (
	ErrUnsupportedInput   = errors.New("input must be an invoice (.yaml, .yml, .json) or an HTML file")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
)

// inputKind tells how an input file is exported.
type inputKind int

const (
	kindInvoice inputKind = iota // rendered through the invoice template
	kindHTML                     // captured as is
)

func (k inputKind) String() string {
	if k == kindHTML {
		return "html"
	}
	return "invoice"
}

// inputKinds maps supported extensions to their kind.
var inputKinds = map[string]inputKind{
	".yaml": kindInvoice,
	".yml":  kindInvoice,
	".json": kindInvoice,
	".html": kindHTML,
	".htm":  kindHTML,
}

// exportJob is a single file to export.
type exportJob struct {
	InputPath string
	Filename  string // name handed to the saver
	Kind      inputKind
}

// kindOf returns the kind for path's extension.
func kindOf(path string) (inputKind, bool) {
	k, ok := inputKinds[strings.ToLower(filepath.Ext(path))]
	return k, ok
}

// looksLikeInput reports whether arg names a file the export command accepts.
func looksLikeInput(arg string) bool {
	_, ok := kindOf(arg)
	return ok
}

// discoverInputs expands files and directories into export jobs.
// Directories are walked recursively; unsupported files inside them are
// skipped, while an unsupported file named explicitly is an error.
// Output names are made unique across the batch.
func discoverInputs(paths []string) ([]exportJob, error) {
	var jobs []exportJob
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			kind, ok := kindOf(p)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnsupportedInput, p)
			}
			jobs = append(jobs, exportJob{InputPath: p, Kind: kind})
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return fmt.Errorf("scanning %s: %w", path, err)
			}
			if d.IsDir() {
				return nil
			}
			if kind, ok := kindOf(path); ok {
				jobs = append(jobs, exportJob{InputPath: path, Kind: kind})
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	assignFilenames(jobs)
	return jobs, nil
}

// assignFilenames names each job's PDF after its input, suffixing repeats
// ("march.pdf", "march-2.pdf").
func assignFilenames(jobs []exportJob) {
	seen := make(map[string]int, len(jobs))
	for i := range jobs {
		base := strings.TrimSuffix(filepath.Base(jobs[i].InputPath), filepath.Ext(jobs[i].InputPath))
		if base == "" {
			base = strings.TrimSuffix(invoicepdf.DefaultFilename, ".pdf")
		}
		seen[base]++
		name := base
		if n := seen[base]; n > 1 {
			name = base + "-" + strconv.Itoa(n)
		}
		jobs[i].Filename = name + ".pdf"
	}
}

// validateWorkers checks that the worker count is within valid bounds.
func validateWorkers(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d (must be >= 0, 0 means auto)", ErrInvalidWorkerCount, n)
	}
	if n > invoicepdf.MaxPoolSize {
		return fmt.Errorf("%w: %d (maximum is %d)", ErrInvalidWorkerCount, n, invoicepdf.MaxPoolSize)
	}
	return nil
}
