package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/JonMunkholm/invload/internal/logging"
	"github.com/google/uuid"
)

// Job pairs an input file with the table it loads.
type Job struct {
	File string
	Kind TableKind
}

// DefaultJobs returns the fixed job list: parents before children so that
// reference checks see rows loaded earlier in the same cycle.
func DefaultJobs() []Job {
	kinds := Kinds()
	jobs := make([]Job, len(kinds))
	for i, kind := range kinds {
		jobs[i] = Job{File: kind.Definition().File, Kind: kind}
	}
	return jobs
}

// FileLoader loads one file. Satisfied by *Loader.
type FileLoader interface {
	LoadFile(ctx context.Context, path string, kind TableKind) (FileResult, error)
}

// Runner runs every job of a cycle in order.
type Runner struct {
	loader   FileLoader
	inputDir string
	jobs     []Job

	mu   sync.RWMutex
	last *CycleResult
}

// NewRunner creates a Runner resolving job files against inputDir.
// A nil jobs slice means DefaultJobs.
func NewRunner(loader FileLoader, inputDir string, jobs []Job) *Runner {
	if jobs == nil {
		jobs = DefaultJobs()
	}
	if inputDir == "" {
		inputDir = "."
	}
	return &Runner{loader: loader, inputDir: inputDir, jobs: jobs}
}

// RunOnce loads every job whose file is present. Missing files are skipped.
// The first fatal file error stops the cycle; later jobs are not attempted.
func (r *Runner) RunOnce(ctx context.Context) (CycleResult, error) {
	cycle := CycleResult{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
	}
	ctx = logging.WithRunID(ctx, cycle.RunID)
	logger := logging.FromContext(ctx)

	logger.Info("load cycle started", "jobs", len(r.jobs), "input_dir", r.inputDir)

	err := r.runJobs(ctx, &cycle)

	cycle.FinishedAt = time.Now()
	good, bad := cycle.Totals()
	if err != nil {
		cycle.Error = err.Error()
		logger.Error("load cycle aborted", "error", err, "good", good, "bad", bad)
	} else {
		logger.Info("load cycle finished", "good", good, "bad", bad,
			"duration_ms", cycle.FinishedAt.Sub(cycle.StartedAt).Milliseconds())
	}

	r.record(cycle)
	return cycle, err
}

func (r *Runner) runJobs(ctx context.Context, cycle *CycleResult) error {
	logger := logging.FromContext(ctx)

	for _, job := range r.jobs {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cycle cancelled: %w", err)
		}

		path := filepath.Join(r.inputDir, job.File)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Info("input file missing, skipping", "file", path, "table", job.Kind.String())
				cycle.Files = append(cycle.Files, FileResult{
					Table:   job.Kind.Definition().Table,
					File:    path,
					Skipped: true,
				})
				continue
			}
			return fmt.Errorf("stat %s: %w", path, err)
		}

		logger.Info("loading file", "file", path, "table", job.Kind.String())
		res, err := r.loader.LoadFile(ctx, path, job.Kind)
		cycle.Files = append(cycle.Files, res)
		if err != nil {
			return fmt.Errorf("load %s: %w", job.File, err)
		}
	}
	return nil
}

func (r *Runner) record(cycle CycleResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = &cycle
}

// LastCycle returns the most recent cycle result, if any cycle has run.
func (r *Runner) LastCycle() (CycleResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return CycleResult{}, false
	}
	return *r.last, true
}
