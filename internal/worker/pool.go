// Package worker provides a parallel tile fetch worker pool.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/MeKo-Tech/romhost/internal/tile"
	"golang.org/x/sync/errgroup"
)

// Fetcher loads and stores the objects of one tile.
type Fetcher interface {
	// Fetch returns the number of objects stored for coords.
	Fetch(ctx context.Context, coords tile.Coords) (int, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, coords tile.Coords) (int, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, coords tile.Coords) (int, error) {
	return f(ctx, coords)
}

// Task represents a single tile fetch.
type Task struct {
	Coords tile.Coords
}

// Result represents the outcome of a task.
type Result struct {
	Task    Task
	Objects int
	Err     error
	Elapsed time.Duration
}

// ProgressFunc is called after each task completes.
type ProgressFunc func(completed, total, failed int)

// Config configures the worker pool.
type Config struct {
	Workers    int
	Fetcher    Fetcher
	OnProgress ProgressFunc
}

// Pool manages parallel tile fetches.
type Pool struct {
	workers    int
	fetcher    Fetcher
	onProgress ProgressFunc
}

// New creates a new worker pool.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Pool{
		workers:    workers,
		fetcher:    cfg.Fetcher,
		onProgress: cfg.OnProgress,
	}
}

// Run executes all tasks and returns one result per task, in task order.
// A failed task does not stop the others. Once ctx is cancelled the
// remaining tasks complete with ctx.Err() without being fetched.
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	results := make([]Result, len(tasks))

	var (
		mu        sync.Mutex
		completed int
		failed    int
	)
	report := func(err error) {
		mu.Lock()
		completed++
		if err != nil {
			failed++
		}
		c, f := completed, failed
		if p.onProgress != nil {
			p.onProgress(c, len(tasks), f)
		}
		mu.Unlock()
	}

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, task := range tasks {
		if ctx.Err() != nil {
			results[i] = Result{Task: task, Err: ctx.Err()}
			report(ctx.Err())
			continue
		}
		g.Go(func() error {
			results[i] = p.run(ctx, task)
			report(results[i].Err)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (p *Pool) run(ctx context.Context, task Task) Result {
	if err := ctx.Err(); err != nil {
		return Result{Task: task, Err: err}
	}

	start := time.Now()
	n, err := p.fetcher.Fetch(ctx, task.Coords)
	return Result{
		Task:    task,
		Objects: n,
		Err:     err,
		Elapsed: time.Since(start),
	}
}
