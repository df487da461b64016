// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package parallel runs per-page work on a bounded number of goroutines.
package parallel

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"lexredact/internal/observability"
)

// maxDefaultWorkers caps the default pool; page renders are memory heavy
const maxDefaultWorkers = 4

// DefaultWorkers returns the number of CPUs, capped
func DefaultWorkers() int {
	return min(runtime.NumCPU(), maxDefaultWorkers)
}

// ProcessingStats tracks one pool run
type ProcessingStats struct {
	TotalPages     int           `json:"total_pages"`
	ProcessedPages int           `json:"processed_pages"`
	TotalDuration  time.Duration `json:"total_duration_ms"`
	WorkerCount    int           `json:"worker_count"`
	AvgPageTime    time.Duration `json:"avg_page_time_ms"`
}

// ProgressCallback is called after each page completes
type ProgressCallback func(completed, total int)

// Pool runs page jobs with at most workers running at once
type Pool struct {
	workers  int
	observer *observability.StandardObserver
	progress ProgressCallback
}

// NewPool creates a pool. A non-positive worker count selects DefaultWorkers.
func NewPool(workers int, observer *observability.StandardObserver) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	return &Pool{workers: workers, observer: observer}
}

// Workers returns the pool size
func (p *Pool) Workers() int { return p.workers }

// WithProgress sets the progress callback
func (p *Pool) WithProgress(cb ProgressCallback) *Pool {
	p.progress = cb
	return p
}

// ForEachPage calls fn for every page index in [0, n). Cancellation is
// checked before each page starts; the first error stops pages that have not
// started yet and is returned.
func (p *Pool) ForEachPage(ctx context.Context, operation string, n int, fn func(ctx context.Context, page int) error) (*ProcessingStats, error) {
	start := time.Now()
	finishTiming := p.observer.StartTiming("parallel", operation, "")

	stats := &ProcessingStats{TotalPages: n, WorkerCount: p.workers}
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for page := 0; page < n; page++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := fn(gctx, page); err != nil {
				return err
			}
			completed := int(done.Add(1))
			if p.progress != nil {
				p.progress(completed, n)
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	stats.ProcessedPages = int(done.Load())
	stats.TotalDuration = time.Since(start)
	if stats.ProcessedPages > 0 {
		stats.AvgPageTime = stats.TotalDuration / time.Duration(stats.ProcessedPages)
	}
	finishTiming(err == nil, map[string]interface{}{
		"pages":   n,
		"workers": p.workers,
	})
	return stats, err
}

// PageLocks serializes mutations of the same page
type PageLocks struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

// NewPageLocks creates an empty lock set
func NewPageLocks() *PageLocks {
	return &PageLocks{locks: make(map[int]*sync.Mutex)}
}

// Lock locks page and returns the unlock function
func (l *PageLocks) Lock(page int) func() {
	l.mu.Lock()
	m, ok := l.locks[page]
	if !ok {
		m = &sync.Mutex{}
		l.locks[page] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
