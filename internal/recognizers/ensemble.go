// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package recognizers combines the detection backends into one ensemble
// selected by detection depth.
package recognizers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"lexredact/internal/detector"
	"lexredact/internal/observability"
	"lexredact/internal/recognizers/pattern"
	"lexredact/internal/recognizers/statistical"
)

// TransformerFloor returns the minimum score a transformer candidate needs at
// depth. Fast depth does not run transformers at all.
func TransformerFloor(depth detector.Depth) float64 {
	switch depth {
	case detector.DepthThorough:
		return 0.65
	case detector.DepthMaximum:
		return 0.55
	default:
		return 0.80
	}
}

// Options configures an ensemble
type Options struct {
	// EnabledTypes restricts emitted types; empty enables all
	EnabledTypes map[detector.EntityType]bool

	// Keywords are force-included as CUSTOM entities
	Keywords []string

	// Transformers are the loaded transformer backends, one per model
	Transformers []detector.Backend

	// Pattern and Statistical replace the built-in backends when set
	Pattern     detector.Backend
	Statistical detector.Backend

	Observer *observability.StandardObserver
}

// Ensemble runs every backend selected for a depth concurrently
type Ensemble struct {
	pattern      detector.Backend
	statistical  detector.Backend
	keywords     *pattern.KeywordBackend
	transformers []detector.Backend
	types        map[detector.EntityType]bool
	observer     *observability.StandardObserver
}

// Result is the merged output of one ensemble run
type Result struct {
	Candidates []detector.Candidate

	// Degraded names the backends whose contribution was dropped
	Degraded []string

	// Disabled counts candidates of types that are not enabled
	Disabled int
}

// New builds an ensemble from opts
func New(opts Options) *Ensemble {
	e := &Ensemble{
		pattern:      opts.Pattern,
		statistical:  opts.Statistical,
		keywords:     pattern.NewKeywordBackend(opts.Keywords),
		transformers: opts.Transformers,
		types:        opts.EnabledTypes,
		observer:     opts.Observer,
	}
	// the built-in backends emit every type; the type filter runs here so
	// the drops are counted
	if e.pattern == nil {
		e.pattern = pattern.New(nil)
	}
	if e.statistical == nil {
		e.statistical = statistical.New(nil)
	}
	return e
}

// Backends returns the backends that run at depth
func (e *Ensemble) Backends(depth detector.Depth) []detector.Backend {
	backends := []detector.Backend{e.pattern, e.statistical}
	if !e.keywords.Empty() {
		backends = append(backends, e.keywords)
	}
	if depth >= detector.DepthBalanced {
		backends = append(backends, e.transformers...)
	}
	return backends
}

// Detect runs the backends for depth over text. A backend that fails or
// panics is recorded as degraded and the run continues without it; only
// cancellation is returned as an error.
func (e *Ensemble) Detect(ctx context.Context, text string, depth detector.Depth) (Result, error) {
	backends := e.Backends(depth)
	results := make([][]detector.Candidate, len(backends))

	var mu sync.Mutex
	var degraded []string

	g, gctx := errgroup.WithContext(ctx)
	for i, b := range backends {
		g.Go(func() error {
			cands, err := runBackend(gctx, b, text)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				e.observer.Warnf("ensemble", "backend %s degraded: %v", b.Name(), err)
				mu.Lock()
				degraded = append(degraded, b.Name())
				mu.Unlock()
				return nil
			}
			results[i] = cands
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	floor := TransformerFloor(depth)
	var out []detector.Candidate
	disabled := 0
	for i, cands := range results {
		isTransformer := backends[i].Kind() == detector.SourceTransformer
		for _, c := range cands {
			if isTransformer && c.Score < floor {
				continue
			}
			if c.Source != detector.SourceKeyword && len(e.types) > 0 && !e.types[c.Type] {
				disabled++
				continue
			}
			out = append(out, c)
		}
	}
	sort.Strings(degraded)
	return Result{Candidates: out, Degraded: degraded, Disabled: disabled}, nil
}

// runBackend turns a backend panic into an error
func runBackend(ctx context.Context, b detector.Backend, text string) (cands []detector.Candidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", b.Name(), r)
		}
	}()
	return b.Detect(ctx, text)
}
