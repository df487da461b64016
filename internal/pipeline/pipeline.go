// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package pipeline runs a document from detection to committed redaction:
// normalize, prefilter, detect, filter, deduplicate, resolve, check and
// export.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"lexredact/internal/dedup"
	"lexredact/internal/detector"
	"lexredact/internal/document"
	"lexredact/internal/observability"
	"lexredact/internal/parallel"
	"lexredact/internal/policy"
	"lexredact/internal/prefilter"
	"lexredact/internal/raster"
	"lexredact/internal/recognizers"
	"lexredact/internal/recognizers/pattern"
	"lexredact/internal/redactors"
	"lexredact/internal/redactors/position"
	"lexredact/internal/redactors/safety"
	"lexredact/internal/remap"
	"lexredact/internal/store"
	"lexredact/internal/textnorm"
)

// ErrNoProposal is returned by Redact when no proposal is given
var ErrNoProposal = errors.New("no proposal for document")

// Options selects the pipeline behavior
type Options struct {
	Depth detector.Depth

	// DocumentType forces a genre; empty detects it once per document
	DocumentType policy.DocumentType

	Normalize bool
	Prefilter bool

	// LearnedStore enables store lookups during Propose
	LearnedStore bool

	// Acronyms kept verbatim by the normalizer; nil selects the defaults
	Acronyms []string

	Policy    policy.Options
	Safety    safety.Config
	Export    redactors.ExportOptions
	Workers   int
	Tolerance float64
}

// Dependencies are the collaborators a pipeline is built from
type Dependencies struct {
	Ensemble *recognizers.Ensemble

	// Store holds reviewer decisions; nil disables learning
	Store store.Store

	Renderer *raster.Renderer
	Observer *observability.StandardObserver
}

// Proposal is the outcome of the detection phase, ready for review
type Proposal struct {
	Document     string              `json:"document"`
	DocumentType policy.DocumentType `json:"document_type"`

	// Candidates carry spans over the original page texts
	Candidates []detector.Candidate `json:"candidates"`
	Report     *Report              `json:"report"`
}

// Result is the outcome of the redaction phase
type Result struct {
	Export *redactors.ExportResult
	Report *Report
}

// Pipeline is the redaction entry point. Configuration and the store are
// given at construction; a pipeline may process documents one after another.
type Pipeline struct {
	opts       Options
	ensemble   *recognizers.Ensemble
	store      store.Store
	normalizer *textnorm.Normalizer
	prefilter  *prefilter.Filter
	resolver   *position.Resolver
	renderer   *raster.Renderer
	pool       *parallel.Pool
	observer   *observability.StandardObserver

	mu       sync.Mutex
	injected []detector.Candidate
}

// New builds a pipeline. The policy options are compiled once here so an
// invalid deny pattern fails early.
func New(opts Options, deps Dependencies) (*Pipeline, error) {
	if _, err := policy.New(opts.Policy); err != nil {
		return nil, redactors.NewRedactionError(redactors.ErrorConfiguration, "invalid policy", "", "pipeline", err)
	}
	ensemble := deps.Ensemble
	if ensemble == nil {
		ensemble = recognizers.New(recognizers.Options{Observer: deps.Observer})
	}
	normalizer := textnorm.NewDefault()
	if opts.Acronyms != nil {
		normalizer = textnorm.New(opts.Acronyms)
	}
	renderer := deps.Renderer
	if renderer == nil {
		renderer = raster.NewRenderer()
	}
	return &Pipeline{
		opts:       opts,
		ensemble:   ensemble,
		store:      deps.Store,
		normalizer: normalizer,
		prefilter:  prefilter.New(),
		resolver:   position.NewResolver(opts.Tolerance),
		renderer:   renderer,
		pool:       parallel.NewPool(opts.Workers, deps.Observer),
		observer:   deps.Observer,
	}, nil
}

// Inject adds candidates from an external detector. They enter the next
// Propose at the policy step; a spanned candidate must carry a span over its
// page's original text.
func (p *Pipeline) Inject(candidates ...detector.Candidate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range candidates {
		if c.Source == "" {
			c.Source = detector.SourceInjected
		}
		p.injected = append(p.injected, c)
	}
}

func (p *Pipeline) takeInjected() []detector.Candidate {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.injected
	p.injected = nil
	return out
}

// pageProposal is the detection outcome of one page
type pageProposal struct {
	candidates []detector.Candidate
	detected   int
	injected   int
	learned    int
	deduped    int
	filtered   map[string]int
	degraded   []string
}

// Propose runs detection, filtering and deduplication on every page and
// returns the surviving candidates with spans over the original texts.
func (p *Pipeline) Propose(ctx context.Context, doc *document.Document) (*Proposal, error) {
	start := time.Now()
	finishTiming := p.observer.StartTiming("pipeline", "propose", doc.Name)

	report := newReport(doc.Name)
	report.Pages = len(doc.Pages)
	report.Depth = p.opts.Depth.String()

	docType := p.opts.DocumentType
	if docType == "" {
		docType = policy.DetectDocumentType(doc.PlainText()).Type
	}
	report.DocumentType = string(docType)

	filter, err := p.newFilter(ctx)
	if err != nil {
		finishTiming(false, nil)
		return nil, err
	}
	errs := redactors.NewRedactionErrorCollection()

	injected := p.takeInjected()
	byPage := make(map[int][]detector.Candidate)
	var spanless []detector.Candidate
	for _, c := range injected {
		if c.Span == nil {
			spanless = append(spanless, c)
			continue
		}
		if c.Page < 0 || c.Page >= len(doc.Pages) {
			errs.AddError(redactors.ErrorDocumentProcessing, fmt.Sprintf("injected candidate on missing page %d", c.Page), doc.Name, "pipeline", nil)
			continue
		}
		byPage[c.Page] = append(byPage[c.Page], c)
	}

	results := make([]pageProposal, len(doc.Pages))
	_, err = p.pool.ForEachPage(ctx, "propose", len(doc.Pages), func(ctx context.Context, i int) error {
		res, err := p.proposePage(ctx, doc.Pages[i], i, byPage[i], filter, docType, errs)
		if err != nil {
			return err
		}
		results[i] = res
		return nil
	})
	if err != nil {
		finishTiming(false, nil)
		return nil, cancelled(doc.Name, err)
	}

	var candidates []detector.Candidate
	degraded := make(map[string]bool)
	for _, res := range results {
		candidates = append(candidates, res.candidates...)
		report.Detected += res.detected
		report.Injected += res.injected
		report.Learned += res.learned
		report.Deduplicated += res.deduped
		for k, v := range res.filtered {
			report.Filtered[k] += v
		}
		for _, d := range res.degraded {
			degraded[d] = true
		}
	}

	// spanless injected candidates cover the whole document
	if len(spanless) > 0 {
		report.Detected += len(spanless)
		report.Injected += len(spanless)
		kept := filter.Apply(spanless, doc.PlainText(), docType, p.opts.Depth)
		for k, v := range kept.Dropped {
			report.Filtered[k] += v
		}
		merged := dedup.Merge(nil, append(candidates, kept.Kept...))
		report.Deduplicated += len(candidates) + len(kept.Kept) - len(merged)
		candidates = merged
	}

	for d := range degraded {
		report.Degraded = append(report.Degraded, d)
	}
	sort.Strings(report.Degraded)
	report.Proposed = len(candidates)
	report.Errors = errs.GetErrors()
	report.ErrorCounts = errs.CountByType()
	report.Duration = time.Since(start)

	finishTiming(true, map[string]interface{}{
		"document_type": string(docType),
		"proposed":      len(candidates),
		"degraded":      len(report.Degraded),
	})
	return &Proposal{Document: doc.Name, DocumentType: docType, Candidates: candidates, Report: report}, nil
}

// newFilter compiles the policy for this run, adding the texts reviewers
// denied so far
func (p *Pipeline) newFilter(ctx context.Context) (*policy.Filter, error) {
	opts := p.opts.Policy
	if p.store != nil && p.opts.LearnedStore {
		denied, err := store.DeniedTexts(ctx, p.store)
		if err != nil {
			if ctx.Err() != nil {
				return nil, cancelled("", err)
			}
			p.observer.Warnf("pipeline", "learned store unavailable: %v", err)
		} else {
			opts.DeniedTexts = append(append([]string{}, opts.DeniedTexts...), denied...)
		}
	}
	filter, err := policy.New(opts)
	if err != nil {
		return nil, redactors.NewRedactionError(redactors.ErrorConfiguration, "invalid policy", "", "pipeline", err)
	}
	return filter, nil
}

func (p *Pipeline) proposePage(ctx context.Context, page *document.Page, index int, injected []detector.Candidate,
	filter *policy.Filter, docType policy.DocumentType, errs *redactors.RedactionErrorCollection) (pageProposal, error) {

	res := pageProposal{filtered: make(map[string]int), injected: len(injected)}
	text := page.Text
	if strings.TrimSpace(text) == "" {
		return res, nil
	}

	var chain remap.Chain
	var normalized *remap.Table
	work := text
	if p.opts.Normalize {
		work, normalized = p.normalizer.Normalize(work)
		chain = append(chain, normalized)
	}
	if p.opts.Prefilter {
		// sections are classified on the page text so caps headings survive
		var t *remap.Table
		work, t = p.prefilter.FilterAligned(text, work, normalized)
		chain = append(chain, t)
	}

	detected, err := p.ensemble.Detect(ctx, work, p.opts.Depth)
	if err != nil {
		return res, err
	}
	res.degraded = detected.Degraded
	res.filtered[ReasonDisabledType] += detected.Disabled

	fresh := make([]detector.Candidate, 0, len(detected.Candidates)+len(injected))
	for _, c := range detected.Candidates {
		c.Page = index
		if c.Span == nil {
			fresh = append(fresh, c)
			continue
		}
		s, e := chain.SpanToOriginal(c.Span.Start, c.Span.End)
		if s < 0 || e > len(text) || s >= e {
			errs.AddError(redactors.ErrorDocumentProcessing,
				fmt.Sprintf("span %d-%d does not map back onto page %d", c.Span.Start, c.Span.End, index), "", "pipeline", nil)
			continue
		}
		c.Text = text[s:e]
		fresh = append(fresh, c.WithSpan(s, e))
	}
	res.detected = len(detected.Candidates) + len(injected)
	fresh = append(fresh, injected...)

	kept := filter.Apply(fresh, text, docType, p.opts.Depth)
	for k, v := range kept.Dropped {
		res.filtered[k] += v
	}

	learned, err := p.learned(ctx, text, index)
	if err != nil {
		return res, err
	}
	res.learned = len(learned)

	res.candidates = dedup.Merge(learned, kept.Kept)
	res.deduped = len(learned) + len(kept.Kept) - len(res.candidates)
	return res, nil
}

// learned returns every whole-word occurrence in text of a confirmed store
// entry
func (p *Pipeline) learned(ctx context.Context, text string, page int) ([]detector.Candidate, error) {
	if p.store == nil || !p.opts.LearnedStore {
		return nil, nil
	}
	entries, err := p.store.FindMatches(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.observer.Warnf("pipeline", "learned lookup failed on page %d: %v", page, err)
		return nil, nil
	}
	var out []detector.Candidate
	for _, e := range entries {
		for _, sp := range pattern.Occurrences(text, e.Text) {
			c := detector.Candidate{
				Type:    e.Type,
				Text:    text[sp.Start:sp.End],
				Page:    page,
				Score:   1.0,
				Source:  detector.SourceLearned,
				Learned: true,
			}
			out = append(out, c.WithSpan(sp.Start, sp.End))
		}
	}
	return out, nil
}

// Commit records reviewer decisions in the store. Recording is an idempotent
// upsert keyed by type and normalized text; a denial overrides an earlier
// confirmation.
func (p *Pipeline) Commit(ctx context.Context, confirmed, denied []detector.Candidate) error {
	if p.store == nil {
		return redactors.NewRedactionError(redactors.ErrorConfiguration, "no learned store configured", "", "pipeline", nil)
	}
	finishTiming := p.observer.StartTiming("pipeline", "commit", "")
	record := func(cands []detector.Candidate, ok bool) error {
		for _, c := range cands {
			if _, err := p.store.Record(ctx, c, ok); err != nil {
				return fmt.Errorf("recording %s entity: %w", c.Type, err)
			}
		}
		return nil
	}
	if err := record(confirmed, true); err != nil {
		finishTiming(false, nil)
		return err
	}
	if err := record(denied, false); err != nil {
		finishTiming(false, nil)
		return err
	}
	finishTiming(true, map[string]interface{}{"confirmed": len(confirmed), "denied": len(denied)})
	return nil
}

// pageRedaction is the resolution and safety outcome of one page
type pageRedaction struct {
	targets []redactors.Target
	found   map[int][]detector.Location
	located int
}

// Redact resolves the proposal's candidates onto doc, checks every location
// and exports the approved ones. doc itself is not modified.
func (p *Pipeline) Redact(ctx context.Context, doc *document.Document, proposal *Proposal) (*Result, error) {
	if proposal == nil {
		return nil, ErrNoProposal
	}
	start := time.Now()
	finishTiming := p.observer.StartTiming("pipeline", "redact", doc.Name)

	report := proposal.Report.clone()
	errs := redactors.NewRedactionErrorCollection()
	for _, e := range report.Errors {
		errs.Add(e)
	}

	byPage := make(map[int][]int)
	var spanless []int
	for i, c := range proposal.Candidates {
		if c.Span == nil {
			spanless = append(spanless, i)
		} else {
			byPage[c.Page] = append(byPage[c.Page], i)
		}
	}

	// opaque regions present before this run; redactions added now never count
	existing := make([][]detector.Rect, len(doc.Pages))
	for i, pg := range doc.Pages {
		existing[i] = pg.OpaqueRegions()
	}

	checker := safety.NewChecker(p.opts.Safety, p.renderer, p.observer)
	results := make([]pageRedaction, len(doc.Pages))
	_, err := p.pool.ForEachPage(ctx, "resolve", len(doc.Pages), func(ctx context.Context, i int) error {
		results[i] = p.redactPage(doc.Pages[i], proposal.Candidates, append(byPage[i], spanless...), existing[i], checker)
		return nil
	})
	if err != nil {
		finishTiming(false, nil)
		return nil, cancelled(doc.Name, err)
	}

	var targets []redactors.Target
	entities := make([]detector.Resolved, len(proposal.Candidates))
	for i, c := range proposal.Candidates {
		entities[i].Candidate = c
	}
	for _, r := range results {
		targets = append(targets, r.targets...)
		report.Locations += r.located
		for idx, locs := range r.found {
			entities[idx].Locations = append(entities[idx].Locations, locs...)
		}
	}
	stats := checker.Stats()
	for _, reason := range stats.Reasons() {
		n := stats.Rejected[reason]
		report.Blocked[reason] += n
		for ; n > 0; n-- {
			errs.AddError(redactors.ErrorSafety, reason, doc.Name, "safety", nil)
		}
	}
	for _, e := range entities {
		if len(e.Locations) == 0 {
			report.Unresolved++
			p.observer.LogOperation(observability.StandardObservabilityData{
				Component: "position",
				Operation: "unresolved",
				Document:  doc.Name,
				Page:      e.Page,
				Success:   false,
				Metadata:  map[string]interface{}{"type": string(e.Type), "length": len([]rune(e.Text))},
			})
		}
	}

	exportOpts := p.opts.Export
	if exportOpts.OriginalPath == "" {
		exportOpts.OriginalPath = doc.Name
	}
	exported, err := redactors.NewExporter(exportOpts, p.pool, p.observer).Export(ctx, doc, targets, errs)
	if err != nil {
		finishTiming(false, nil)
		return nil, err
	}

	report.Redacted = exported.Redacted
	report.Skipped = exported.Skipped
	report.UniqueEntities = len(exported.Mapping)
	report.Errors = errs.GetErrors()
	report.ErrorCounts = errs.CountByType()
	report.Duration += time.Since(start)

	finishTiming(true, map[string]interface{}{
		"redacted":   report.Redacted,
		"blocked":    report.BlockedTotal(),
		"unresolved": report.Unresolved,
	})
	return &Result{Export: exported, Report: report}, nil
}

func (p *Pipeline) redactPage(page *document.Page, cands []detector.Candidate, indexes []int,
	existing []detector.Rect, checker *safety.Checker) pageRedaction {

	out := pageRedaction{found: make(map[int][]detector.Location)}
	seen := make(map[detector.Span]bool)
	for _, idx := range indexes {
		c := cands[idx]
		locs := p.resolver.ResolvePage(c, page)
		if len(locs) > 0 {
			out.found[idx] = locs
		}
		for _, loc := range locs {
			if seen[loc.TextSpan] {
				continue
			}
			seen[loc.TextSpan] = true
			out.located++

			// the painted text must be the entity; one line of a wrapped
			// occurrence is held to its own share of it
			expected := c.Text
			if loc.TextSpan != loc.Match {
				expected = page.Text[loc.TextSpan.Start:loc.TextSpan.End]
			}
			if v := checker.Check(page, loc.Rect, expected, existing); !v.Safe {
				continue
			}
			out.targets = append(out.targets, redactors.Target{Type: c.Type, Score: c.Score, Source: c.Source, Location: loc})
		}
	}
	return out
}

// Run redacts doc without review: Propose followed by Redact
func (p *Pipeline) Run(ctx context.Context, doc *document.Document) (*Result, error) {
	proposal, err := p.Propose(ctx, doc)
	if err != nil {
		return nil, err
	}
	return p.Redact(ctx, doc, proposal)
}

// Clear scrubs the originals held by the result
func (r *Result) Clear() {
	if r == nil || r.Export == nil {
		return
	}
	r.Export.Mapping.Clear()
}

func cancelled(name string, err error) error {
	var re *redactors.RedactionError
	if errors.As(err, &re) {
		return err
	}
	return redactors.NewRedactionError(redactors.ErrorCancelled, "run interrupted", name, "pipeline", err)
}
