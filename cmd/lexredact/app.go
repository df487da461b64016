// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"lexredact/internal/config"
	"lexredact/internal/detector"
	"lexredact/internal/document"
	"lexredact/internal/document/imagesource"
	"lexredact/internal/document/pdfsource"
	"lexredact/internal/formatters"
	"lexredact/internal/observability"
	"lexredact/internal/paths"
	"lexredact/internal/pipeline"
	"lexredact/internal/policy"
	"lexredact/internal/recognizers"
	"lexredact/internal/recognizers/transformer"
	"lexredact/internal/redactors"
	"lexredact/internal/store"
	"lexredact/internal/suppressions"
	"lexredact/internal/version"
)

// application runs one document through the pipeline
type application struct {
	cfg      *config.Config
	flags    *cliFlags
	observer *observability.StandardObserver
	debug    *observability.DebugObserver
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
}

// imageExtensions are loaded as one-page scans
var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true, ".bmp": true, ".webp": true,
}

// loadDocument picks a loader by file extension; anything unknown is read as plain text
func loadDocument(path string) (*document.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".pdf":
		return pdfsource.Load(path, pdfsource.DefaultOptions())
	case ext == ".json":
		return document.LoadJSON(path)
	case imageExtensions[ext]:
		return imagesource.Load(path)
	default:
		return document.LoadText(path)
	}
}

func (a *application) process(ctx context.Context) (*pipeline.Report, error) {
	input := a.flags.inputFile

	done := a.debug.StartStep("main", "load document", input)
	doc, err := loadDocument(input)
	if err != nil {
		done(false, err.Error())
		return nil, redactors.NewRedactionError(redactors.ErrorFileSystem, "cannot load input", input, "main", err)
	}
	done(true, fmt.Sprintf("%d pages", len(doc.Pages)))

	ensemble, loadErrs, closeModels := a.buildEnsemble()
	defer closeModels()

	st, err := openStore(a.cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	rules, err := a.loadLists()
	if err != nil {
		return nil, err
	}

	opts, err := a.cfg.PipelineOptions(nil)
	if err != nil {
		return nil, err
	}
	if rules != nil {
		opts.Policy.Rules = rules
		opts.Policy.Allow = append(opts.Policy.Allow, rules.Allow()...)
		opts.Policy.DenyPatterns = append(opts.Policy.DenyPatterns, rules.DenyPatterns()...)
	}
	base := paths.OutputBase(input, a.cfg.Redaction.OutputDir)
	opts.Export.OriginalPath = input
	opts.Export.RedactedPath = base + ".redacted.json"
	opts.Export.Version = version.Short()

	p, err := pipeline.New(opts, pipeline.Dependencies{
		Ensemble: ensemble,
		Store:    st,
		Observer: a.observer,
	})
	if err != nil {
		return nil, err
	}

	done = a.debug.StartStep("pipeline", "propose", input)
	proposal, err := p.Propose(ctx, doc)
	if err != nil {
		done(false, err.Error())
		return nil, err
	}
	a.debug.LogMetric("pipeline", "filtered", proposal.Report.FilteredTotal())
	a.debug.LogMetric("pipeline", "learned", proposal.Report.Learned)
	done(true, fmt.Sprintf("%d candidates", len(proposal.Candidates)))
	markDegraded(proposal.Report, loadErrs)

	if a.flags.dryRun {
		return proposal.Report, nil
	}

	if a.flags.review {
		proposal, err = a.review(ctx, p, proposal)
		if err != nil {
			return nil, err
		}
	}

	done = a.debug.StartStep("pipeline", "redact", input)
	result, err := p.Redact(ctx, doc, proposal)
	if err != nil {
		done(false, err.Error())
		return nil, err
	}
	defer result.Clear()
	a.debug.LogMetric("pipeline", "blocked", result.Report.BlockedTotal())
	a.debug.LogMetric("pipeline", "unresolved", result.Report.Unresolved)
	done(true, fmt.Sprintf("%d redacted", result.Report.Redacted))

	mapping, err := formatters.ExportMapping(a.cfg.Redaction.Format, result.Export.Mapping,
		formatters.FormatterOptions{ShowOriginals: true, NoColor: true, Verbose: true})
	if err != nil {
		return nil, err
	}
	outputs, err := redactors.NewOutputWriter(a.observer).Write(base, result.Export, mapping)
	if err != nil {
		return nil, err
	}
	result.Report.Outputs = outputs
	return result.Report, nil
}

// buildEnsemble loads the configured transformer models. A model that fails
// to load is reported and the run continues without it.
func (a *application) buildEnsemble() (*recognizers.Ensemble, []*redactors.RedactionError, func()) {
	types, _ := a.cfg.EnabledTypes()

	var backends []detector.Backend
	var models []*transformer.Model
	var failures []*redactors.RedactionError

	if a.cfg.Features.Transformer {
		configured := a.cfg.Transformer.Models
		if !a.cfg.Features.MultiModel && len(configured) > 1 {
			configured = configured[:1]
		}
		for _, m := range configured {
			name := m.Name
			if !a.cfg.Features.MultiModel {
				name = ""
			}
			model, err := transformer.Load(transformer.Config{
				Name:        name,
				Dir:         m.Dir,
				LibraryPath: a.cfg.Transformer.LibraryPath,
				SeqLen:      m.MaxTokens,
				LabelMap:    m.Labels,
			})
			if err != nil {
				a.observer.Warnf("main", "transformer model %s unavailable: %v", m.Dir, err)
				failures = append(failures, redactors.NewRedactionError(redactors.ErrorBackend,
					"transformer model unavailable", m.Dir, "transformer", err))
				continue
			}
			a.debug.LogDetail("transformer", "loaded "+model.Name())
			models = append(models, model)
			backends = append(backends, model)
		}
	}

	ensemble := recognizers.New(recognizers.Options{
		EnabledTypes: types,
		Keywords:     a.cfg.Detection.Keywords,
		Transformers: backends,
		Observer:     a.observer,
	})
	return ensemble, failures, func() {
		for _, m := range models {
			m.Close()
		}
	}
}

// markDegraded adds backends that never loaded to the report
func markDegraded(report *pipeline.Report, failures []*redactors.RedactionError) {
	for _, f := range failures {
		report.Degraded = append(report.Degraded, "transformer:"+f.FilePath)
		report.Errors = append(report.Errors, *f)
	}
}

// openStore opens the bbolt store at path, or an in-memory one
func openStore(path string) (store.Store, error) {
	if path == "" {
		return store.NewMemory(), nil
	}
	if err := redactors.EnsureDirectoryExists(path); err != nil {
		return nil, err
	}
	st, err := store.OpenBolt(path)
	if err != nil {
		return nil, redactors.NewRedactionError(redactors.ErrorFileSystem, "cannot open learned store", path, "store", err)
	}
	return st, nil
}

// loadLists reads the configured lists file, or the default one when it exists
func (a *application) loadLists() (*suppressions.Manager, error) {
	path := a.cfg.Policy.ListsFile
	if path == "" {
		path = paths.GetListsFile()
		if _, err := os.Stat(path); err != nil {
			return nil, nil
		}
	}
	m, err := suppressions.NewManager(path)
	if err != nil {
		return nil, redactors.NewRedactionError(redactors.ErrorConfiguration, "cannot load lists file", path, "main", err)
	}
	if n := m.CleanupExpired(); n > 0 {
		a.debug.LogDetail("lists", fmt.Sprintf("ignoring %d expired rules", n))
	}
	return m, nil
}

func (a *application) printReport(report *pipeline.Report) error {
	formatter, err := formatters.Lookup(a.cfg.Defaults.Format)
	if err != nil {
		return err
	}
	out, err := formatter.FormatReport(report, formatters.FormatterOptions{
		Verbose: a.cfg.Defaults.Verbose,
		NoColor: a.flags.noColor || a.flags.reportFile != "",
	})
	if err != nil {
		return err
	}
	if a.flags.reportFile != "" {
		if err := os.WriteFile(a.flags.reportFile, []byte(out), 0600); err != nil {
			return redactors.NewRedactionError(redactors.ErrorFileSystem, "cannot write report", a.flags.reportFile, "main", err)
		}
		return nil
	}
	if a.flags.quiet {
		return nil
	}
	_, err = io.WriteString(a.stdout, out)
	return err
}

var _ policy.Rules = (*suppressions.Manager)(nil)
