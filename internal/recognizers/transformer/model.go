// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package transformer runs token-classification models exported to ONNX as a
// recognizer backend.
package transformer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"lexredact/internal/detector"
)

const (
	defaultSeqLen       = 256
	defaultIntraThreads = 1
	defaultInterThreads = 1
)

// Config describes one transformer model
type Config struct {
	// Name distinguishes models in multi-model mode; empty for a single model
	Name string `yaml:"name"`

	// Dir holds model.onnx (or model.int8.onnx), vocab.txt and the label map
	Dir string `yaml:"dir"`

	// LibraryPath is the onnxruntime shared library; empty searches the
	// model directory and the usual system locations
	LibraryPath string `yaml:"library_path"`

	SeqLen       int  `yaml:"seq_len"`
	PoolSize     int  `yaml:"pool_size"`
	IntraThreads int  `yaml:"intra_threads"`
	InterThreads int  `yaml:"inter_threads"`
	LowerCase    bool `yaml:"lower_case"`

	// LabelMap overrides DefaultLabelMap, model label to entity type
	LabelMap map[string]string `yaml:"label_map"`
}

// runner executes one encoded window and returns row-major logits
type runner interface {
	run(ctx context.Context, enc encoding) ([]float32, error)
	close()
}

// Model is a transformer recognizer backend
type Model struct {
	name      string
	tokenizer *WordPieceTokenizer
	labels    []string
	labelMap  map[string]string
	seqLen    int
	runner    runner
}

func (m *Model) Name() string {
	if m.name == "" {
		return detector.SourceTransformer
	}
	return detector.SourceTransformer + ":" + m.name
}

func (m *Model) Kind() string { return detector.SourceTransformer }

// Detect tags every window of text and returns candidates with spans over text
func (m *Model) Detect(ctx context.Context, text string) ([]detector.Candidate, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	var out []detector.Candidate
	for _, enc := range m.tokenizer.EncodeWindows(text, m.seqLen) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logits, err := m.runner.run(ctx, enc)
		if err != nil {
			return nil, err
		}
		for _, s := range decodeTokens(logits, len(m.labels), m.labels, enc.offsets) {
			typ, ok := mapLabel(s.Label, m.labelMap)
			if !ok {
				continue
			}
			c := detector.Candidate{
				Type:     typ,
				Text:     text[s.Start:s.End],
				Score:    s.Score,
				Source:   m.Name(),
				Metadata: map[string]any{"label": s.Label},
			}
			out = append(out, c.WithSpan(s.Start, s.End))
		}
	}
	return out, nil
}

// Close releases the onnx sessions
func (m *Model) Close() {
	if m.runner != nil {
		m.runner.close()
	}
}

var ortInit sync.Mutex

// Load builds a model backend from cfg, initializing the onnx runtime on first use
func Load(cfg Config) (*Model, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, errors.New("transformer model dir is empty")
	}
	modelPath := resolveModelPath(cfg.Dir)
	if modelPath == "" {
		return nil, fmt.Errorf("no model.onnx in %s", cfg.Dir)
	}
	tokenizer, err := LoadWordPieceTokenizer(filepath.Join(cfg.Dir, "vocab.txt"), cfg.LowerCase)
	if err != nil {
		return nil, err
	}
	labels, err := loadLabels(cfg.Dir)
	if err != nil {
		return nil, err
	}

	if err := initRuntime(cfg.LibraryPath, cfg.Dir); err != nil {
		return nil, err
	}

	seqLen := cfg.SeqLen
	if seqLen <= 0 {
		seqLen = defaultSeqLen
	}
	pool, err := newSessionPool(modelPath, cfg, seqLen, len(labels))
	if err != nil {
		return nil, err
	}

	return &Model{
		name:      cfg.Name,
		tokenizer: tokenizer,
		labels:    labels,
		labelMap:  upperKeys(cfg.LabelMap),
		seqLen:    seqLen,
		runner:    pool,
	}, nil
}

func initRuntime(libPath, modelDir string) error {
	ortInit.Lock()
	defer ortInit.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	if libPath == "" {
		libPath = findSharedLibrary(modelDir)
	}
	if libPath == "" {
		return errors.New("onnxruntime shared library not found; set transformer.library_path")
	}
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	return nil
}

func resolveModelPath(dir string) string {
	for _, name := range []string{"model.int8.onnx", "model.onnx"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func findSharedLibrary(modelDir string) string {
	names := []string{"libonnxruntime.so", "libonnxruntime.dylib", "onnxruntime.dll"}
	dirs := []string{modelDir, filepath.Join(modelDir, "lib"), "/usr/local/lib", "/usr/lib", "/opt/homebrew/lib"}
	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}

func upperKeys(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return out
}

type session struct {
	session       *ort.AdvancedSession
	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	tokenTypeIDs  *ort.Tensor[int64]
	output        *ort.Tensor[float32]
}

// sessionPool hands out preallocated sessions; a session is used by one
// goroutine at a time.
type sessionPool struct {
	sessions chan *session
	all      []*session
}

func newSessionPool(modelPath string, cfg Config, seqLen, numLabels int) (*sessionPool, error) {
	size := max(1, cfg.PoolSize)
	intra := cfg.IntraThreads
	if intra <= 0 {
		intra = defaultIntraThreads
	}
	inter := cfg.InterThreads
	if inter <= 0 {
		inter = defaultInterThreads
	}

	inputs, outputs, err := ort.GetInputOutputInfoWithOptions(modelPath, nil)
	if err != nil {
		return nil, fmt.Errorf("read model io: %w", err)
	}
	outName := ""
	for _, o := range outputs {
		if strings.EqualFold(o.Name, "logits") || len(outputs) == 1 {
			outName = o.Name
			break
		}
	}
	if outName == "" {
		return nil, errors.New("model has no logits output")
	}
	needsTokenType := false
	for _, in := range inputs {
		if in.Name == "token_type_ids" {
			needsTokenType = true
		}
	}

	p := &sessionPool{sessions: make(chan *session, size)}
	for i := 0; i < size; i++ {
		s, err := newSession(modelPath, outName, seqLen, numLabels, intra, inter, needsTokenType)
		if err != nil {
			p.close()
			return nil, fmt.Errorf("create onnx session %d/%d: %w", i+1, size, err)
		}
		p.all = append(p.all, s)
		p.sessions <- s
	}
	return p, nil
}

func newSession(modelPath, outName string, seqLen, numLabels, intra, inter int, tokenType bool) (*session, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer opts.Destroy()
	if err := opts.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll); err != nil {
		return nil, fmt.Errorf("set graph optimization: %w", err)
	}
	if err := opts.SetIntraOpNumThreads(intra); err != nil {
		return nil, fmt.Errorf("set intra threads: %w", err)
	}
	if err := opts.SetInterOpNumThreads(inter); err != nil {
		return nil, fmt.Errorf("set inter threads: %w", err)
	}

	shape := ort.NewShape(1, int64(seqLen))
	s := &session{}
	if s.inputIDs, err = ort.NewEmptyTensor[int64](shape); err != nil {
		return nil, fmt.Errorf("allocate input_ids tensor: %w", err)
	}
	if s.attentionMask, err = ort.NewEmptyTensor[int64](shape); err != nil {
		return nil, fmt.Errorf("allocate attention_mask tensor: %w", err)
	}
	inputNames := []string{"input_ids", "attention_mask"}
	inputValues := []ort.Value{s.inputIDs, s.attentionMask}
	if tokenType {
		if s.tokenTypeIDs, err = ort.NewEmptyTensor[int64](shape); err != nil {
			return nil, fmt.Errorf("allocate token_type_ids tensor: %w", err)
		}
		inputNames = append(inputNames, "token_type_ids")
		inputValues = append(inputValues, s.tokenTypeIDs)
	}
	if s.output, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(seqLen), int64(numLabels))); err != nil {
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}

	s.session, err = ort.NewAdvancedSession(modelPath, inputNames, []string{outName}, inputValues, []ort.Value{s.output}, opts)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}
	return s, nil
}

func (p *sessionPool) run(ctx context.Context, enc encoding) ([]float32, error) {
	var s *session
	select {
	case s = <-p.sessions:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { p.sessions <- s }()

	copy(s.inputIDs.GetData(), enc.ids)
	copy(s.attentionMask.GetData(), enc.mask)
	if s.tokenTypeIDs != nil {
		clear(s.tokenTypeIDs.GetData())
	}
	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}
	// the output tensor is reused by the next run
	return append([]float32(nil), s.output.GetData()...), nil
}

func (p *sessionPool) close() {
	for _, s := range p.all {
		if s.session != nil {
			s.session.Destroy()
		}
		s.inputIDs.Destroy()
		s.attentionMask.Destroy()
		if s.tokenTypeIDs != nil {
			s.tokenTypeIDs.Destroy()
		}
		s.output.Destroy()
	}
	p.all = nil
}
