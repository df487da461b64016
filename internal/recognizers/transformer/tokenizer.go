// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package transformer

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"
)

// tokenOffset is the byte range of a token in the encoded text. Special and
// padding tokens carry -1.
type tokenOffset struct {
	Start int
	End   int
}

var noOffset = tokenOffset{Start: -1, End: -1}

// encoding is one model input window
type encoding struct {
	ids     []int64
	mask    []int64
	offsets []tokenOffset
}

// WordPieceTokenizer implements a BERT-compatible tokenizer with byte offsets
type WordPieceTokenizer struct {
	vocab        map[string]int64
	lowerCase    bool
	clsID        int64
	sepID        int64
	padID        int64
	unkID        int64
	continuation string
}

// LoadWordPieceTokenizer builds the tokenizer from a vocab.txt file
func LoadWordPieceTokenizer(path string, lowerCase bool) (*WordPieceTokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer f.Close()

	vocab := make(map[string]int64)
	sc := bufio.NewScanner(f)
	var idx int64
	for sc.Scan() {
		token := strings.TrimSpace(sc.Text())
		if token == "" {
			continue
		}
		vocab[token] = idx
		idx++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan vocab: %w", err)
	}
	return NewWordPieceTokenizer(vocab, lowerCase), nil
}

// NewWordPieceTokenizer creates a tokenizer over an in-memory vocabulary
func NewWordPieceTokenizer(vocab map[string]int64, lowerCase bool) *WordPieceTokenizer {
	return &WordPieceTokenizer{
		vocab:        vocab,
		lowerCase:    lowerCase,
		continuation: "##",
		clsID:        vocab["[CLS]"],
		sepID:        vocab["[SEP]"],
		padID:        vocab["[PAD]"],
		unkID:        vocab["[UNK]"],
	}
}

type wordSpan struct {
	Text  string
	Start int
	End   int
}

type wordPieceOffset struct {
	id    int64
	start int
	end   int
}

// EncodeWindows splits text into consecutive windows of at most seqLen
// tokens, [CLS] and [SEP] included. Words are never split across windows.
func (t *WordPieceTokenizer) EncodeWindows(text string, seqLen int) []encoding {
	if seqLen < 3 {
		return nil
	}
	budget := seqLen - 2

	var windows []encoding
	var ids []int64
	var offsets []tokenOffset
	flush := func() {
		if len(ids) == 0 {
			return
		}
		windows = append(windows, t.pack(ids, offsets, seqLen))
		ids, offsets = nil, nil
	}

	for _, w := range splitWordsWithOffsets(text) {
		pieces := t.wordPieceOffsets(w.Text)
		if len(pieces) > budget {
			pieces = pieces[:budget]
		}
		if len(ids)+len(pieces) > budget {
			flush()
		}
		for _, p := range pieces {
			ids = append(ids, p.id)
			offsets = append(offsets, tokenOffset{Start: w.Start + p.start, End: w.Start + p.end})
		}
	}
	flush()
	return windows
}

func (t *WordPieceTokenizer) pack(ids []int64, offsets []tokenOffset, seqLen int) encoding {
	enc := encoding{
		ids:     make([]int64, seqLen),
		mask:    make([]int64, seqLen),
		offsets: make([]tokenOffset, seqLen),
	}
	enc.ids[0], enc.mask[0], enc.offsets[0] = t.clsID, 1, noOffset
	n := copy(enc.ids[1:], ids)
	copy(enc.offsets[1:], offsets)
	for i := 1; i <= n; i++ {
		enc.mask[i] = 1
	}
	enc.ids[n+1], enc.mask[n+1], enc.offsets[n+1] = t.sepID, 1, noOffset
	for i := n + 2; i < seqLen; i++ {
		enc.ids[i] = t.padID
		enc.offsets[i] = noOffset
	}
	return enc
}

func (t *WordPieceTokenizer) wordPieceOffsets(word string) []wordPieceOffset {
	token := word
	if t.lowerCase {
		token = strings.ToLower(word)
		// lower-casing changed the byte length; offsets inside the word would drift
		if len(token) != len(word) {
			if id, ok := t.vocab[token]; ok {
				return []wordPieceOffset{{id: id, start: 0, end: len(word)}}
			}
			return []wordPieceOffset{{id: t.unkID, start: 0, end: len(word)}}
		}
	}
	if id, ok := t.vocab[token]; ok {
		return []wordPieceOffset{{id: id, start: 0, end: len(token)}}
	}

	var pieces []wordPieceOffset
	start := 0
	for start < len(token) {
		end := len(token)
		found := false
		for end > start {
			sub := token[start:end]
			if start > 0 {
				sub = t.continuation + sub
			}
			if id, ok := t.vocab[sub]; ok {
				pieces = append(pieces, wordPieceOffset{id: id, start: start, end: end})
				start = end
				found = true
				break
			}
			end--
		}
		if !found {
			return []wordPieceOffset{{id: t.unkID, start: 0, end: len(token)}}
		}
	}
	return pieces
}

// splitWordsWithOffsets splits on whitespace and isolates punctuation the way
// the BERT basic tokenizer does.
func splitWordsWithOffsets(text string) []wordSpan {
	var spans []wordSpan
	start := -1
	closeWord := func(end int) {
		if start >= 0 {
			spans = append(spans, wordSpan{Text: text[start:end], Start: start, End: end})
			start = -1
		}
	}
	for idx := 0; idx < len(text); {
		r, size := utf8.DecodeRuneInString(text[idx:])
		switch {
		case unicode.IsSpace(r):
			closeWord(idx)
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			closeWord(idx)
			spans = append(spans, wordSpan{Text: text[idx : idx+size], Start: idx, End: idx + size})
		default:
			if start < 0 {
				start = idx
			}
		}
		idx += size
	}
	closeWord(len(text))
	return spans
}
