/*
 *     Copyright 2026 Socket, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package onnxrt

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

const (
	defaultMaxLen = 256

	// maxWordChars mirrors WordPiece's max_input_chars_per_word cutoff.
	maxWordChars = 100
)

// Tokenizer is a lowercasing WordPiece tokenizer loaded from a model's
// vocabulary, enough to feed BERT-style encoders like MiniLM.
type Tokenizer struct {
	vocab map[string]int64
	cls   int64
	sep   int64
	unk   int64
}

// LoadTokenizer loads a vocabulary from path: vocab.txt (one token per
// line), tokenizer.json (the serialized tokenizer carrying model.vocab),
// or a directory containing either.
func LoadTokenizer(path string) (*Tokenizer, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat tokenizer path: %w", err)
	}

	if info.IsDir() {
		dir := path
		path = ""
		for _, name := range []string{"tokenizer.json", "vocab.txt"} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			return nil, fmt.Errorf("no tokenizer vocabulary under %s", dir)
		}
	}

	var vocab map[string]int64
	if filepath.Ext(path) == ".json" {
		vocab, err = loadTokenizerJSON(path)
	} else {
		vocab, err = loadVocabTxt(path)
	}
	if err != nil {
		return nil, err
	}

	t := &Tokenizer{vocab: vocab}
	t.cls = t.lookupSpecial("[CLS]", 101)
	t.sep = t.lookupSpecial("[SEP]", 102)
	t.unk = t.lookupSpecial("[UNK]", 100)
	return t, nil
}

// loadVocabTxt reads a vocab.txt where the line number is the token id.
func loadVocabTxt(path string) (map[string]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vocabulary: %w", err)
	}
	defer f.Close()

	vocab := make(map[string]int64)
	sc := bufio.NewScanner(f)
	var id int64
	for sc.Scan() {
		token := strings.TrimRight(sc.Text(), "\r")
		vocab[token] = id
		id++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vocabulary: %w", err)
	}

	if len(vocab) == 0 {
		return nil, fmt.Errorf("empty vocabulary in %s", path)
	}

	return vocab, nil
}

// loadTokenizerJSON pulls model.vocab out of a serialized tokenizer.
func loadTokenizerJSON(path string) (map[string]int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tokenizer: %w", err)
	}

	var doc struct {
		Model struct {
			Vocab map[string]int64 `json:"vocab"`
		} `json:"model"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse tokenizer: %w", err)
	}

	if len(doc.Model.Vocab) == 0 {
		return nil, fmt.Errorf("no vocabulary in %s", path)
	}

	return doc.Model.Vocab, nil
}

// lookupSpecial resolves a special token's id with a conventional fallback.
func (t *Tokenizer) lookupSpecial(token string, fallback int64) int64 {
	if id, ok := t.vocab[token]; ok {
		return id
	}
	return fallback
}

// Encode tokenizes text into input ids and an attention mask, wrapped by
// [CLS]/[SEP] and truncated to maxLen. No padding is applied, the exported
// graphs carry dynamic sequence axes.
func (t *Tokenizer) Encode(text string, maxLen int) (inputIDs, attentionMask []int64) {
	if maxLen <= 0 {
		maxLen = defaultMaxLen
	}

	words := splitTokens(strings.ToLower(text))

	ids := make([]int64, 0, len(words)+2)
	ids = append(ids, t.cls)
	for _, word := range words {
		if len(ids) >= maxLen-1 {
			break
		}
		for _, id := range t.wordpiece(word) {
			if len(ids) >= maxLen-1 {
				break
			}
			ids = append(ids, id)
		}
	}
	ids = append(ids, t.sep)

	mask := make([]int64, len(ids))
	for i := range mask {
		mask[i] = 1
	}

	return ids, mask
}

// splitTokens splits text into word and punctuation tokens.
func splitTokens(text string) []string {
	var tokens []string
	var current strings.Builder

	for _, r := range text {
		if unicode.IsSpace(r) {
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
			continue
		}
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
			tokens = append(tokens, string(r))
			continue
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// wordpiece performs greedy longest-match-first subword lookup. Pieces
// after the first carry the ## continuation prefix, and a word with any
// unmatched span maps to a single unknown token.
func (t *Tokenizer) wordpiece(word string) []int64 {
	if word == "" {
		return nil
	}

	runes := []rune(word)
	if len(runes) > maxWordChars {
		return []int64{t.unk}
	}

	var ids []int64
	start := 0
	for start < len(runes) {
		end := len(runes)
		var id int64
		found := false
		for end > start {
			piece := string(runes[start:end])
			if start > 0 {
				piece = "##" + piece
			}
			if v, ok := t.vocab[piece]; ok {
				id = v
				found = true
				break
			}
			end--
		}
		if !found {
			return []int64{t.unk}
		}
		ids = append(ids, id)
		start = end
	}

	return ids
}
