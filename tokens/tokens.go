// Package tokens provides token counting for chunk sizing.
//
// The chunker only needs a cost function; this package supplies two
// interchangeable implementations. Tiktoken matches the OpenAI
// tokenizer for the configured model, Estimate is a dependency-free
// heuristic used as a fallback and in tests. Swapping counters moves
// chunk boundaries but never affects reassembly correctness.
package tokens

import (
	"fmt"
	"unicode/utf8"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Counter returns the token cost of a string. Deterministic for a
// given model identifier.
type Counter interface {
	Count(text string) int
}

// ---------------------------------------------------------------------------
// Tiktoken
// ---------------------------------------------------------------------------

// Tiktoken counts tokens with the encoding used by an OpenAI model.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken resolves the encoding for model, falling back to
// cl100k_base for models tiktoken-go does not know yet.
func NewTiktoken(model string) (*Tiktoken, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("resolving encoding for %s: %w", model, err)
		}
	}
	return &Tiktoken{enc: enc}, nil
}

// Count returns the number of tokens in text.
func (t *Tiktoken) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// ---------------------------------------------------------------------------
// Heuristic estimate
// ---------------------------------------------------------------------------

// Estimate approximates token cost as runes/4, the common rule of
// thumb for English text. Non-empty text always costs at least one
// token so chunk budgets cannot be gamed by short lines.
type Estimate struct{}

// Count returns the estimated number of tokens in text.
func (Estimate) Count(text string) int {
	if text == "" {
		return 0
	}
	n := utf8.RuneCountInString(text) / 4
	if n == 0 {
		return 1
	}
	return n
}
