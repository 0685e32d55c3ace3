// Package ingest turns raw input sentences into tokens that index intents.
package ingest

import (
	"strings"

	"github.com/cognicore/susimind/pkg/susimind/lexicon"
)

// Token is one word of an input sentence in three forms: as typed, after
// synonym normalization and after category mapping.
type Token struct {
	Original    string
	Canonical   string
	Categorized string
}

// Tokenizer splits sentences into tokens using one lexicon.
type Tokenizer struct {
	lexicon *lexicon.Lexicon
}

// NewTokenizer creates a tokenizer. A nil lexicon disables normalization
// and filler removal.
func NewTokenizer(lex *lexicon.Lexicon) *Tokenizer {
	return &Tokenizer{lexicon: lex}
}

var punctuation = strings.NewReplacer(
	"?", " ?", "!", " !", ".", " .", ",", " ,", ";", " ;", ":", " :",
)

// Tokenize splits text at whitespace, with sentence punctuation split off as
// tokens of its own. Filler words are dropped.
func (t *Tokenizer) Tokenize(text string) []Token {
	fields := strings.Fields(punctuation.Replace(text))
	tokens := make([]Token, 0, len(fields))
	for _, f := range fields {
		original := strings.ToLower(f)
		if t.lexicon.IsFiller(original) {
			continue
		}
		tokens = append(tokens, t.Term(original))
	}
	return tokens
}

// Term builds the token of a single word or phrase.
func (t *Tokenizer) Term(original string) Token {
	original = strings.ToLower(original)
	canonical := t.lexicon.Normalize(original)
	return Token{
		Original:    original,
		Canonical:   canonical,
		Categorized: t.lexicon.Category(canonical),
	}
}
