package ingest

import (
	"github.com/cognicore/susimind/pkg/susimind/lexicon"
	"github.com/cognicore/susimind/pkg/susimind/pattern"
)

// Pipeline orchestrates the input flow:
// text → normalization → tokenization → multi-token recognition
type Pipeline struct {
	tokenizer *Tokenizer
	parser    *MultiTokenParser
}

// NewPipeline creates a pipeline with the given components. parser may be nil.
func NewPipeline(tokenizer *Tokenizer, parser *MultiTokenParser) *Pipeline {
	return &Pipeline{tokenizer: tokenizer, parser: parser}
}

// ForLexicon wires a tokenizer and phrase parser from one lexicon.
func ForLexicon(lex *lexicon.Lexicon) *Pipeline {
	return NewPipeline(NewTokenizer(lex), NewMultiTokenParser(EntriesFromLexicon(lex)))
}

// Processed is an input sentence after processing.
type Processed struct {
	Normalized string
	Tokens     []Token
}

// Process runs a sentence through the pipeline.
func (p *Pipeline) Process(text string) Processed {
	norm := pattern.Normalize(text)
	tokens := p.tokenizer.Tokenize(norm)
	tokens = p.parser.Parse(tokens)
	return Processed{Normalized: norm, Tokens: tokens}
}
