package ingest

import (
	"strings"

	"github.com/cognicore/susimind/pkg/susimind/lexicon"
)

// MultiTokenParser merges consecutive tokens forming a known phrase.
type MultiTokenParser struct {
	dict   map[string]DictEntry // phrase -> entry
	maxLen int
}

// DictEntry represents a dictionary entry for a multi-token phrase
type DictEntry struct {
	Canonical string
	Category  string
	Variants  []string
}

// NewMultiTokenParser creates a new parser with the given dictionary
func NewMultiTokenParser(entries []DictEntry) *MultiTokenParser {
	dict := make(map[string]DictEntry)
	maxLen := 1
	add := func(phrase string, e DictEntry) {
		phrase = strings.ToLower(phrase)
		dict[phrase] = e
		if l := phraseLen(phrase); l > maxLen {
			maxLen = l
		}
	}
	for _, e := range entries {
		add(e.Canonical, e)
		for _, v := range e.Variants {
			add(v, e)
		}
	}
	return &MultiTokenParser{dict: dict, maxLen: maxLen}
}

// EntriesFromLexicon converts the multi-word synonym groups of a lexicon.
func EntriesFromLexicon(lex *lexicon.Lexicon) []DictEntry {
	phrases := lex.Phrases()
	out := make([]DictEntry, 0, len(phrases))
	for _, p := range phrases {
		out = append(out, DictEntry{Canonical: p.Canonical, Category: p.Category, Variants: p.Variants})
	}
	return out
}

// Parse applies greedy longest-match to merge multi-token phrases. A merged
// token keeps the phrase as typed in Original.
func (p *MultiTokenParser) Parse(tokens []Token) []Token {
	if p == nil || p.maxLen < 2 {
		return tokens
	}
	result := make([]Token, 0, len(tokens))
	i := 0
	for i < len(tokens) {
		maxPhrase := p.maxLen
		if remaining := len(tokens) - i; maxPhrase > remaining {
			maxPhrase = remaining
		}
		merged := false
		for n := maxPhrase; n >= 2; n-- {
			words := make([]string, n)
			for k := 0; k < n; k++ {
				words[k] = tokens[i+k].Original
			}
			phrase := strings.Join(words, " ")
			if entry, ok := p.dict[phrase]; ok {
				category := entry.Category
				if category == "" {
					category = entry.Canonical
				}
				result = append(result, Token{Original: phrase, Canonical: entry.Canonical, Categorized: category})
				i += n
				merged = true
				break
			}
		}
		if !merged {
			result = append(result, tokens[i])
			i++
		}
	}
	return result
}

func phraseLen(phrase string) int {
	if phrase == "" {
		return 1
	}
	return len(strings.Fields(phrase))
}
