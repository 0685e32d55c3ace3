// Package lexicon holds per-language linguistics: synonyms mapped to a
// canonical term, canonical terms mapped to categories, and filler words.
package lexicon

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/susimind/pkg/susimind/language"
	"github.com/cognicore/susimind/pkg/susimind/stoplist"
)

// Lexicon stores the vocabulary of one language:
// - Synonyms: variants mapped to a canonical term (hi, hey → hello)
// - Categories: canonical terms mapped to a category (monday → weekday)
// - Filler: words ignored by tokenization (please, um)
//
// A Lexicon is built once and then shared read-only. Reload builds a new one.
type Lexicon struct {
	// canonical -> all variants (including canonical itself)
	synonyms map[string][]string

	// variant -> canonical
	reverseIndex map[string]string

	// canonical -> category
	categories map[string]string

	filler *stoplist.Manager
}

// New creates an empty lexicon.
func New() *Lexicon {
	return &Lexicon{
		synonyms:     make(map[string][]string),
		reverseIndex: make(map[string]string),
		categories:   make(map[string]string),
		filler:       stoplist.NewManager(nil),
	}
}

// AddSynonymGroup adds a synonym group with a canonical form and its variants.
// The canonical form is always included as the first entry in the variants list.
// If the group already exists, old reverse index entries are cleaned up first.
func (l *Lexicon) AddSynonymGroup(canonical string, variants []string) {
	canonical = strings.ToLower(canonical)

	if oldVariants, exists := l.synonyms[canonical]; exists {
		for _, oldV := range oldVariants {
			delete(l.reverseIndex, oldV)
		}
	}

	normalized := make([]string, 0, len(variants)+1)
	seen := make(map[string]bool)
	normalized = append(normalized, canonical)
	seen[canonical] = true
	for _, v := range variants {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" && !seen[v] {
			normalized = append(normalized, v)
			seen[v] = true
		}
	}

	l.synonyms[canonical] = normalized
	for _, v := range normalized {
		l.reverseIndex[v] = canonical
	}
}

// AddCategory assigns category to each of the given canonical terms.
func (l *Lexicon) AddCategory(category string, terms []string) {
	category = strings.ToLower(category)
	for _, t := range terms {
		l.categories[strings.ToLower(strings.TrimSpace(t))] = category
	}
}

// AddFiller marks words to be skipped by tokenization.
func (l *Lexicon) AddFiller(words ...string) {
	for _, w := range words {
		l.filler.Add(w, stoplist.Reason{Source: "lexicon"})
	}
}

// Normalize returns the canonical form of a token.
// If the token is not in the lexicon, returns the token itself.
func (l *Lexicon) Normalize(token string) string {
	token = strings.ToLower(token)
	if l == nil {
		return token
	}
	if canonical, ok := l.reverseIndex[token]; ok {
		return canonical
	}
	return token
}

// Category returns the category of a canonical term, or the term itself.
func (l *Lexicon) Category(canonical string) string {
	canonical = strings.ToLower(canonical)
	if l == nil {
		return canonical
	}
	if c, ok := l.categories[canonical]; ok {
		return c
	}
	return canonical
}

// IsFiller reports whether a word is ignored by tokenization.
func (l *Lexicon) IsFiller(word string) bool {
	return l != nil && l.filler.IsStop(word)
}

// Fillers returns the filler manager.
func (l *Lexicon) Fillers() *stoplist.Manager { return l.filler }

// Variants returns all known variants of a token (including the canonical form).
// If the token is not in the lexicon, returns a slice containing only the token itself.
func (l *Lexicon) Variants(token string) []string {
	token = strings.ToLower(token)
	if variants, ok := l.synonyms[token]; ok {
		return variants
	}
	if canonical, ok := l.reverseIndex[token]; ok {
		if variants, ok := l.synonyms[canonical]; ok {
			return variants
		}
	}
	return []string{token}
}

// HasSynonyms returns true if the token has synonyms/variants in the lexicon.
func (l *Lexicon) HasSynonyms(token string) bool {
	_, exists := l.reverseIndex[strings.ToLower(token)]
	return exists
}

// Phrase is a synonym group with at least one multi-word variant.
type Phrase struct {
	Canonical string
	Category  string
	Variants  []string
}

// Phrases returns synonym groups containing multi-word variants, sorted by
// canonical term.
func (l *Lexicon) Phrases() []Phrase {
	if l == nil {
		return nil
	}
	var out []Phrase
	for canonical, variants := range l.synonyms {
		multi := false
		for _, v := range variants {
			if strings.Contains(v, " ") {
				multi = true
				break
			}
		}
		if multi {
			out = append(out, Phrase{
				Canonical: canonical,
				Category:  l.Category(canonical),
				Variants:  append([]string(nil), variants...),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Canonical < out[j].Canonical })
	return out
}

// Stats returns statistics about the lexicon contents.
func (l *Lexicon) Stats() LexiconStats {
	totalVariants := 0
	for _, variants := range l.synonyms {
		totalVariants += len(variants)
	}
	return LexiconStats{
		SynonymGroups: len(l.synonyms),
		TotalVariants: totalVariants,
		Categorized:   len(l.categories),
		Fillers:       l.filler.Len(),
	}
}

// LexiconStats holds statistics about lexicon contents.
type LexiconStats struct {
	SynonymGroups int // Number of canonical forms (synonym groups)
	TotalVariants int // Total number of variants across all groups
	Categorized   int // Number of terms with a category
	Fillers       int // Number of filler words
}

// Set maps languages to lexicons. It is immutable once built.
type Set struct {
	tables map[language.Language]*Lexicon
}

// NewSet builds a Set from per-language lexicons.
func NewSet(tables map[language.Language]*Lexicon) *Set {
	cp := make(map[language.Language]*Lexicon, len(tables))
	for k, v := range tables {
		cp[k] = v
	}
	return &Set{tables: cp}
}

// For returns the lexicon for lang, falling back to English, then to an
// empty lexicon carrying the built-in fillers of lang.
func (s *Set) For(lang language.Language) *Lexicon {
	if s != nil {
		if l, ok := s.tables[lang]; ok {
			return l
		}
		if lang == language.Unknown {
			if l, ok := s.tables[language.English]; ok {
				return l
			}
		}
	}
	l := New()
	l.AddFiller(stoplist.Defaults(string(lang))...)
	return l
}

// Languages returns the languages with a lexicon, sorted.
func (s *Set) Languages() []language.Language {
	if s == nil {
		return nil
	}
	out := make([]language.Language, 0, len(s.tables))
	for k := range s.tables {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// LoadFromYAML loads a Set from a YAML file.
//
// Expected format:
//
//	languages:
//	  en:
//	    synonyms:
//	      hello: [hi, hey, good day]
//	    categories:
//	      weekday: [monday, tuesday]
//	    filler: [please, um]
func LoadFromYAML(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a Set from YAML bytes. Built-in fillers are added to every
// language that has defaults.
func Parse(data []byte) (*Set, error) {
	var doc struct {
		Languages map[string]struct {
			Synonyms   map[string][]string `yaml:"synonyms"`
			Categories map[string][]string `yaml:"categories"`
			Filler     []string            `yaml:"filler"`
		} `yaml:"languages"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	tables := make(map[language.Language]*Lexicon, len(doc.Languages))
	for code, entry := range doc.Languages {
		lang := language.Parse(code)
		if lang == language.Unknown {
			return nil, fmt.Errorf("parse lexicon: unknown language %q", code)
		}
		lex := New()
		lex.AddFiller(stoplist.Defaults(string(lang))...)
		for canonical, variants := range entry.Synonyms {
			lex.AddSynonymGroup(canonical, variants)
		}
		for category, terms := range entry.Categories {
			lex.AddCategory(category, terms)
		}
		lex.AddFiller(entry.Filler...)
		tables[lang] = lex
	}
	return NewSet(tables), nil
}
