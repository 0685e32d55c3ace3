package ingest

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cognicore/susimind/pkg/susimind/lexicon"
)

func testLexicon() *lexicon.Lexicon {
	lex := lexicon.New()
	lex.AddSynonymGroup("hello", []string{"hi", "hey", "good day"})
	lex.AddSynonymGroup("monday", []string{"mon"})
	lex.AddCategory("weekday", []string{"monday"})
	lex.AddCategory("greeting", []string{"hello"})
	lex.AddFiller("please")
	return lex
}

func TestTokenizePunctuation(t *testing.T) {
	tok := NewTokenizer(nil)
	got := tok.Tokenize("Hi, how are you?")
	var originals []string
	for _, tk := range got {
		originals = append(originals, tk.Original)
	}
	want := []string{"hi", ",", "how", "are", "you", "?"}
	if diff := cmp.Diff(want, originals); diff != "" {
		t.Fatalf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenizeLexicon(t *testing.T) {
	tok := NewTokenizer(testLexicon())
	got := tok.Tokenize("please hey mon")
	want := []Token{
		{Original: "hey", Canonical: "hello", Categorized: "greeting"},
		{Original: "mon", Canonical: "monday", Categorized: "weekday"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestMultiTokenParse(t *testing.T) {
	lex := testLexicon()
	parser := NewMultiTokenParser(EntriesFromLexicon(lex))
	tokens := NewTokenizer(lex).Tokenize("good day friend")
	got := parser.Parse(tokens)
	want := []Token{
		{Original: "good day", Canonical: "hello", Categorized: "greeting"},
		{Original: "friend", Canonical: "friend", Categorized: "friend"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("parse mismatch (-want +got):\n%s", diff)
	}
}

func TestMultiTokenLongestMatch(t *testing.T) {
	parser := NewMultiTokenParser([]DictEntry{
		{Canonical: "ny", Variants: []string{"new york"}},
		{Canonical: "nyc", Variants: []string{"new york city"}},
	})
	tok := NewTokenizer(nil)
	got := parser.Parse(tok.Tokenize("new york city rocks"))
	if len(got) != 2 || got[0].Canonical != "nyc" {
		t.Fatalf("expected longest match, got %+v", got)
	}
}

func TestNilParser(t *testing.T) {
	var p *MultiTokenParser
	in := []Token{{Original: "a"}}
	if got := p.Parse(in); len(got) != 1 {
		t.Fatal("nil parser should pass tokens through")
	}
}

func TestPipelineProcess(t *testing.T) {
	p := ForLexicon(testLexicon())
	got := p.Process("  Good day, what's up?  ")
	if got.Normalized != "good day what is up" {
		t.Fatalf("normalized = %q", got.Normalized)
	}
	if len(got.Tokens) == 0 || got.Tokens[0].Canonical != "hello" {
		t.Fatalf("tokens = %+v", got.Tokens)
	}
}
