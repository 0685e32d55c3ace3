package lexicon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cognicore/susimind/pkg/susimind/language"
)

func TestLexiconNew(t *testing.T) {
	lex := New()
	if lex == nil {
		t.Fatal("New() returned nil")
	}
	if stats := lex.Stats(); stats.SynonymGroups != 0 {
		t.Errorf("New lexicon should have 0 synonym groups, got %d", stats.SynonymGroups)
	}
}

func TestLexiconAddSynonymGroup(t *testing.T) {
	lex := New()
	lex.AddSynonymGroup("hello", []string{"hi", "Hey", "good day"})

	tests := []struct {
		input, want string
	}{
		{"hi", "hello"},
		{"HEY", "hello"},
		{"good day", "hello"},
		{"hello", "hello"},
		{"bye", "bye"},
	}
	for _, tt := range tests {
		if got := lex.Normalize(tt.input); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
	if v := lex.Variants("hi"); len(v) != 4 || v[0] != "hello" {
		t.Errorf("Variants('hi') = %v", v)
	}
	if !lex.HasSynonyms("hey") || lex.HasSynonyms("bye") {
		t.Error("HasSynonyms mismatch")
	}
}

func TestLexiconReplaceGroup(t *testing.T) {
	lex := New()
	lex.AddSynonymGroup("hello", []string{"hi"})
	lex.AddSynonymGroup("hello", []string{"hey"})
	if got := lex.Normalize("hi"); got != "hi" {
		t.Errorf("old variant should be dropped, got %q", got)
	}
	if got := lex.Normalize("hey"); got != "hello" {
		t.Errorf("Normalize('hey') = %q", got)
	}
}

func TestLexiconCategories(t *testing.T) {
	lex := New()
	lex.AddCategory("weekday", []string{"Monday", "tuesday"})
	if got := lex.Category("monday"); got != "weekday" {
		t.Errorf("Category(monday) = %q", got)
	}
	if got := lex.Category("june"); got != "june" {
		t.Errorf("uncategorized term should map to itself, got %q", got)
	}
}

func TestLexiconPhrases(t *testing.T) {
	lex := New()
	lex.AddSynonymGroup("hello", []string{"good day"})
	lex.AddSynonymGroup("bye", []string{"ciao"})
	lex.AddCategory("greeting", []string{"hello"})
	ph := lex.Phrases()
	if len(ph) != 1 || ph[0].Canonical != "hello" || ph[0].Category != "greeting" {
		t.Fatalf("Phrases() = %+v", ph)
	}
}

func TestNilLexicon(t *testing.T) {
	var lex *Lexicon
	if lex.Normalize("Hi") != "hi" || lex.Category("x") != "x" || lex.IsFiller("um") {
		t.Fatal("nil lexicon should be an identity")
	}
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexicon.yaml")
	data := `
languages:
  en:
    synonyms:
      hello: [hi, hey]
    categories:
      weekday: [monday]
    filler: [basically]
  de-DE:
    synonyms:
      hallo: [servus]
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	set, err := LoadFromYAML(path)
	if err != nil {
		t.Fatalf("LoadFromYAML: %v", err)
	}
	en := set.For(language.English)
	if en.Normalize("hey") != "hello" || en.Category("monday") != "weekday" {
		t.Fatal("english table not loaded")
	}
	if !en.IsFiller("basically") || !en.IsFiller("please") {
		t.Fatal("expected configured and built-in fillers")
	}
	if set.For(language.German).Normalize("servus") != "hallo" {
		t.Fatal("german table not loaded")
	}
	if set.For(language.Unknown).Normalize("hi") != "hello" {
		t.Fatal("unknown language should fall back to english")
	}
	if got := set.For(language.Language("fr")).Normalize("hi"); got != "hi" {
		t.Fatalf("missing language should be empty, got %q", got)
	}
	if langs := set.Languages(); len(langs) != 2 {
		t.Fatalf("Languages() = %v", langs)
	}
}

func TestParseUnknownLanguage(t *testing.T) {
	if _, err := Parse([]byte("languages:\n  \"???\": {}\n")); err == nil {
		t.Fatal("expected error for unknown language")
	}
}
