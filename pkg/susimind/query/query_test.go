package query

import (
	"errors"
	"testing"

	"github.com/cognicore/susimind/pkg/susimind/internalerr"
)

func TestParseSimple(t *testing.T) {
	sel, err := Parse("SELECT title AS t, 'meta.lang' AS lang FROM wikidata WHERE query='new york';")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sel.Columns != "title AS t, 'meta.lang' AS lang" {
		t.Errorf("columns = %q", sel.Columns)
	}
	if sel.From != "wikidata" {
		t.Errorf("from = %q", sel.From)
	}
	q, ok := sel.Value("query")
	if !ok || q != "new york" {
		t.Errorf("query = %q, %v", q, ok)
	}
}

func TestParseConjunctionAndEscapes(t *testing.T) {
	sel, err := Parse(`select * from wikipedia where query = 'rock ''n'' roll' and language = "de"`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(sel.Where) != 2 {
		t.Fatalf("expected 2 conditions, got %d", len(sel.Where))
	}
	if q, _ := sel.Value("QUERY"); q != "rock 'n' roll" {
		t.Errorf("query = %q", q)
	}
	if l, _ := sel.Value("language"); l != "de" {
		t.Errorf("language = %q", l)
	}
}

func TestParseSubSelect(t *testing.T) {
	sel, err := Parse("SELECT name FROM (SELECT * FROM people WHERE query='x';) WHERE city IN ('Berlin', 'Paris');")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sel.Sub == nil || sel.Sub.From != "people" {
		t.Fatalf("sub select not parsed: %+v", sel)
	}
	if len(sel.Where) != 1 || sel.Where[0].Column != "city" {
		t.Fatalf("where = %+v", sel.Where)
	}
	in := sel.Where[0].In
	if len(in) != 2 || in[0] != "Berlin" || in[1] != "Paris" {
		t.Errorf("in = %v", in)
	}
	if _, ok := sel.Value("city"); ok {
		t.Error("IN condition must not count as equality")
	}
}

func TestParseKeywordInsideQuotes(t *testing.T) {
	sel, err := Parse("SELECT 'from' AS f FROM svc WHERE query='select from where'")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sel.Columns != "'from' AS f" || sel.From != "svc" {
		t.Errorf("unexpected %+v", sel)
	}
}

func TestParseWithoutWhere(t *testing.T) {
	sel, err := Parse("SELECT * FROM rss")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sel.From != "rss" || len(sel.Where) != 0 {
		t.Errorf("unexpected %+v", sel)
	}
}

func TestParseErrors(t *testing.T) {
	bad := []string{
		"",
		"SELEC * FROM x",
		"SELECT FROM x",
		"SELECT * WHERE a='b'",
		"SELECT * FROM x WHERE a='b",
		"SELECT * FROM x WHERE a IN ('b'",
		"SELECT * FROM x WHERE a ~ 'b'",
		"SELECT * FROM (SELECT * FROM y WHERE q='1' WHERE a IN ('b')",
		"SELECT * FROM x; extra",
	}
	for _, expr := range bad {
		_, err := Parse(expr)
		if err == nil {
			t.Errorf("Parse(%q) should fail", expr)
			continue
		}
		if !errors.Is(err, internalerr.ErrInvalidInput) {
			t.Errorf("Parse(%q) error %v is not ErrInvalidInput", expr, err)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	in := "SELECT name FROM (SELECT * FROM people WHERE query = 'it''s') WHERE city IN ('Berlin');"
	sel, err := Parse(in)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sel.String() != in {
		t.Errorf("String() = %q", sel.String())
	}
	again, err := Parse(sel.String())
	if err != nil || again.String() != in {
		t.Errorf("reparse = %v, %v", again, err)
	}
}
