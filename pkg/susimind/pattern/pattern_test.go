package pattern

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/cognicore/susimind/pkg/susimind/internalerr"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Hello   World  ", "hello world"},
		{"What's up?", "what is up"},
		{"It's late!!", "it is late"},
		{"one,two;three#four", "one two three four"},
		{"really ?! .", "really"},
		{"", ""},
		{"(?:a|b)", "(?:a|b)"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"What's the weather like today?",
		"  it's   a  test . ! ",
		"hash#tag, list; here...",
		"MIXED Case Input?!?!",
		"what's it's what's",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"*", "(.*)"},
		{"", "(.*)"},
		{"i feel *", "i feel (.*)"},
		{"call + now", `call (\S+) now`},
		{"hi|hello *", "(?:hi)|(?:hello (.*))"},
		{"*day", "(.*) ?day"},
		{"what.is", `what\.is`},
	}
	for _, tt := range tests {
		if got := Translate(tt.in); got != tt.want {
			t.Errorf("Translate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsRegularExpression(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"i feel *", false},
		{"hello world", false},
		{"what is .*", true},
		{`\d+ apples`, true},
		{"^start end$", true},
		{"(a|b)", true},
		{"say (something) please", true},
		{"smile :-)", false},
	}
	for _, tt := range tests {
		if got := IsRegularExpression(tt.in); got != tt.want {
			t.Errorf("IsRegularExpression(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCompileLiteralMatchesItself(t *testing.T) {
	templates := []string{
		"Hello World",
		"what's the time?",
		"How are you, my friend!",
		"1+1 equals?",
		"c.o.m",
	}
	for _, tmpl := range templates {
		u, err := Compile(tmpl, Minor, 0)
		if err != nil {
			t.Fatalf("Compile(%q): %v", tmpl, err)
		}
		if _, ok := u.Match(context.Background(), Normalize(tmpl)); !ok {
			t.Errorf("template %q does not match its normalized form %q (re=%s)", tmpl, Normalize(tmpl), u.Pattern())
		}
	}
}

func TestCompileWildcards(t *testing.T) {
	u, err := Compile("I feel *", Minor, 3)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if u.Kind() != Wildcard {
		t.Fatalf("expected wildcard kind, got %s", u.Kind())
	}
	if !u.HasCaptureGroup() {
		t.Fatal("expected capture group")
	}
	m, ok := u.Match(context.Background(), Normalize("I feel funny"))
	if !ok {
		t.Fatal("expected match")
	}
	if m.Group(1) != "funny" {
		t.Fatalf("group 1 = %q, want funny", m.Group(1))
	}
	if m.GroupCount() != 1 {
		t.Fatalf("group count = %d", m.GroupCount())
	}
	if _, ok := u.Match(context.Background(), "you feel funny"); ok {
		t.Fatal("unexpected match")
	}
}

func TestCompileCatchOne(t *testing.T) {
	u := MustCompile("call + now")
	if _, ok := u.Match(context.Background(), "call bob now"); !ok {
		t.Fatal("expected single word to match")
	}
	if _, ok := u.Match(context.Background(), "call bob smith now"); ok {
		t.Fatal("+ must match exactly one word")
	}
}

func TestCompileRegex(t *testing.T) {
	u, err := Compile(`what is (\d+) plus (\d+)`, Prior, 0)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if u.Kind() != Regex || u.MeatSize() != 0 {
		t.Fatalf("expected regex with no meat, got %s meat=%d", u.Kind(), u.MeatSize())
	}
	if u.Priority() != Prior {
		t.Fatal("priority lost")
	}
	m, ok := u.Match(context.Background(), "What is 2 plus 3")
	if !ok {
		t.Fatal("regex should match case-insensitively")
	}
	if m.Group(1) != "2" || m.Group(2) != "3" {
		t.Fatalf("groups = %v", m.Groups())
	}
	if got, want := u.Tokens(), []string{"what", "is", "plus"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("regex tokens = %v, want %v", got, want)
	}
}

func TestRegexTokensSkipSyntax(t *testing.T) {
	tests := []struct {
		template string
		want     []string
	}{
		{`^what (is|are) (.*)$`, []string{"what"}},
		{`^(\d+)$`, nil},
		{`^Who Wrote (.+)\?$`, []string{"who", "wrote"}},
	}
	for _, tt := range tests {
		u := MustCompile(tt.template)
		if u.Kind() != Regex {
			t.Fatalf("%s: kind = %s", tt.template, u.Kind())
		}
		got := u.Tokens()
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: tokens = %v, want %v", tt.template, got, tt.want)
		}
	}
}

func TestGluedWildcardKeepsLiteral(t *testing.T) {
	got := MustCompile("you are funny* today").Tokens()
	want := []string{"you", "are", "funny", "today"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
	if got := MustCompile("+ly").Tokens(); !reflect.DeepEqual(got, []string{"ly"}) {
		t.Fatalf("tokens = %v, want [ly]", got)
	}
}

func TestCompileInvalid(t *testing.T) {
	_, err := Compile(`^broken (unclosed$`, Minor, 12)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, internalerr.ErrPattern) {
		t.Fatalf("expected ErrPattern, got %v", err)
	}
	var pe *PatternError
	if !errors.As(err, &pe) || pe.Line != 12 {
		t.Fatalf("expected PatternError with line, got %#v", err)
	}
}

func TestMeatSizeAndTokens(t *testing.T) {
	u := MustCompile("tell me a joke about *")
	if got := u.MeatSize(); got != len("tell me a joke about ") {
		t.Fatalf("meat = %d", got)
	}
	want := []string{"tell", "me", "joke", "about"}
	got := u.Tokens()
	if len(got) != len(want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tokens = %v, want %v", got, want)
		}
	}
}

func TestCatchAll(t *testing.T) {
	for _, tmpl := range []string{"*", "", "(.*)"} {
		u, err := Compile(tmpl, Minor, 0)
		if err != nil {
			t.Fatalf("Compile(%q): %v", tmpl, err)
		}
		if !u.CatchAll() {
			t.Errorf("%q should be catch-all", tmpl)
		}
		if _, ok := u.Match(context.Background(), "anything at all"); !ok {
			t.Errorf("%q should match anything", tmpl)
		}
	}
	if MustCompile("hi *").CatchAll() {
		t.Fatal("hi * is not catch-all")
	}
}

func TestMatchCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := MustCompile("*").Match(ctx, "x"); ok {
		t.Fatal("cancelled context must not match")
	}
}

func TestSetMatchTimeout(t *testing.T) {
	defer SetMatchTimeout(0)
	SetMatchTimeout(5 * DefaultMatchTimeout)
	if MatchTimeout() != 5*DefaultMatchTimeout {
		t.Fatalf("timeout = %v", MatchTimeout())
	}
	SetMatchTimeout(-1)
	if MatchTimeout() != DefaultMatchTimeout {
		t.Fatal("non-positive should restore default")
	}
}

func TestMatcherNil(t *testing.T) {
	var m *Matcher
	if m.Group(0) != "" || m.GroupCount() != 0 || m.Groups() != nil {
		t.Fatal("nil matcher should be empty")
	}
	m = NewMatcher("a b", "b")
	if m.Group(1) != "b" || m.Group(5) != "" {
		t.Fatal("unexpected groups")
	}
}
