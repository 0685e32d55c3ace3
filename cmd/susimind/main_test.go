package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cognicore/susimind/pkg/susimind"
	"github.com/cognicore/susimind/pkg/susimind/config"
)

const testRules = `
- phrases: [{expression: "hello"}]
  actions: [{type: answer, phrases: ["hi there"]}]
  example: hello
  expect: hi
- phrases: [{expression: "my name is *"}]
  actions: [{type: answer, phrases: ["nice to meet you $1$"]}]
`

func writeRules(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "en", "basics.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(testRules), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

// run executes the root command with args and returns its output.
func run(t *testing.T, in string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(in))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAskCommand(t *testing.T) {
	rules := writeRules(t)
	memory := filepath.Join(t.TempDir(), "memory")

	out, err := run(t, "", "--rules", rules, "--memory-path", memory, "ask", "my", "name", "is", "ada")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !strings.Contains(out, "nice to meet you ada") {
		t.Fatalf("unexpected answer %q", out)
	}

	out, err = run(t, "", "--rules", rules, "--memory-path", memory, "memories", "--client", "cli")
	if err != nil {
		t.Fatalf("memories: %v", err)
	}
	if !strings.Contains(out, "> my name is ada") || !strings.Contains(out, "< nice to meet you ada") {
		t.Fatalf("turn not remembered: %q", out)
	}
}

func TestAskNoAnswer(t *testing.T) {
	out, err := run(t, "", "--rules", writeRules(t), "--memory", "memory", "ask", "what is the time")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !strings.Contains(out, "(no answer)") {
		t.Fatalf("expected no answer, got %q", out)
	}
}

func TestChatSession(t *testing.T) {
	cfg := config.Default()
	cfg.Rules = []string{writeRules(t)}
	cfg.Memory = config.Memory{Backend: config.BackendMemory}
	cfg.Logic.Engine = config.LogicNone
	engine, err := susimind.New(context.Background(), susimind.Options{Config: cfg})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer engine.Close()

	var out bytes.Buffer
	in := strings.NewReader("hello\n\nmy name is bob\nwhat now\n")
	if err := chat(context.Background(), engine, "session", false, in, &out); err != nil {
		t.Fatalf("chat: %v", err)
	}
	got := out.String()
	for _, want := range []string{"conversation session", "hi there", "nice to meet you bob", "(no answer)", "Goodbye!"} {
		if !strings.Contains(got, want) {
			t.Errorf("output lacks %q:\n%s", want, got)
		}
	}
	if n := len(engine.Memory().Unanswered()); n != 1 {
		t.Errorf("unanswered = %d, want 1", n)
	}
}

func TestUnansweredDrafts(t *testing.T) {
	rules := writeRules(t)
	memory := filepath.Join(t.TempDir(), "memory")
	for _, q := range []string{"how tall is the tower", "how tall is the tower", "hello"} {
		if _, err := run(t, "", "--rules", rules, "--memory-path", memory, "ask", q); err != nil {
			t.Fatalf("ask %q: %v", q, err)
		}
	}

	drafts := filepath.Join(t.TempDir(), "drafts.yaml")
	out, err := run(t, "", "--rules", rules, "--memory-path", memory, "unanswered", "--min", "1", "--drafts", drafts)
	if err != nil {
		t.Fatalf("unanswered: %v", err)
	}
	if !strings.Contains(out, "how tall is the tower") {
		t.Fatalf("unanswered query missing: %q", out)
	}
	if strings.Contains(out, "hello") {
		t.Fatalf("answered query listed: %q", out)
	}
	data, err := os.ReadFile(drafts)
	if err != nil {
		t.Fatalf("read drafts: %v", err)
	}
	if !strings.Contains(string(data), "how tall is the tower") {
		t.Fatalf("drafts lack the query:\n%s", data)
	}
}

func TestSelfTestCommand(t *testing.T) {
	out, err := run(t, "", "--rules", writeRules(t), "--memory", "memory", "selftest")
	if err != nil {
		t.Fatalf("selftest: %v\n%s", err, out)
	}
	if !strings.Contains(out, "1 checks, 0 failed") {
		t.Fatalf("unexpected report %q", out)
	}
}

func TestConfigFlags(t *testing.T) {
	opts := &globalOptions{backend: "memory", language: "de", rules: []string{"a", "b"}}
	cfg, err := opts.loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Memory.Backend != config.BackendMemory || cfg.Language != "de" || len(cfg.Rules) != 2 {
		t.Fatalf("flags not applied: %+v", cfg)
	}

	opts = &globalOptions{backend: "tape"}
	if _, err := opts.loadConfig(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
