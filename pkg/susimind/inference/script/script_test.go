package script

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cognicore/susimind/pkg/susimind/argument"
	"github.com/cognicore/susimind/pkg/susimind/inference"
	"github.com/cognicore/susimind/pkg/susimind/thought"
)

func TestEvalExpression(t *testing.T) {
	e := New(Options{})
	got, err := e.Eval(context.Background(), "6 * 7")
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got != "42" {
		t.Fatalf("got %q, want 42", got)
	}
}

func TestEvalStdout(t *testing.T) {
	e := New(Options{})
	src := `import "fmt"
func greet() { fmt.Print("hello") }
greet()`
	got, err := e.Eval(context.Background(), src)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got != "hello" {
		t.Fatalf("got %q, want hello", got)
	}
}

func TestForbiddenImport(t *testing.T) {
	e := New(Options{})
	if _, err := e.Eval(context.Background(), `import "os"
os.Getenv("HOME")`); err == nil {
		t.Fatal("expected os import to fail")
	}
	for _, p := range e.Packages() {
		if p == "os" || p == "os/exec" || p == "net/http" {
			t.Fatalf("unsafe package %s exposed", p)
		}
	}
}

func TestEvalTimeout(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	e := New(Options{Timeout: 50 * time.Millisecond, Logger: zap.New(core)})
	start := time.Now()
	_, err := e.Eval(context.Background(), `for {}`)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("timeout not enforced")
	}
	if e.Abandoned() != 1 {
		t.Errorf("Abandoned = %d, want 1", e.Abandoned())
	}
	if n := logs.FilterMessage("script timed out, interpreter left running").Len(); n != 1 {
		t.Errorf("timeout warnings = %d, want 1", n)
	}
}

func TestScriptStep(t *testing.T) {
	d := inference.NewDispatcher(inference.Options{})
	New(Options{}).Register(d)

	arg := argument.New().Think(thought.New().AddObservation("name", "ada"))
	got := d.Infer(context.Background(), &inference.Step{
		Kind:       inference.Script,
		Expression: "import \"strings\"\nstrings.ToUpper(\"$name$\")",
	}, arg)
	if v, _ := got.Observation(Result); v != "ADA" {
		t.Fatalf("got %q, want ADA", v)
	}

	bad := d.Infer(context.Background(), &inference.Step{Kind: inference.Script, Expression: "this is not go"}, arg)
	if !bad.IsFailed() {
		t.Fatalf("expected failure, got %s", bad)
	}
}
