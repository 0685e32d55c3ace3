// Package inference runs the typed reasoning steps of an intent against an
// argument.
package inference

import (
	"fmt"
	"strings"

	"github.com/cognicore/susimind/pkg/susimind/internalerr"
)

// Kind is the closed set of step types.
type Kind int

const (
	None Kind = iota
	Console
	Flow
	Memory
	Script
	Logic
)

var kindNames = map[Kind]string{
	None:    "none",
	Console: "console",
	Flow:    "flow",
	Memory:  "memory",
	Script:  "script",
	Logic:   "logic",
}

// ParseKind accepts the kind names plus the aliases "javascript" and
// "prolog".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "console":
		return Console, nil
	case "flow":
		return Flow, nil
	case "memory":
		return Memory, nil
	case "script", "javascript":
		return Script, nil
	case "logic", "prolog":
		return Logic, nil
	}
	return None, fmt.Errorf("inference type %q: %w", s, internalerr.ErrInvalidInput)
}

func (k Kind) String() string { return kindNames[k] }

// Weight orders kinds by the amount of work a step does. Intents doing
// heavier work rank higher among otherwise equal intents.
func (k Kind) Weight() int { return int(k) }

// MarshalText writes the kind name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText parses a kind name or alias.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Definition describes an outbound fetch of a console step.
type Definition struct {
	URL           string            `json:"url" yaml:"url"`
	Path          string            `json:"path,omitempty" yaml:"path,omitempty"`
	Headers       map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	HeaderMapping map[string]string `json:"header_mapping,omitempty" yaml:"header_mapping,omitempty"`
}

// Step is one inference of an intent. Console steps carry either an
// expression or a definition.
type Step struct {
	Kind       Kind        `json:"type" yaml:"type"`
	Expression string      `json:"expression,omitempty" yaml:"expression,omitempty"`
	Definition *Definition `json:"definition,omitempty" yaml:"definition,omitempty"`
}

// Validate checks the step is executable.
func (s *Step) Validate() error {
	if s.Kind == None {
		return fmt.Errorf("inference without type: %w", internalerr.ErrInvalidInput)
	}
	if s.Definition != nil {
		if s.Kind != Console {
			return fmt.Errorf("%s inference with definition: %w", s.Kind, internalerr.ErrInvalidInput)
		}
		if s.Definition.URL == "" {
			return fmt.Errorf("console definition without url: %w", internalerr.ErrInvalidInput)
		}
		return nil
	}
	if strings.TrimSpace(s.Expression) == "" {
		return fmt.Errorf("%s inference without expression: %w", s.Kind, internalerr.ErrInvalidInput)
	}
	return nil
}

// String renders the step for logs.
func (s *Step) String() string {
	if s.Definition != nil {
		return s.Kind.String() + ": " + s.Definition.URL
	}
	return s.Kind.String() + ": " + s.Expression
}
