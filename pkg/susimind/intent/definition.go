package intent

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/susimind/pkg/susimind/inference"
	"github.com/cognicore/susimind/pkg/susimind/internalerr"
	"github.com/cognicore/susimind/pkg/susimind/pattern"
)

// Phrase is one trigger template as written in a rule file.
type Phrase struct {
	// Type is minor, prior, pattern or regex. Only prior changes behavior;
	// the template itself tells patterns and regexes apart.
	Type       string `yaml:"type,omitempty" json:"type,omitempty"`
	Expression string `yaml:"expression" json:"expression"`
}

func (p Phrase) priority() pattern.Priority {
	if strings.EqualFold(p.Type, "prior") {
		return pattern.Prior
	}
	return pattern.Minor
}

// Definition is an intent as decoded from a rule file. Rule files hold YAML
// or JSON; both decode through yaml.v3.
type Definition struct {
	Phrases     []Phrase          `yaml:"phrases" json:"phrases"`
	Process     []*inference.Step `yaml:"process,omitempty" json:"process,omitempty"`
	Actions     []map[string]any  `yaml:"actions" json:"actions"`
	Keys        []string          `yaml:"keys,omitempty" json:"keys,omitempty"`
	Score       *int              `yaml:"score,omitempty" json:"score,omitempty"`
	Comment     string            `yaml:"comment,omitempty" json:"comment,omitempty"`
	Example     string            `yaml:"example,omitempty" json:"example,omitempty"`
	Expect      string            `yaml:"expect,omitempty" json:"expect,omitempty"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Depth       int               `yaml:"depth,omitempty" json:"depth,omitempty"`
	Line        int               `yaml:"line,omitempty" json:"line,omitempty"`

	// Options expand one definition into one intent per option. Every
	// option shares the phrases of the definition.
	Options []Definition `yaml:"options,omitempty" json:"options,omitempty"`
}

// File is the top-level shape of a rule file.
type File struct {
	Language string       `yaml:"language,omitempty" json:"language,omitempty"`
	Intents  []Definition `yaml:"intents" json:"intents"`
}

// Decode reads a rule file. A bare list of definitions is accepted as well.
func Decode(data []byte) (*File, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("decode rules: %w: %v", internalerr.ErrInvalidInput, err)
	}
	f := &File{}
	if len(node.Content) == 0 {
		return f, nil
	}
	root := node.Content[0]
	var err error
	if root.Kind == yaml.SequenceNode {
		err = root.Decode(&f.Intents)
	} else {
		err = root.Decode(f)
	}
	if err != nil {
		return nil, fmt.Errorf("decode rules: %w: %v", internalerr.ErrInvalidInput, err)
	}
	return f, nil
}

// Expand resolves options into plain definitions.
func (d Definition) Expand() []Definition {
	if len(d.Options) == 0 {
		return []Definition{d}
	}
	out := make([]Definition, 0, len(d.Options))
	for _, o := range d.Options {
		o.Phrases = d.Phrases
		o.Options = nil
		if o.Line == 0 {
			o.Line = d.Line
		}
		out = append(out, o)
	}
	return out
}

// Validate checks the structure without compiling anything.
func (d Definition) Validate() error {
	if len(d.Phrases) == 0 {
		return fmt.Errorf("%w: phrases missing", internalerr.ErrInvalidInput)
	}
	if len(d.Actions) == 0 {
		return fmt.Errorf("%w: actions missing", internalerr.ErrInvalidInput)
	}
	for i, s := range d.Process {
		if s == nil {
			return fmt.Errorf("%w: process step %d is empty", internalerr.ErrInvalidInput, i)
		}
		if err := s.Validate(); err != nil {
			return fmt.Errorf("process step %d: %w", i, err)
		}
	}
	return nil
}
