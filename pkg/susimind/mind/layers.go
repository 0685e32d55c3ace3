package mind

import (
	"context"

	"github.com/cognicore/susimind/pkg/susimind/argument"
	"github.com/cognicore/susimind/pkg/susimind/thought"
)

// Layers stacks minds. An input is offered to each layer in order until
// one answers; reflections inside answers go through all layers again.
type Layers []*Mind

// React asks each layer in order. The reaction of the last layer is
// returned when no layer answers.
func (l Layers) React(ctx context.Context, q Query) (*Reaction, error) {
	if q.Reflector == nil {
		q.Reflector = l
	}
	var last *Reaction
	for _, m := range l {
		r, err := m.React(ctx, q)
		if err != nil {
			return nil, err
		}
		if r.Answered() {
			return r, nil
		}
		last = r
	}
	if last == nil {
		last = &Reaction{}
	}
	return last, nil
}

// Reflect implements argument.Reflector over all layers. The depth bound
// of the first layer applies.
func (l Layers) Reflect(ctx context.Context, r argument.Reflection) *thought.Thought {
	if len(l) == 0 {
		return nil
	}
	return reflect(ctx, l, l[0].maxDepth, r, l[0].log)
}

// Len is the number of intents over all layers.
func (l Layers) Len() int {
	n := 0
	for _, m := range l {
		n += m.Index().Len()
	}
	return n
}

var (
	_ argument.Reflector = Layers(nil)
	_ Reactor            = Layers(nil)
	_ Reactor            = (*Mind)(nil)
)
