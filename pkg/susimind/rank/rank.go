// Package rank composes the precedence-ordered score of an intent.
package rank

import (
	"fmt"
	"math"
)

// DefaultUserSubscore is the user factor of an intent nobody rated.
const DefaultUserSubscore = 10

// Factor is one digit of the mixed-radix score. Earlier factors dominate
// every later one.
type Factor struct {
	Name string
	Base int64
}

// Factors in precedence order.
var (
	Language  = Factor{"language", 101}
	Meat      = Factor{"meat", 100}
	Length    = Factor{"length", 1000}
	Dialog    = Factor{"dialog", 3}
	Render    = Factor{"render", 256}
	Inference = Factor{"inference", 6}
	User      = Factor{"user", 1001}
)

// Precedence lists the factors from most to least significant.
var Precedence = []Factor{Language, Meat, Length, Dialog, Render, Inference, User}

// Candidate holds the raw inputs of an intent's score.
type Candidate struct {
	Likelihood      float64 // language affinity in [0,1]
	MeatSize        int     // min meat size over utterances
	Length          int     // min whole-pattern length
	DialogSubscore  int     // min dialog subscore of the actions
	RenderWeight    int     // max render weight of the actions
	InferenceWeight int     // max kind weight of the inference steps
	UserSubscore    int
}

// Breakdown has the clamped value of every factor.
type Breakdown struct {
	Language  int64
	Meat      int64
	Length    int64
	Dialog    int64
	Render    int64
	Inference int64
	User      int64
	Total     int64
}

func (b Breakdown) String() string {
	return fmt.Sprintf("total=%d language=%d meat=%d length=%d dialog=%d render=%d inference=%d user=%d",
		b.Total, b.Language, b.Meat, b.Length, b.Dialog, b.Render, b.Inference, b.User)
}

// Score folds the candidate into one integer. ok is false when the
// language affinity is zero, which excludes the intent.
func Score(c Candidate) (score int64, ok bool) {
	b, ok := ScoreWithBreakdown(c)
	return b.Total, ok
}

// ScoreWithBreakdown is Score with the per-factor values.
func ScoreWithBreakdown(c Candidate) (Breakdown, bool) {
	if c.Likelihood <= 0 {
		return Breakdown{}, false
	}
	b := Breakdown{
		Language:  clamp(int64(math.Round(100*c.Likelihood)), Language),
		Meat:      clamp(int64(c.MeatSize), Meat),
		Length:    clamp(int64(c.Length), Length),
		Dialog:    clamp(int64(2-c.DialogSubscore), Dialog),
		Render:    clamp(int64(c.RenderWeight), Render),
		Inference: clamp(int64(c.InferenceWeight), Inference),
		User:      clamp(int64(c.UserSubscore), User),
	}
	values := []int64{b.Language, b.Meat, b.Length, b.Dialog, b.Render, b.Inference, b.User}
	for i, f := range Precedence {
		b.Total = b.Total*f.Base + values[i]
	}
	return b, true
}

func clamp(v int64, f Factor) int64 {
	if v < 0 {
		return 0
	}
	if v >= f.Base {
		return f.Base - 1
	}
	return v
}
