// Package action describes what an intent does once it has been proven:
// render an answer, open a link, show a map and so on.
package action

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cognicore/susimind/pkg/susimind/internalerr"
)

// RenderType names the kind of output an action produces.
type RenderType string

const (
	Answer      RenderType = "answer"
	Stop        RenderType = "stop"
	Pause       RenderType = "pause"
	Resume      RenderType = "resume"
	Restart     RenderType = "restart"
	Previous    RenderType = "previous"
	Next        RenderType = "next"
	Shuffle     RenderType = "shuffle"
	Table       RenderType = "table"
	Piechart    RenderType = "piechart"
	RSS         RenderType = "rss"
	Websearch   RenderType = "websearch"
	Anchor      RenderType = "anchor"
	Map         RenderType = "map"
	TimerSet    RenderType = "timer_set"
	TimerReset  RenderType = "timer_reset"
	AudioVolume RenderType = "audio_volume"
	AudioRecord RenderType = "audio_record"
	AudioPlay   RenderType = "audio_play"
	VideoRecord RenderType = "video_record"
	VideoPlay   RenderType = "video_play"
	ImageTake   RenderType = "image_take"
	ImageShow   RenderType = "image_show"
	Emotion     RenderType = "emotion"
	ButtonPush  RenderType = "button_push"
	IO          RenderType = "io"
)

// Weight ranks render types for intent scoring. Higher is preferred.
func (r RenderType) Weight() int {
	switch r {
	case Answer:
		return 196
	case Stop, Pause, Resume:
		return 255
	case AudioVolume:
		return 200
	case Websearch:
		return 0
	}
	return 128
}

// requirements lists mandatory attributes per render type. A nil entry means
// the type has none; types missing from the map are unknown.
var requirements = map[RenderType][]string{
	Answer:      nil,
	Stop:        nil,
	Pause:       nil,
	Resume:      nil,
	Restart:     nil,
	Previous:    nil,
	Next:        nil,
	Shuffle:     nil,
	TimerReset:  nil,
	Table:       {"columns"},
	Piechart:    {"total", "key", "value", "unit"},
	RSS:         {"title", "description", "link"},
	Websearch:   {"query"},
	Anchor:      {"link", "text"},
	Map:         {"latitude", "longitude", "zoom"},
	TimerSet:    {"time"},
	AudioVolume: {"volume"},
	AudioPlay:   {"identifier", "identifier_type"},
	VideoPlay:   {"identifier", "identifier_type"},
	ImageShow:   {"url"},
	AudioRecord: nil,
	VideoRecord: nil,
	ImageTake:   nil,
	Emotion:     nil,
	ButtonPush:  nil,
	IO:          nil,
}

var undefined = map[RenderType]bool{
	AudioRecord: true, VideoRecord: true, ImageTake: true, Emotion: true, ButtonPush: true, IO: true,
}

// DialogType tells whether a text ends a conversation or expects a response.
type DialogType int

const (
	DialogAnswer   DialogType = iota // may end the conversation
	DialogQuestion                   // expects the user to answer
	DialogReply                      // responds to an answer of the user
)

func (d DialogType) String() string {
	switch d {
	case DialogQuestion:
		return "question"
	case DialogReply:
		return "reply"
	}
	return "answer"
}

// Subscore is the ordinal used in scoring; answers are lowest.
func (d DialogType) Subscore() int { return int(d) }

// PhraseDialogType classifies a single phrase by its punctuation. A question
// mark near the start does not count.
func PhraseDialogType(phrase string) DialogType {
	if strings.IndexByte(phrase, '?') > 3 {
		if strings.Contains(phrase, ". ") {
			return DialogReply
		}
		return DialogQuestion
	}
	return DialogAnswer
}

// Action is one render instruction. Attributes other than the well-known
// fields are kept in Attrs and inlined when serialized.
type Action struct {
	Type       RenderType
	Select     string
	Phrases    []string
	Expression string
	Mood       string
	Language   string
	Line       int
	Attrs      map[string]string
}

// NewAnswer builds a random-select answer action.
func NewAnswer(phrases ...string) *Action {
	trimmed := make([]string, 0, len(phrases))
	for _, p := range phrases {
		trimmed = append(trimmed, strings.TrimSpace(p))
	}
	return &Action{Type: Answer, Select: "random", Phrases: trimmed}
}

// NewAnchor builds a link action.
func NewAnchor(link, text string) *Action {
	return &Action{Type: Anchor, Attrs: map[string]string{"link": link, "text": text}}
}

// Validate checks the render type is known and mandatory attributes exist.
// Answers without a select default to random.
func (a *Action) Validate() error {
	req, ok := requirements[a.Type]
	if !ok {
		return fmt.Errorf("%w: the action type %q is not known", internalerr.ErrInvalidAction, a.Type)
	}
	if undefined[a.Type] {
		return fmt.Errorf("%w: the action type %q is not yet defined", internalerr.ErrInvalidAction, a.Type)
	}
	if a.Type == Answer && a.Expression == "" {
		if a.Select == "" {
			a.Select = "random"
		}
		if len(a.Phrases) == 0 {
			return fmt.Errorf("%w: the answer action needs phrases", internalerr.ErrInvalidAction)
		}
	}
	if (a.Type == Table || a.Type == RSS) && !a.HasAttr("count") {
		a.SetAttr("count", "-1")
	}
	for _, attr := range req {
		if !a.HasAttr(attr) {
			return fmt.Errorf("%w: the %s action needs a %s attribute", internalerr.ErrInvalidAction, a.Type, attr)
		}
	}
	if a.Type == AudioPlay || a.Type == VideoPlay {
		switch a.Attr("identifier_type") {
		case "url", "youtube":
		case "soundcloud":
			if a.Type == VideoPlay {
				return fmt.Errorf("%w: unknown identifier_type %q", internalerr.ErrInvalidAction, "soundcloud")
			}
		default:
			return fmt.Errorf("%w: unknown identifier_type %q", internalerr.ErrInvalidAction, a.Attr("identifier_type"))
		}
	}
	return nil
}

// Clone returns a deep copy.
func (a *Action) Clone() *Action {
	if a == nil {
		return nil
	}
	c := *a
	c.Phrases = append([]string(nil), a.Phrases...)
	if a.Attrs != nil {
		c.Attrs = make(map[string]string, len(a.Attrs))
		for k, v := range a.Attrs {
			c.Attrs[k] = v
		}
	}
	return &c
}

// PhraseList returns the expression if one is set, otherwise the phrases.
func (a *Action) PhraseList() []string {
	if a.Expression != "" {
		return []string{a.Expression}
	}
	return a.Phrases
}

// DialogType classifies the action. Non-answer actions count as answers;
// otherwise the lowest phrase subscore wins.
func (a *Action) DialogType() DialogType {
	if a.Type != Answer {
		return DialogAnswer
	}
	phrases := a.PhraseList()
	if len(phrases) == 0 {
		return DialogAnswer
	}
	t := DialogReply
	for _, p := range phrases {
		if pt := PhraseDialogType(p); pt < t {
			t = pt
		}
	}
	return t
}

// IsSabta reports an answer that only pretends to be one.
func (a *Action) IsSabta() bool { return a.Mood == "sabta" }

// HasAttr reports whether an extra attribute is set.
func (a *Action) HasAttr(name string) bool {
	_, ok := a.Attrs[name]
	return ok
}

// Attr returns an extra attribute or "".
func (a *Action) Attr(name string) string { return a.Attrs[name] }

// SetAttr sets an extra attribute.
func (a *Action) SetAttr(name, value string) *Action {
	if a.Attrs == nil {
		a.Attrs = make(map[string]string)
	}
	a.Attrs[name] = value
	return a
}

// IntAttr parses an attribute as integer, 0 when absent or malformed.
func (a *Action) IntAttr(name string) int {
	n, _ := strconv.Atoi(a.Attrs[name])
	return n
}

// FromMap builds an action from decoded JSON or YAML and validates it.
func FromMap(m map[string]any) (*Action, error) {
	a := decode(m)
	if a.Type == "" {
		return nil, fmt.Errorf("%w: the action needs a type", internalerr.ErrInvalidAction)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func decode(m map[string]any) *Action {
	a := &Action{}
	for k, v := range m {
		switch k {
		case "type":
			a.Type = RenderType(scalar(v))
		case "select":
			a.Select = scalar(v)
		case "expression":
			a.Expression = scalar(v)
		case "mood":
			a.Mood = scalar(v)
		case "language":
			a.Language = scalar(v)
		case "line":
			a.Line, _ = strconv.Atoi(scalar(v))
		case "phrases":
			switch p := v.(type) {
			case []any:
				for _, x := range p {
					a.Phrases = append(a.Phrases, strings.TrimSpace(scalar(x)))
				}
			case []string:
				a.Phrases = append(a.Phrases, p...)
			default:
				a.Phrases = []string{scalar(v)}
			}
		default:
			a.SetAttr(k, scalar(v))
		}
	}
	return a
}

func scalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []any, map[string]any:
		b, _ := json.Marshal(x)
		return string(b)
	}
	return fmt.Sprint(v)
}

// ToMap flattens the action; used for serialization. An action carrying an
// expression drops its phrases and select.
func (a *Action) ToMap() map[string]any {
	m := make(map[string]any, len(a.Attrs)+4)
	for k, v := range a.Attrs {
		m[k] = v
	}
	m["type"] = string(a.Type)
	if a.Expression != "" {
		m["expression"] = a.Expression
	} else {
		if a.Select != "" {
			m["select"] = a.Select
		}
		if len(a.Phrases) > 0 {
			m["phrases"] = a.Phrases
		}
	}
	if a.Mood != "" {
		m["mood"] = a.Mood
	}
	if a.Language != "" {
		m["language"] = a.Language
	}
	if a.Line > 0 {
		m["line"] = a.Line
	}
	return m
}

// MarshalJSON inlines extra attributes.
func (a *Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.ToMap())
}

// UnmarshalJSON accepts any action previously written by MarshalJSON.
// Validation is skipped so stored actions with filled expressions round trip.
func (a *Action) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*a = *decode(m)
	return nil
}

// String renders the action as compact text for logs.
func (a *Action) String() string {
	keys := make([]string, 0, len(a.Attrs))
	for k := range a.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteString(string(a.Type))
	if a.Expression != "" {
		fmt.Fprintf(&sb, " %q", a.Expression)
	} else if len(a.Phrases) > 0 {
		fmt.Fprintf(&sb, " %q", a.Phrases)
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%q", k, a.Attrs[k])
	}
	return sb.String()
}
