// Package console executes console inferences: declarative fetches of
// remote data and SELECT queries against registered services.
package console

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/susimind/internal/fetch"
	"github.com/cognicore/susimind/internal/llm"
	"github.com/cognicore/susimind/pkg/susimind/argument"
	"github.com/cognicore/susimind/pkg/susimind/inference"
	"github.com/cognicore/susimind/pkg/susimind/internalerr"
	"github.com/cognicore/susimind/pkg/susimind/pattern"
	"github.com/cognicore/susimind/pkg/susimind/query"
	"github.com/cognicore/susimind/pkg/susimind/thought"
)

// Built-in service names.
const (
	RSS  = "rss"
	Chat = "chat"
)

// Service is a remote JSON source addressed as "FROM <name>". The query
// value replaces "$query$" in URL or is appended to it.
type Service struct {
	Name    string            `yaml:"name" json:"name"`
	URL     string            `yaml:"url" json:"url"`
	Path    string            `yaml:"path" json:"path"`
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
}

// Options configures a Console.
type Options struct {
	Logger   *zap.Logger
	Timeout  time.Duration
	Services []Service
	// Client overrides the HTTP client, mainly for tests.
	Client *fetch.Client
	// Chat answers "FROM chat" queries; nil disables the service.
	Chat *llm.Client
}

// Console owns the registered services.
type Console struct {
	client   *fetch.Client
	chat     *llm.Client
	services map[string]Service
	log      *zap.Logger
}

// New creates a console.
func New(opts Options) *Console {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Client == nil {
		opts.Client = &fetch.Client{Timeout: opts.Timeout, UserAgent: "susimind"}
	}
	c := &Console{
		client:   opts.Client,
		chat:     opts.Chat,
		services: make(map[string]Service),
		log:      opts.Logger,
	}
	for _, s := range opts.Services {
		c.services[strings.ToLower(s.Name)] = s
	}
	return c
}

// Services lists the registered service names.
func (c *Console) Services() []string {
	names := make([]string, 0, len(c.services))
	for n := range c.services {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Register installs the SELECT procedure and the definition handler.
func (c *Console) Register(d *inference.Dispatcher) {
	d.Procedures(inference.Console).MustAdd(`(?is)(SELECT\s.*)`, func(ctx context.Context, arg *argument.Argument, m *pattern.Matcher) (*thought.Thought, error) {
		sel, err := query.Parse(m.Group(1))
		if err != nil {
			return nil, err
		}
		return c.Select(ctx, arg, sel)
	})
	d.SetDefinitionHandler(c.Fetch)
}

// Fetch executes a definition: load the url, extract the path and map the
// configured response headers onto observations.
func (c *Console) Fetch(ctx context.Context, def inference.Definition) (*thought.Thought, error) {
	resp, err := c.client.Get(ctx, def.URL, def.Headers)
	if err != nil {
		return nil, err
	}
	rows, err := decode(resp, def.Path)
	if err != nil {
		return nil, err
	}
	t := thought.FromRows(rows...)
	t.SetHits(len(rows))
	names := make([]string, 0, len(def.HeaderMapping))
	for h := range def.HeaderMapping {
		names = append(names, h)
	}
	sort.Strings(names)
	for _, h := range names {
		if v := resp.Header.Get(h); v != "" {
			t.AddObservation(def.HeaderMapping[h], v)
		}
	}
	c.log.Debug("console fetch", zap.String("url", def.URL), zap.Int("rows", len(rows)))
	return t, nil
}

// Select runs a parsed query.
func (c *Console) Select(ctx context.Context, arg *argument.Argument, sel *query.Select) (*thought.Thought, error) {
	transfer := thought.ParseTransfer(sel.Columns)
	if sel.Sub != nil {
		inner, err := c.Select(ctx, arg, sel.Sub)
		if err != nil {
			return nil, err
		}
		rows := filter(inner.Rows(), sel.Where)
		t := thought.FromRows(transfer.Conclude(rows)...)
		return t.SetHits(inner.Count()).SetQuery(inner.Query()), nil
	}
	var (
		rows []*thought.Row
		q    string
		err  error
	)
	switch name := strings.ToLower(sel.From); name {
	case RSS:
		q, _ = sel.Value("url")
		rows, err = c.feed(ctx, q)
	case Chat:
		q, _ = sel.Value("query")
		rows, err = c.ask(ctx, q, arg)
	default:
		svc, ok := c.services[name]
		if !ok {
			return nil, fmt.Errorf("console service %q: %w", sel.From, internalerr.ErrNotFound)
		}
		q, _ = sel.Value("query")
		rows, err = c.service(ctx, svc, q)
	}
	if err != nil {
		return nil, err
	}
	t := thought.FromRows(transfer.Conclude(rows)...)
	return t.SetQuery(q).SetHits(len(rows)), nil
}

func (c *Console) service(ctx context.Context, svc Service, q string) ([]*thought.Row, error) {
	headers := svc.Headers
	if len(headers) == 0 {
		headers = map[string]string{"Accept": "application/json"}
	}
	resp, err := c.client.Get(ctx, fetch.WithQuery(svc.URL, q), headers)
	if err != nil {
		return nil, err
	}
	return decode(resp, svc.Path)
}

func (c *Console) feed(ctx context.Context, url string) ([]*thought.Row, error) {
	if url == "" {
		return nil, fmt.Errorf("rss without url: %w", internalerr.ErrInvalidInput)
	}
	resp, err := c.client.Get(ctx, url, map[string]string{"Accept": "application/rss+xml, application/atom+xml, text/xml"})
	if err != nil {
		return nil, err
	}
	return feedRows(resp.Body)
}

// ask forwards the query to the chat model with the observations of the
// melded argument as facts.
func (c *Console) ask(ctx context.Context, q string, arg *argument.Argument) ([]*thought.Row, error) {
	if c.chat == nil {
		return nil, fmt.Errorf("chat service not configured: %w", internalerr.ErrNotFound)
	}
	var facts []llm.Fact
	if melded := arg.Mindmeld(true); melded.Count() > 0 {
		row := melded.Rows()[0]
		for _, k := range row.Keys() {
			if v := row.String(k); v != "" {
				facts = append(facts, llm.Fact{Name: k, Value: v})
			}
		}
	}
	answer, err := c.chat.Answer(ctx, q, facts)
	if err != nil {
		return nil, err
	}
	return []*thought.Row{thought.NewRow(Bang, strings.TrimSpace(answer))}, nil
}

// decode turns a response into rows: HTML pages become a title/text row,
// everything else is read as JSON, with JSONP wrappers removed.
func decode(resp *fetch.Response, path string) ([]*thought.Row, error) {
	ct := resp.ContentType()
	if ct == "text/html" || ct == "application/xhtml+xml" || (ct != "application/json" && looksLikeHTML(resp.Body)) {
		row, err := htmlRow(resp.Body)
		if err != nil {
			return nil, err
		}
		return []*thought.Row{row}, nil
	}
	return Extract(fetch.StripJSONP(resp.Body), path)
}

// filter keeps rows satisfying every condition.
func filter(rows []*thought.Row, where []query.Condition) []*thought.Row {
	out := make([]*thought.Row, 0, len(rows))
	for _, r := range rows {
		if matches(r, where) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r *thought.Row, where []query.Condition) bool {
	for _, c := range where {
		if !r.Has(c.Column) {
			return false
		}
		v := r.String(c.Column)
		if c.In == nil {
			if v != c.Value {
				return false
			}
			continue
		}
		found := false
		for _, in := range c.In {
			if in == v {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
