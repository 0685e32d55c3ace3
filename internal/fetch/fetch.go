package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds a request when the client has none configured.
const DefaultTimeout = 10 * time.Second

// maxBody caps the bytes read from one response.
const maxBody = 8 << 20

// Client performs outbound GET requests for console inferences.
type Client struct {
	Timeout   time.Duration
	UserAgent string

	HTTPClient *http.Client
}

// Response is a fetched body with its headers.
type Response struct {
	Body   []byte
	Header http.Header
}

// ContentType returns the media type without parameters.
func (r *Response) ContentType() string {
	ct := r.Header.Get("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// Get loads url with the given request headers. The call is bounded by the
// client timeout and by ctx.
func (c *Client) Get(ctx context.Context, rawURL string, headers map[string]string) (*Response, error) {
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, fmt.Errorf("fetch: bad url %q: %w", rawURL, err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch: %s returned %s", rawURL, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, err
	}
	return &Response{Body: body, Header: resp.Header}, nil
}

// WithQuery puts the URL-encoded query in place of "$query$", or appends it
// when the service url has no placeholder.
func WithQuery(serviceURL, query string) string {
	encoded := url.QueryEscape(query)
	if i := strings.Index(serviceURL, "$query$"); i >= 0 {
		return serviceURL[:i] + encoded + serviceURL[i+len("$query$"):]
	}
	return serviceURL + encoded
}

// StripJSONP removes a "callback(...);" wrapper around a JSON body.
func StripJSONP(b []byte) []byte {
	t := bytes.TrimRight(b, " \t\r\n")
	if len(t) < 3 || t[len(t)-1] != ';' || t[len(t)-2] != ')' {
		return b
	}
	open := bytes.IndexByte(t, '(')
	if open < 0 {
		return b
	}
	head := bytes.TrimSpace(t[:open])
	if len(head) == 0 || bytes.ContainsAny(head, "{[\"") {
		return b
	}
	return t[open+1 : len(t)-2]
}

func (c *Client) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: c.timeout()}
}
