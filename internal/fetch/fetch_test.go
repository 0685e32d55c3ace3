package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

type roundTrip func(*http.Request) *http.Response

func (rt roundTrip) RoundTrip(req *http.Request) (*http.Response, error) {
	return rt(req), nil
}

func TestGetSendsHeaders(t *testing.T) {
	client := &Client{
		UserAgent: "susimind-test",
		HTTPClient: &http.Client{
			Transport: roundTrip(func(req *http.Request) *http.Response {
				if req.Header.Get("Accept") != "application/json" {
					t.Fatalf("missing accept header: %v", req.Header)
				}
				if req.Header.Get("User-Agent") != "susimind-test" {
					t.Fatalf("missing user agent: %v", req.Header)
				}
				h := make(http.Header)
				h.Set("Content-Type", "application/json; charset=utf-8")
				return &http.Response{
					StatusCode: 200,
					Body:       io.NopCloser(strings.NewReader(`{"ok":true}`)),
					Header:     h,
				}
			}),
		},
	}
	resp, err := client.Get(context.Background(), "https://api.test/x", map[string]string{"Accept": "application/json"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(resp.Body) != `{"ok":true}` {
		t.Fatalf("unexpected body %q", resp.Body)
	}
	if resp.ContentType() != "application/json" {
		t.Fatalf("unexpected content type %q", resp.ContentType())
	}
}

func TestGetErrorStatus(t *testing.T) {
	client := &Client{
		HTTPClient: &http.Client{
			Transport: roundTrip(func(*http.Request) *http.Response {
				return &http.Response{
					StatusCode: 503,
					Status:     "503 Service Unavailable",
					Body:       io.NopCloser(strings.NewReader("down")),
					Header:     make(http.Header),
				}
			}),
		},
	}
	if _, err := client.Get(context.Background(), "https://api.test/x", nil); err == nil {
		t.Fatal("expected error for 503")
	}
}

func TestGetBadURL(t *testing.T) {
	client := &Client{}
	if _, err := client.Get(context.Background(), "not a url", nil); err == nil {
		t.Fatal("expected error for bad url")
	}
}

type slowTransport struct{}

func (slowTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	<-req.Context().Done()
	return nil, req.Context().Err()
}

func TestGetTimeout(t *testing.T) {
	client := &Client{Timeout: 20 * time.Millisecond, HTTPClient: &http.Client{Transport: slowTransport{}}}
	start := time.Now()
	_, err := client.Get(context.Background(), "https://api.test/slow", nil)
	if err == nil {
		t.Fatal("expected timeout")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("timeout not applied")
	}
}

func TestWithQuery(t *testing.T) {
	if got := WithQuery("https://s/?q=$query$&f=json", "new york"); got != "https://s/?q=new+york&f=json" {
		t.Fatalf("placeholder: %q", got)
	}
	if got := WithQuery("https://s/?q=", "a&b"); got != "https://s/?q=a%26b" {
		t.Fatalf("append: %q", got)
	}
}

func TestStripJSONP(t *testing.T) {
	cases := map[string]string{
		`cb({"a":1});`:    `{"a":1}`,
		"cb([1,2]);\n":    `[1,2]`,
		`{"a":1}`:         `{"a":1}`,
		`["x(y);"]`:       `["x(y);"]`,
		`{"f":"g(1);"}`:   `{"f":"g(1);"}`,
		`jQuery123_4(1);`: `1`,
	}
	for in, want := range cases {
		if got := string(StripJSONP([]byte(in))); got != want {
			t.Errorf("StripJSONP(%q) = %q, want %q", in, got, want)
		}
	}
}
