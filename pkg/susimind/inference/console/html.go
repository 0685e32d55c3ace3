package console

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"

	"github.com/cognicore/susimind/pkg/susimind/thought"
)

// htmlRow reduces an HTML page to a row with its title and visible text.
func htmlRow(body []byte) (*thought.Row, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	var title string
	var text []string
	var walk func(n *html.Node, inBody bool)
	walk = func(n *html.Node, inBody bool) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			case "title":
				if title == "" && n.FirstChild != nil {
					title = collapse(n.FirstChild.Data)
				}
				return
			case "body":
				inBody = true
			}
		}
		if n.Type == html.TextNode && inBody {
			if s := collapse(n.Data); s != "" {
				text = append(text, s)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inBody)
		}
	}
	walk(doc, false)
	return thought.NewRow("title", title, "text", strings.Join(text, " ")), nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// looksLikeHTML sniffs a body that was served without a usable content type.
func looksLikeHTML(body []byte) bool {
	t := bytes.TrimSpace(body)
	if len(t) == 0 || t[0] != '<' {
		return false
	}
	head := strings.ToLower(string(t[:min(len(t), 512)]))
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html") || strings.Contains(head, "<body")
}
