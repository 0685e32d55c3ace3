package console

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/cognicore/susimind/pkg/susimind/thought"
)

type rssDocument struct {
	Channel struct {
		Title string    `xml:"title"`
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
	// Atom feeds
	Entries []atomEntry `xml:"entry"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	GUID        string `xml:"guid"`
}

type atomEntry struct {
	Title   string `xml:"title"`
	Summary string `xml:"summary"`
	Updated string `xml:"updated"`
	ID      string `xml:"id"`
	Links   []struct {
		Href string `xml:"href,attr"`
	} `xml:"link"`
}

// feedRows turns an RSS 2.0 or Atom document into one row per item.
func feedRows(body []byte) ([]*thought.Row, error) {
	var doc rssDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	rows := make([]*thought.Row, 0, len(doc.Channel.Items)+len(doc.Entries))
	for _, it := range doc.Channel.Items {
		rows = append(rows, thought.NewRow(
			"title", strings.TrimSpace(it.Title),
			"link", strings.TrimSpace(it.Link),
			"description", strings.TrimSpace(it.Description),
			"pubDate", strings.TrimSpace(it.PubDate),
			"guid", strings.TrimSpace(it.GUID),
		))
	}
	for _, e := range doc.Entries {
		link := ""
		if len(e.Links) > 0 {
			link = e.Links[0].Href
		}
		rows = append(rows, thought.NewRow(
			"title", strings.TrimSpace(e.Title),
			"link", link,
			"description", strings.TrimSpace(e.Summary),
			"pubDate", strings.TrimSpace(e.Updated),
			"guid", strings.TrimSpace(e.ID),
		))
	}
	return rows, nil
}
