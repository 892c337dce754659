package discovery

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// Entry is one feed item as it arrived on the wire. Published is the
// source's own timestamp text.
type Entry struct {
	Title     string
	Link      string
	GUID      string
	Author    string
	Published string
	Summary   string
	Content   string
}

// ParseFeed parses an RSS, Atom, or JSON feed. gofeed detects the format
// from the document root and tolerates namespaced elements. Anything it
// cannot parse yields an empty title and no entries.
func ParseFeed(data []byte) (string, []Entry) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil || feed == nil {
		return "", nil
	}

	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}

		// Atom entries without <published> fall back to <updated>
		published := item.Published
		if published == "" {
			published = item.Updated
		}

		var author string
		if item.Author != nil {
			author = item.Author.Name
		}
		if author == "" && item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0 {
			author = item.DublinCoreExt.Creator[0]
		}

		entries = append(entries, Entry{
			Title:     strings.TrimSpace(item.Title),
			Link:      strings.TrimSpace(item.Link),
			GUID:      strings.TrimSpace(item.GUID),
			Author:    strings.TrimSpace(author),
			Published: strings.TrimSpace(published),
			Summary:   strings.TrimSpace(item.Description),
			Content:   item.Content,
		})
	}

	return strings.TrimSpace(feed.Title), entries
}

// HTMLToText returns the text content of an HTML fragment with runs of
// whitespace collapsed to single spaces.
func HTMLToText(html string) string {
	if html == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.Join(strings.Fields(html), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
