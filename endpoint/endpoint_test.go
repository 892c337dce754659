package endpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNormalize covers trimming and scheme rewriting
func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"bare", "https://example.com/a", "https://example.com/a", true},
		{"surrounding whitespace", "  https://example.com/a \n", "https://example.com/a", true},
		{"surrounding quotes", `"https://example.com/a"`, "https://example.com/a", true},
		{"trailing prose punctuation", "https://example.com/a).", "https://example.com/a", true},
		{"trailing quote and bracket", `https://example.com/a"]`, "https://example.com/a", true},
		{"trailing semicolon and comma", "https://example.com/a;,", "https://example.com/a", true},
		{"feed scheme", "feed://x.com/rss", "http://x.com/rss", true},
		{"empty", "   ", "", false},
		{"only quotes", `''`, "", false},
		{"only punctuation", `).`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestClassify covers each rule in order
func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		source   Source
		attrName string
		want     Type
	}{
		{"rss extension", "https://example.com/feed.rss", SourceLiteral, "", TypeFeed},
		{"atom path", "https://example.com/atom/all", SourceLiteral, "", TypeFeed},
		{"xml", "https://example.com/sitemap.XML", SourceLiteral, "", TypeFeed},
		{"api json", "https://example.com/api/v2/items.json", SourceLiteral, "", TypeAPI},
		{"api host", "https://api.example.com/items", SourceLiteral, "", TypeAPI},
		{"html", "https://example.com/index.html", SourceLiteral, "", TypeHTML},
		{"feeds source wins", "https://example.com/index.html", SourceFeeds, "", TypeFeed},
		{"feed-named attribute wins", "https://example.com/api/x.json", SourceAttr, "FEED_URL", TypeFeed},
		{"url attribute uses shape", "https://example.com/", SourceAttr, "INDEX_URL", TypeHTML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.url, tt.source, tt.attrName))
		})
	}
}

// TestFindURLs verifies scheme matching and terminators
func TestFindURLs(t *testing.T) {
	text := `see <a href="http://a.com/x">here</a> and 'https://b.com/y?z=1' or feed://c.com/rss
	but not ftp://d.com/`

	got := FindURLs(text)
	assert.Equal(t, []string{"http://a.com/x", "https://b.com/y?z=1", "feed://c.com/rss"}, got)
}

// TestScanLiterals verifies literal hits are normalized and classified
func TestScanLiterals(t *testing.T) {
	hits := ScanLiterals("index_url = 'https://ex.com/news).' # and feed://ex.com/rss")

	require.Len(t, hits, 2)
	assert.Equal(t, Hit{
		URL:        "https://ex.com/news",
		Type:       TypeHTML,
		Source:     SourceLiteral,
		RawURL:     "https://ex.com/news).",
		Confidence: ConfidenceLiteral,
	}, hits[0])
	assert.Equal(t, "http://ex.com/rss", hits[1].URL)
	assert.Equal(t, TypeFeed, hits[1].Type)
}

// TestSplit verifies URL decomposition
func TestSplit(t *testing.T) {
	p := Split("https://user@ex.com:8080/a/b%20c?x=1&y=2#frag")
	assert.Equal(t, "https", p.Scheme)
	assert.Equal(t, "user@ex.com:8080", p.Domain)
	assert.Equal(t, "/a/b%20c", p.Path)
	assert.Equal(t, "x=1&y=2", p.Query)

	bad := Split("http://ex.com/%zz")
	assert.Equal(t, "http", bad.Scheme)
	assert.Empty(t, bad.Domain)
}
