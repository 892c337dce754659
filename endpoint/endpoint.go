// Package endpoint normalizes and classifies network endpoints found in
// recipe documents. Everything here is purely lexical.
package endpoint

import (
	"net/url"
	"regexp"
	"strings"
)

// Type is the coarse kind of a discovered endpoint.
type Type string

const (
	TypeFeed Type = "feed"
	TypeAPI  Type = "api"
	TypeHTML Type = "html"
)

// Source records how an endpoint was discovered.
type Source string

const (
	SourceLiteral Source = "literal" // raw text scan
	SourceFeeds   Source = "feeds"   // the recipe's feeds list
	SourceAttr    Source = "attr"    // a url-named class attribute
)

// Confidence scores per discovery route.
const (
	ConfidenceLiteral    = 0.6
	ConfidenceAttr       = 0.8
	ConfidenceFeed       = 0.95
	ConfidenceTitledFeed = 0.98
)

// Hit is a single discovery event. Context holds the attribute name for
// attribute hits and FeedTitle the title of a titled feed entry; both are
// empty when not applicable.
type Hit struct {
	URL        string  `json:"url"`
	Type       Type    `json:"url_type"`
	Source     Source  `json:"source"`
	Context    string  `json:"context,omitempty"`
	FeedTitle  string  `json:"feed_title,omitempty"`
	RawURL     string  `json:"raw_url"`
	Confidence float64 `json:"confidence"`
}

// Lexical markers, checked against the lowercased URL.
var (
	feedMarkers = []string{"/rss", ".rss", "/atom", ".atom", ".xml"}
	apiMarkers  = []string{"/api/", ".json", "api."}
)

var literalPattern = regexp.MustCompile(`(https?://[^\s'"<>]+|feed://[^\s'"<>]+)`)

// FindURLs returns every URL-shaped substring of text in order of
// appearance.
func FindURLs(text string) []string {
	return literalPattern.FindAllString(text, -1)
}

// Normalize canonicalizes raw URL text. It returns false when nothing is left
// after trimming.
func Normalize(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, `'"`)
	if s == "" {
		return "", false
	}

	// Trailing punctuation picked up from prose or source quoting
	s = strings.TrimRight(s, `)]>.,;"' `)
	if s == "" {
		return "", false
	}

	if rest, ok := strings.CutPrefix(s, "feed://"); ok {
		s = "http://" + rest
	}

	return s, true
}

// Classify assigns an endpoint type. The first matching rule wins: anything
// from a feeds list or a feed-named attribute is a feed, then the URL's
// lexical shape decides.
func Classify(u string, source Source, attrName string) Type {
	if source == SourceFeeds || strings.Contains(strings.ToLower(attrName), "feed") {
		return TypeFeed
	}

	lower := strings.ToLower(u)
	if containsAny(lower, feedMarkers) {
		return TypeFeed
	}
	if containsAny(lower, apiMarkers) {
		return TypeAPI
	}
	return TypeHTML
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// NewHit normalizes raw and builds a classified hit. It returns false when
// raw normalizes to nothing.
func NewHit(raw string, source Source, context, feedTitle string, confidence float64) (Hit, bool) {
	u, ok := Normalize(raw)
	if !ok {
		return Hit{}, false
	}
	return Hit{
		URL:        u,
		Type:       Classify(u, source, context),
		Source:     source,
		Context:    context,
		FeedTitle:  feedTitle,
		RawURL:     raw,
		Confidence: confidence,
	}, true
}

// ScanLiterals runs the literal scanner over already entity-decoded text.
func ScanLiterals(text string) []Hit {
	var hits []Hit
	for _, found := range FindURLs(text) {
		if hit, ok := NewHit(found, SourceLiteral, "", "", ConfidenceLiteral); ok {
			hits = append(hits, hit)
		}
	}
	return hits
}

// Parts are the decomposed components of an endpoint URL.
type Parts struct {
	Scheme string
	Domain string
	Path   string
	Query  string
}

// Split decomposes u. Unparseable URLs keep whatever scheme prefix they have
// and leave the rest empty.
func Split(u string) Parts {
	parsed, err := url.Parse(u)
	if err != nil {
		scheme, _, found := strings.Cut(u, "://")
		if !found {
			scheme = ""
		}
		return Parts{Scheme: strings.ToLower(scheme)}
	}

	domain := parsed.Host
	if parsed.User != nil {
		domain = parsed.User.String() + "@" + domain
	}

	return Parts{
		Scheme: parsed.Scheme,
		Domain: domain,
		Path:   parsed.EscapedPath(),
		Query:  parsed.RawQuery,
	}
}
