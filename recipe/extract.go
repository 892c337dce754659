package recipe

import (
	"strings"

	"github.com/pevans/recipescan/endpoint"
)

// URLFieldMarkers select the attributes whose string value is taken as an
// endpoint. Names are compared case-insensitively.
var URLFieldMarkers = []string{"url"}

// FeedHits turns a resolved feeds value into hits. Each element is either a
// bare URL or a (title, url) pair; anything else is skipped.
func FeedHits(feeds Value) []endpoint.Hit {
	if !feeds.IsSequence() {
		return nil
	}

	var hits []endpoint.Hit
	for _, entry := range feeds.items {
		switch {
		case entry.IsStringish():
			hit, ok := endpoint.NewHit(entry.Text(), endpoint.SourceFeeds, "", "", endpoint.ConfidenceFeed)
			if ok {
				hits = append(hits, hit)
			}

		case entry.IsSequence() && entry.Len() >= 2:
			title, u := entry.items[0], entry.items[1]
			if !u.IsStringish() {
				continue
			}
			hit, ok := endpoint.NewHit(u.Text(), endpoint.SourceFeeds, "", title.Text(), endpoint.ConfidenceTitledFeed)
			if ok {
				hits = append(hits, hit)
			}
		}
	}
	return hits
}

// AttrHits returns a hit for every url-named binding in env holding a string,
// in binding order.
func AttrHits(env *Env) []endpoint.Hit {
	var hits []endpoint.Hit
	for _, name := range env.Names() {
		if !isURLField(name) {
			continue
		}
		v, _ := env.Lookup(name)
		if !v.IsStringish() {
			continue
		}
		if hit, ok := endpoint.NewHit(v.Text(), endpoint.SourceAttr, name, "", endpoint.ConfidenceAttr); ok {
			hits = append(hits, hit)
		}
	}
	return hits
}

func isURLField(name string) bool {
	lower := strings.ToLower(name)
	for _, m := range URLFieldMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
