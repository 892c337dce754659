// Package recipe statically analyzes periodical recipe documents. Recipes are
// never executed: attribute values are recovered by constant folding over the
// syntax tree, and only a small whitelist of expression forms is understood.
package recipe

import (
	"html"

	"github.com/pevans/recipescan/endpoint"
	"github.com/pevans/recipescan/pyast"
)

// Metadata is the descriptive data of a recipe. Every field is nil when it
// could not be resolved.
type Metadata struct {
	Title             *string `json:"title"`
	Author            *string `json:"author"`
	Description       *string `json:"description"`
	Language          *string `json:"language"`
	PublicationType   *string `json:"publication_type"`
	NeedsSubscription *string `json:"needs_subscription"`
	ClassName         *string `json:"class_name"`
}

// metadataFields maps recipe attribute names to the metadata field they
// fill.
var metadataFields = []struct {
	attr  string
	field func(*Metadata) **string
}{
	{"title", func(m *Metadata) **string { return &m.Title }},
	{"__author__", func(m *Metadata) **string { return &m.Author }},
	{"description", func(m *Metadata) **string { return &m.Description }},
	{"language", func(m *Metadata) **string { return &m.Language }},
	{"publication_type", func(m *Metadata) **string { return &m.PublicationType }},
	{"needs_subscription", func(m *Metadata) **string { return &m.NeedsSubscription }},
}

// FeedsField is the attribute holding the recipe's feed list.
const FeedsField = "feeds"

// Analyze extracts metadata and endpoint hits from a raw recipe document.
//
// The literal scanner always runs, so a document that fails to parse still
// yields its literal hits together with the parse error and empty metadata.
// Hits are ordered literal, feeds, then attribute hits.
func Analyze(raw []byte) (Metadata, []endpoint.Hit, error) {
	text := html.UnescapeString(DecodeText(raw))
	hits := endpoint.ScanLiterals(text)

	src := []byte(text)
	tree, err := pyast.Parse(src)
	if err != nil {
		return Metadata{}, hits, err
	}
	defer tree.Close()

	root := tree.Root()
	cls := FindRecipeClass(root, src)
	if cls == nil {
		return Metadata{}, hits, nil
	}

	consts := CollectConstants(root, src)
	_, own := ExtractAttributes(cls, src, consts)

	var meta Metadata
	name := ClassName(cls, src)
	meta.ClassName = &name
	for _, f := range metadataFields {
		if v, ok := own.Lookup(f.attr); ok {
			s := v.Text()
			*f.field(&meta) = &s
		}
	}

	if feeds, ok := own.Lookup(FeedsField); ok {
		hits = append(hits, FeedHits(feeds)...)
	}
	hits = append(hits, AttrHits(own)...)

	return meta, hits, nil
}
