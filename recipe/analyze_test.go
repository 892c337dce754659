package recipe

import (
	"testing"

	"github.com/pevans/recipescan/endpoint"
	"github.com/pevans/recipescan/pyast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDoc(t *testing.T, doc string) (*pyast.Tree, []byte) {
	t.Helper()
	src := []byte(doc)
	tree, err := pyast.Parse(src)
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	return tree, src
}

func hitsFrom(hits []endpoint.Hit, source endpoint.Source) []endpoint.Hit {
	var out []endpoint.Hit
	for _, h := range hits {
		if h.Source == source {
			out = append(out, h)
		}
	}
	return out
}

// TestEnv_Immutable verifies With never changes the receiver
func TestEnv_Immutable(t *testing.T) {
	base := (*Env)(nil).With("a", IntValue(1))
	child := base.With("a", IntValue(2)).With("b", IntValue(3))

	v, ok := base.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "1", v.PyRepr())
	_, ok = base.Lookup("b")
	assert.False(t, ok)

	v, _ = child.Lookup("a")
	assert.Equal(t, "2", v.PyRepr())
	assert.Equal(t, []string{"a", "b"}, child.Names())

	assert.Same(t, base, base.With("c", UnknownValue), "unknown values are not bound")
}

// TestCollectConstants verifies ordering and forward references
func TestCollectConstants(t *testing.T) {
	tree, src := parseDoc(t, `
A = "x"
B = A + "y"
C = D
D = "z"
E = F = "chained"
G, H = "g", "h"
I: str = "annotated"
J = compute()
A = "rebound"

def helper():
    K = "inner"
`)

	env := CollectConstants(tree.Root(), src)
	assert.Equal(t, []string{"A", "B", "D"}, env.Names())

	b, _ := env.Lookup("B")
	assert.Equal(t, "xy", b.Str())

	a, _ := env.Lookup("A")
	assert.Equal(t, "rebound", a.Str())

	_, ok := env.Lookup("C")
	assert.False(t, ok, "forward references stay unresolved")
}

// TestFindRecipeClass verifies base matching by simple and dotted name
func TestFindRecipeClass(t *testing.T) {
	tree, src := parseDoc(t, `
class Helper(object):
    pass

@decorator
class First(web.feeds.news.BasicNewsRecipe):
    pass

class Second(BasicNewsRecipe):
    pass
`)

	cls := FindRecipeClass(tree.Root(), src)
	require.NotNil(t, cls)
	assert.Equal(t, "First", ClassName(cls, src))
}

// TestFindRecipeClass_None verifies documents without a recipe class
func TestFindRecipeClass_None(t *testing.T) {
	tree, src := parseDoc(t, `
class Helper(object):
    pass

def BasicNewsRecipe():
    pass

class Meta(metaclass=BasicNewsRecipe):
    pass
`)

	assert.Nil(t, FindRecipeClass(tree.Root(), src))
}

// TestExtractAttributes verifies class body folding
func TestExtractAttributes(t *testing.T) {
	tree, src := parseDoc(t, `
BASE = "https://ex.com"

class R(AutomaticNewsRecipe):
    """Docstring."""
    title = "Example"
    language: str = "en"
    index = BASE + "/index"
    feeds = [("Top", BASE + "/top.rss")]
    feeds += [BASE + "/more.rss"]
    feeds += "not a list"
    missing += ["x"]
    title = unknown_call()
    tags = ("a",)
    tags += ("b",)

    def parse_index(self):
        title = "ignored"
`)

	consts := CollectConstants(tree.Root(), src)
	cls := FindRecipeClass(tree.Root(), src)
	require.NotNil(t, cls)

	scope, own := ExtractAttributes(cls, src, consts)

	assert.Equal(t, []string{"title", "language", "index", "feeds", "tags"}, own.Names())
	assert.Equal(t, []string{"BASE", "title", "language", "index", "feeds", "tags"}, scope.Names())

	title, _ := own.Lookup("title")
	assert.Equal(t, "Example", title.Str(), "an unresolved reassignment keeps the earlier value")

	index, _ := scope.Lookup("index")
	assert.Equal(t, "https://ex.com/index", index.Str())

	feeds, _ := scope.Lookup("feeds")
	assert.Equal(t, `[('Top', 'https://ex.com/top.rss'), 'https://ex.com/more.rss']`, feeds.PyRepr())

	tags, _ := scope.Lookup("tags")
	assert.Equal(t, `('a', 'b')`, tags.PyRepr())

	_, ok := scope.Lookup("missing")
	assert.False(t, ok)
}

// TestFeedHits verifies bare and titled feed entries
func TestFeedHits(t *testing.T) {
	feeds := ListValue(
		StringValue("http://ex.com/a"),
		TupleValue(StringValue("Tech"), StringValue("http://ex.com/tech.rss")),
		TupleValue(BytesValue("B\xff"), BytesValue("http://ex.com/b")),
		ListValue(StringValue("Extra"), StringValue("http://ex.com/c"), StringValue("ignored")),
		TupleValue(StringValue("only title")),
		TupleValue(StringValue("Bad"), IntValue(3)),
		IntValue(7),
		StringValue("   "),
	)

	hits := FeedHits(feeds)
	require.Len(t, hits, 4)

	assert.Equal(t, endpoint.Hit{
		URL: "http://ex.com/a", Type: endpoint.TypeFeed, Source: endpoint.SourceFeeds,
		RawURL: "http://ex.com/a", Confidence: 0.95,
	}, hits[0])
	assert.Equal(t, endpoint.Hit{
		URL: "http://ex.com/tech.rss", Type: endpoint.TypeFeed, Source: endpoint.SourceFeeds,
		FeedTitle: "Tech", RawURL: "http://ex.com/tech.rss", Confidence: 0.98,
	}, hits[1])
	assert.Equal(t, "B�", hits[2].FeedTitle)
	assert.Equal(t, "Extra", hits[3].FeedTitle)

	assert.Empty(t, FeedHits(StringValue("http://ex.com/a")), "a bare string is not a feed list")
	assert.Empty(t, FeedHits(UnknownValue))
}

// TestAttrHits verifies url-named string attributes
func TestAttrHits(t *testing.T) {
	env := (*Env)(nil).
		With("INDEX_URL", StringValue("https://ex.com/")).
		With("feed_url", StringValue("https://ex.com/updates")).
		With("api_Url", StringValue("https://api.ex.com/v1")).
		With("url_list", ListValue(StringValue("https://ex.com/x"))).
		With("masthead", StringValue("https://ex.com/logo.png")).
		With("blank_url", StringValue("''"))

	hits := AttrHits(env)
	require.Len(t, hits, 3)

	assert.Equal(t, "INDEX_URL", hits[0].Context)
	assert.Equal(t, endpoint.TypeHTML, hits[0].Type)
	assert.Equal(t, endpoint.SourceAttr, hits[0].Source)
	assert.Equal(t, 0.8, hits[0].Confidence)

	assert.Equal(t, "feed_url", hits[1].Context)
	assert.Equal(t, endpoint.TypeFeed, hits[1].Type, "feed-named attributes are feeds")

	assert.Equal(t, endpoint.TypeAPI, hits[2].Type)
}

// TestAnalyze_EndToEnd verifies metadata and feed extraction together
func TestAnalyze_EndToEnd(t *testing.T) {
	doc := `
from calibre.web.feeds.news import BasicNewsRecipe

class Example(BasicNewsRecipe):
    title = "Example"
    feeds = [("Tech", "http://ex.com/tech.rss")]
`

	meta, hits, err := Analyze([]byte(doc))
	require.NoError(t, err)

	require.NotNil(t, meta.Title)
	assert.Equal(t, "Example", *meta.Title)
	require.NotNil(t, meta.ClassName)
	assert.Equal(t, "Example", *meta.ClassName)
	assert.Nil(t, meta.Author)
	assert.Nil(t, meta.Language)

	feeds := hitsFrom(hits, endpoint.SourceFeeds)
	require.Len(t, feeds, 1)
	assert.Equal(t, endpoint.Hit{
		URL:        "http://ex.com/tech.rss",
		Type:       endpoint.TypeFeed,
		Source:     endpoint.SourceFeeds,
		FeedTitle:  "Tech",
		RawURL:     "http://ex.com/tech.rss",
		Confidence: 0.98,
	}, feeds[0])

	literals := hitsFrom(hits, endpoint.SourceLiteral)
	require.Len(t, literals, 1)
	assert.Equal(t, "http://ex.com/tech.rss", literals[0].URL)
	assert.Equal(t, endpoint.SourceLiteral, hits[0].Source, "literal hits come first")
}

// TestAnalyze_Metadata verifies every metadata field and stringification
func TestAnalyze_Metadata(t *testing.T) {
	doc := `
AUTHOR = b"Jane"

class Paper(CalibrePeriodical):
    title = u"Paper"
    __author__ = AUTHOR
    description = "Daily " + "news"
    language = "en"
    publication_type = "newspaper"
    needs_subscription = True
    INDEX = "https://paper.example/api/v1/index.json"
`

	meta, hits, err := Analyze([]byte(doc))
	require.NoError(t, err)

	fields := map[string]*string{
		"Paper":      meta.Title,
		"Jane":       meta.Author,
		"Daily news": meta.Description,
		"en":         meta.Language,
		"newspaper":  meta.PublicationType,
		"True":       meta.NeedsSubscription,
	}
	for want, got := range fields {
		require.NotNil(t, got, want)
		assert.Equal(t, want, *got)
	}

	literals := hitsFrom(hits, endpoint.SourceLiteral)
	require.Len(t, literals, 1)
	assert.Equal(t, endpoint.TypeAPI, literals[0].Type)
	assert.Empty(t, hitsFrom(hits, endpoint.SourceAttr), "INDEX has no url marker")
}

// TestAnalyze_SyntaxError verifies literal hits survive a parse failure
func TestAnalyze_SyntaxError(t *testing.T) {
	doc := `
class Broken(BasicNewsRecipe:
    title = "x"
    feeds = ["https://broken.example/feed.xml"]
`

	meta, hits, err := Analyze([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SyntaxError")
	assert.Equal(t, Metadata{}, meta)

	require.Len(t, hits, 1)
	assert.Equal(t, "https://broken.example/feed.xml", hits[0].URL)
	assert.Equal(t, endpoint.SourceLiteral, hits[0].Source)
	assert.Equal(t, endpoint.TypeFeed, hits[0].Type)
}

// TestAnalyze_NoRecipeClass verifies metadata stays empty without a class
func TestAnalyze_NoRecipeClass(t *testing.T) {
	doc := `
title = "Not a recipe"
feed_url = "http://ex.com/rss"
`

	meta, hits, err := Analyze([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, Metadata{}, meta)
	require.Len(t, hits, 1)
	assert.Equal(t, endpoint.SourceLiteral, hits[0].Source)
}

// TestAnalyze_ModuleConstantsStayOut verifies module names feed folding but
// are not read as class attributes
func TestAnalyze_ModuleConstantsStayOut(t *testing.T) {
	doc := `
BASE_URL = "https://mod.example/"
title = "Module Title"

class R(BasicNewsRecipe):
    feeds = [BASE_URL + "rss"]
`

	meta, hits, err := Analyze([]byte(doc))
	require.NoError(t, err)

	assert.Nil(t, meta.Title)
	assert.Empty(t, hitsFrom(hits, endpoint.SourceAttr))

	feeds := hitsFrom(hits, endpoint.SourceFeeds)
	require.Len(t, feeds, 1)
	assert.Equal(t, "https://mod.example/rss", feeds[0].URL)
}

// TestAnalyze_EntitiesAndFeedScheme verifies entity decoding before scanning
func TestAnalyze_EntitiesAndFeedScheme(t *testing.T) {
	doc := `
# see feed://ex.com/rss&amp;x=1.
class R(BasicNewsRecipe):
    feeds = ['feed://ex.com/atom']
`

	_, hits, err := Analyze([]byte(doc))
	require.NoError(t, err)

	var urls []string
	for _, h := range hits {
		urls = append(urls, string(h.Source)+" "+h.URL)
	}
	assert.Equal(t, []string{
		"literal http://ex.com/rss&x=1",
		"literal http://ex.com/atom",
		"feeds http://ex.com/atom",
	}, urls)
}

// TestAnalyze_Total verifies odd inputs never panic
func TestAnalyze_Total(t *testing.T) {
	docs := []string{
		"",
		"\x00\xff\xfe",
		"class",
		"print 'python 2'",
		"x = '''unterminated",
		"class R(BasicNewsRecipe):\n    feeds = [" + "[" + "]" + "]\n",
	}

	for _, doc := range docs {
		assert.NotPanics(t, func() {
			_, _, _ = Analyze([]byte(doc))
		})
	}
}
