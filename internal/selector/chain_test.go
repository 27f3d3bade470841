package selector_test

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/cafecrawl/internal/selector"
)

const chainFixture = `<div>
	<div class="new-layout">
		<span class="title">New Title</span>
	</div>
	<div class="legacy-layout">
		<span class="title">Legacy Title</span>
		<a href="/post/1">read</a>
	</div>
	<ul class="items">
		<li>one</li>
		<li>two</li>
		<li>three</li>
	</ul>
	<span class="empty"></span>
	<img class="noalt" src="/a.png" alt="">
</div>`

func parseFixture(t *testing.T) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(chainFixture))
	require.NoError(t, err)
	return doc.Selection
}

func TestFirstStopsAtEarliestMatch(t *testing.T) {
	root := parseFixture(t)
	chain := selector.Chain{".missing", ".new-layout .title", ".legacy-layout .title"}

	sel, ok := chain.First(root)
	require.True(t, ok)
	assert.Equal(t, "New Title", sel.Text())
}

func TestFirstExhaustedChain(t *testing.T) {
	root := parseFixture(t)
	chain := selector.Chain{".missing", ".also-missing"}

	_, ok := chain.First(root)
	assert.False(t, ok)
}

func TestAllKeepsDocumentOrder(t *testing.T) {
	root := parseFixture(t)
	chain := selector.Chain{".items li"}

	sel, ok := chain.All(root)
	require.True(t, ok)
	require.Equal(t, 3, sel.Length())

	var texts []string
	sel.Each(func(_ int, s *goquery.Selection) {
		texts = append(texts, s.Text())
	})
	assert.Equal(t, []string{"one", "two", "three"}, texts)
}

func TestTextSkipsEmptyMatches(t *testing.T) {
	root := parseFixture(t)
	chain := selector.Chain{".empty", ".legacy-layout .title"}

	text, ok := chain.Text(root)
	require.True(t, ok)
	assert.Equal(t, "Legacy Title", text)
}

func TestAttrSkipsEmptyValues(t *testing.T) {
	root := parseFixture(t)
	chain := selector.Chain{"img.noalt", ".legacy-layout a"}

	// alt exists on the image but is empty, so the chain keeps going and
	// reads href off the anchor instead.
	_, ok := selector.Chain{"img.noalt"}.Attr(root, "alt")
	assert.False(t, ok)

	href, ok := chain.Attr(root, "href")
	require.True(t, ok)
	assert.Equal(t, "/post/1", href)
}

func TestMatches(t *testing.T) {
	root := parseFixture(t)

	assert.True(t, selector.Chain{".missing", ".items"}.Matches(root))
	assert.False(t, selector.Chain{".missing"}.Matches(root))
	assert.False(t, selector.Chain{}.Matches(root))
}

func TestNilRoot(t *testing.T) {
	chain := selector.Chain{".anything"}

	_, ok := chain.First(nil)
	assert.False(t, ok)
	_, ok = chain.Text(nil)
	assert.False(t, ok)
	assert.False(t, chain.Matches(nil))
}
