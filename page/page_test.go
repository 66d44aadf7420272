package page_test

import (
	"testing"

	"github.com/Nrich-sunny/spiders/page"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doc = `<html><head><title>Hello</title></head>
<body>
<div class="list"><a href="/a.html">A</a><a>no href</a><a href="b.html">B</a></div>
<p id="own">Hello <b>x</b> world</p>
<dl><dt>주소</dt><dd> Seoul </dd></dl>
</body></html>`

func mustParse(t *testing.T, body string) *page.Document {
	t.Helper()
	d, err := page.Parse([]byte(body), "http://example.com/dir/index.html")
	require.NoError(t, err)
	return d
}

func TestDocument_FirstAndAll(t *testing.T) {
	t.Parallel()

	d := mustParse(t, doc)

	text, ok := d.First("div.list a")
	assert.True(t, ok)
	assert.Equal(t, "A", text)

	assert.Equal(t, []string{"A", "no href", "B"}, d.All("div.list a"))

	_, ok = d.First("section")
	assert.False(t, ok)
	assert.Empty(t, d.All("section"))
}

func TestDocument_OwnText(t *testing.T) {
	t.Parallel()

	d := mustParse(t, doc)
	text, ok := d.OwnText("p#own")
	assert.True(t, ok)
	assert.Equal(t, "Hello  world", text)

	text, ok = d.OwnText("title")
	assert.True(t, ok)
	assert.Equal(t, "Hello", text)

	_, ok = mustParse(t, `<html><head><title></title></head></html>`).OwnText("title")
	assert.False(t, ok)
}

func TestDocument_Attrs(t *testing.T) {
	t.Parallel()

	d := mustParse(t, doc)
	assert.Equal(t, []string{"/a.html", "b.html"}, d.Attrs("div.list a", "href"))
}

func TestDocument_XPath(t *testing.T) {
	t.Parallel()

	d := mustParse(t, doc)
	text, ok := d.XPath(`//dl[dt[contains(., "주소")]]/dd`)
	assert.True(t, ok)
	assert.Equal(t, " Seoul ", text)

	_, ok = d.XPath(`//dl[dt[contains(., "전화번호")]]/dd`)
	assert.False(t, ok)

	_, ok = d.XPath(`//[`)
	assert.False(t, ok)
}

func TestResolve(t *testing.T) {
	t.Parallel()

	d := mustParse(t, doc)
	u, ok := page.Resolve(d.BaseURL(), "b.html")
	assert.True(t, ok)
	assert.Equal(t, "http://example.com/dir/b.html", u)

	u, ok = page.Resolve(d.BaseURL(), "/a.html")
	assert.True(t, ok)
	assert.Equal(t, "http://example.com/a.html", u)

	_, ok = page.Resolve(d.BaseURL(), "http://[::1")
	assert.False(t, ok)
}

func TestDocument_BaseHref(t *testing.T) {
	t.Parallel()

	d := mustParse(t, `<html><head><base href="/static/"></head><body><a href="x.html">x</a></body></html>`)
	assert.Equal(t, "http://example.com/static/", d.BaseURL().String())

	u, ok := page.Resolve(d.BaseURL(), "x.html")
	assert.True(t, ok)
	assert.Equal(t, "http://example.com/static/x.html", u)

	// 无 base 标签时使用页面地址
	assert.Equal(t, "http://example.com/dir/index.html", mustParse(t, doc).BaseURL().String())
}
