package collect

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"
)

func TestRequest_Check(t *testing.T) {
	task := NewTask(WithName("t"), WithMaxDepth(2), WithAllowedDomains("visitseoul.net"))

	ok := &Request{Task: task, Url: "http://korean.visitseoul.net/restaurants", Depth: 2}
	assert.NoError(t, ok.Check())

	deep := &Request{Task: task, Url: "http://visitseoul.net/", Depth: 3}
	assert.ErrorIs(t, deep.Check(), ErrMaxDepth)

	offsite := &Request{Task: task, Url: "http://evilvisitseoul.net/", Depth: 0}
	assert.ErrorIs(t, offsite.Check(), ErrOffsite)

	unlimited := NewTask(WithMaxDepth(0))
	assert.NoError(t, (&Request{Task: unlimited, Url: "http://any/", Depth: 100}).Check())
}

func TestRequest_Unique(t *testing.T) {
	a := &Request{Url: "http://a/1", Method: http.MethodGet}
	b := &Request{Url: "http://a/1", Method: http.MethodGet, Depth: 3}
	c := &Request{Url: "http://a/2", Method: http.MethodGet}
	assert.Equal(t, a.Unique(), b.Unique())
	assert.NotEqual(t, a.Unique(), c.Unique())
}

func TestContext_FollowAndOutput(t *testing.T) {
	task := NewTask(WithName("news"))
	req := &Request{Task: task, Url: "http://engadget.com/", Depth: 1, RuleName: "list"}
	ctx := &Context{Body: []byte(`<html><head><title>x</title></head></html>`), Req: req}

	next := ctx.Follow("http://engadget.com/a.html", "article")
	assert.Equal(t, 2, next.Depth)
	assert.Equal(t, http.MethodGet, next.Method)
	assert.Same(t, task, next.Task)

	cell := ctx.Output(map[string]interface{}{"title": "x"})
	assert.Equal(t, "news", cell.GetTaskName())
	assert.Equal(t, "list", cell.Data["Rule"])
	assert.Equal(t, "http://engadget.com/", cell.Data["Url"])
	assert.NotEmpty(t, cell.Data["Time"])

	p1, err := ctx.Page()
	require.NoError(t, err)
	p2, err := ctx.Page()
	require.NoError(t, err)
	assert.Same(t, p1, p2)
	assert.Equal(t, "http://engadget.com/", p1.BaseURL().String())
}

func TestDetermineEncoding(t *testing.T) {
	e := DetermineEncoding(bufio.NewReader(strings.NewReader("")), "")
	assert.NotNil(t, e)

	e = DetermineEncoding(bufio.NewReader(strings.NewReader("<html></html>")), "text/html; charset=euc-kr")
	raw, err := korean.EUCKR.NewEncoder().String("주소")
	require.NoError(t, err)
	decoded, err := e.NewDecoder().String(raw)
	require.NoError(t, err)
	assert.Equal(t, "주소", decoded)
}

func TestFetchers(t *testing.T) {
	euckr, err := korean.EUCKR.NewEncoder().String("<html><body><dt>주소</dt></body></html>")
	require.NoError(t, err)

	var gotCookie, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		gotUA = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/moved":
			http.Redirect(w, r, "/euckr", http.StatusMovedPermanently)
		case "/euckr":
			w.Header().Set("Content-Type", "text/html; charset=euc-kr")
			_, _ = w.Write([]byte(euckr))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	task := NewTask(WithName("t"), WithCookie("a=b"))
	fetchers := map[string]Fetcher{
		"base":    BaseFetch{},
		"browser": BrowserFetch{},
		"colly":   CollyFetch{},
	}
	for name, f := range fetchers {
		resp, err := f.Get(&Request{Task: task, Url: srv.URL + "/euckr", Method: http.MethodGet})
		require.NoError(t, err, name)
		assert.Contains(t, string(resp.Body), "주소", name)
		assert.Equal(t, srv.URL+"/euckr", resp.Url, name)

		resp, err = f.Get(&Request{Task: task, Url: srv.URL + "/moved", Method: http.MethodGet})
		require.NoError(t, err, name)
		assert.Contains(t, string(resp.Body), "주소", name)
		assert.Equal(t, srv.URL+"/euckr", resp.Url, name)

		_, err = f.Get(&Request{Task: task, Url: srv.URL + "/missing", Method: http.MethodGet})
		assert.Error(t, err, name)
	}

	_, err = BrowserFetch{}.Get(&Request{Task: task, Url: srv.URL + "/euckr"})
	require.NoError(t, err)
	assert.Equal(t, "a=b", gotCookie)
	assert.True(t, strings.HasPrefix(gotUA, "Mozilla/5.0"))
}

func TestCollyFetch_ThroughProxy(t *testing.T) {
	var gotHost, gotUA string
	proxySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHost = r.URL.Host
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("<html><body>via proxy</body></html>"))
	}))
	defer proxySrv.Close()

	proxyURL, err := url.Parse(proxySrv.URL)
	require.NoError(t, err)
	f := CollyFetch{Proxy: func(*http.Request) (*url.URL, error) { return proxyURL, nil }}

	resp, err := f.Get(&Request{Url: "http://korean.visitseoul.net/restaurants?curPage=1", Method: http.MethodGet})
	require.NoError(t, err)
	assert.Contains(t, string(resp.Body), "via proxy")
	assert.Equal(t, "korean.visitseoul.net", gotHost)
	assert.NotEmpty(t, gotUA)
	assert.NotContains(t, gotUA, "colly")
}
