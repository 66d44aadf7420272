package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Nrich-sunny/spiders/collect"
	"github.com/Nrich-sunny/spiders/collector"
	"github.com/Nrich-sunny/spiders/parse/headline"
	"github.com/Nrich-sunny/spiders/parse/visitseoul"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type memStore struct {
	mu      sync.Mutex
	cells   []*collector.DataCell
	flushed int
}

func (m *memStore) Save(datas ...*collector.DataCell) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cells = append(m.cells, datas...)
	return nil
}

func (m *memStore) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushed++
	return nil
}

func (m *memStore) field(name string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, c := range m.cells {
		out = append(out, fmt.Sprint(c.Fields()[name]))
	}
	sort.Strings(out)
	return out
}

type countingHandler struct {
	mu    sync.Mutex
	hits  map[string]int
	pages map[string]string
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.hits[r.URL.RequestURI()]++
	h.mu.Unlock()

	body, ok := h.pages[r.URL.RequestURI()]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, body)
}

func (h *countingHandler) count(uri string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hits[uri]
}

func newTask(t *testing.T, tmpl *collect.Task, seed string, store collector.Storage) *collect.Task {
	t.Helper()
	task := collect.NewTask(
		collect.WithName(tmpl.Name),
		collect.WithAllowedDomains("127.0.0.1"),
		collect.WithStorage(store),
	)
	task.Rule = collect.RuleTree{
		Root: func() ([]*collect.Request, error) {
			roots, err := tmpl.Rule.Root()
			if err != nil {
				return nil, err
			}
			for _, r := range roots {
				r.Url = seed
			}
			return roots, nil
		},
		Trunk: tmpl.Rule.Trunk,
	}
	return task
}

func TestCrawler_Headline(t *testing.T) {
	h := &countingHandler{hits: map[string]int{}, pages: map[string]string{
		"/": `<html><body>
			<article><div><a href="/a/1.html">1</a><a href="/a/1.html">1 again</a></div></article>
			<article><div><a href="/a/2.html">2</a><a href="/b.php">php</a><a href="/missing.html">404</a></div></article>
			<article><div><a href="http://engadget.com/c.html">offsite</a></div></article>
		</body></html>`,
		"/a/1.html": `<html><head><title>One</title></head><body><div class="article-text"><p>a</p><p>b</p></div></body></html>`,
		"/a/2.html": `<html><head><title>Two</title></head><body></body></html>`,
	}}
	srv := httptest.NewServer(h)
	defer srv.Close()

	store := &memStore{}
	crawler := NewEngine(
		WithWorkCount(3),
		WithSeeds([]*collect.Task{newTask(t, headline.Task, srv.URL+"/", store)}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, crawler.Run(ctx))
	require.NoError(t, ctx.Err())

	assert.Equal(t, []string{"One", "Two"}, store.field("title"))
	assert.Equal(t, []string{"", "ab"}, store.field("body"))
	assert.Equal(t, 1, h.count("/a/1.html"))
	assert.Equal(t, 1, h.count("/missing.html"))
	assert.Equal(t, 0, h.count("/b.php"))
	assert.Equal(t, 1, store.flushed)
}

func TestCrawler_Visitseoul(t *testing.T) {
	h := &countingHandler{hits: map[string]int{}, pages: map[string]string{
		"/restaurants?curPage=1": `<html><body>
			<a href="/restaurants/seoul/1">r1</a>
			<a href="/restaurants/seoul/2">r2</a>
			<a href="/restaurants?curPage=2">next</a>
			<a href="/about">about</a>
		</body></html>`,
		"/restaurants?curPage=2": `<html><body>
			<a href="/restaurants/seoul/2">r2</a>
			<a href="/restaurants/jongno/3">r3</a>
			<a href="/restaurants?curPage=1">prev</a>
		</body></html>`,
		"/restaurants/seoul/1": `<html><body><h3>One</h3>
			<dl><dt>전화번호</dt><dd>02-1234-5678</dd></dl>
			<a href="/restaurants/seoul/9">not followed</a></body></html>`,
		"/restaurants/seoul/2":  `<html><body><h3>Two</h3></body></html>`,
		"/restaurants/jongno/3": `<html><body><h3>Three</h3><dl><dt>교통 정보</dt><dd>1호선</dd></dl></body></html>`,
	}}
	srv := httptest.NewServer(h)
	defer srv.Close()

	store := &memStore{}
	crawler := NewEngine(
		WithWorkCount(2),
		WithSeeds([]*collect.Task{newTask(t, visitseoul.Task, srv.URL+"/restaurants?curPage=1", store)}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, crawler.Run(ctx))

	assert.Equal(t, []string{"One", "Three", "Two"}, store.field("name"))
	assert.Equal(t, []string{"02-1234-5678", "<nil>", "<nil>"}, store.field("phone"))
	assert.Equal(t, 1, h.count("/restaurants?curPage=1"))
	assert.Equal(t, 1, h.count("/restaurants/seoul/2"))
	assert.Equal(t, 0, h.count("/restaurants/seoul/9"))
	assert.Equal(t, 0, h.count("/about"))
}

func TestCrawler_FollowsRedirectBase(t *testing.T) {
	target := &countingHandler{hits: map[string]int{}, pages: map[string]string{
		"/home/":    `<html><body><article><div><a href="/a/1.html">1</a></div></article></body></html>`,
		"/a/1.html": `<html><head><title>One</title></head><body></body></html>`,
	}}
	targetSrv := httptest.NewServer(target)
	defer targetSrv.Close()

	seedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, targetSrv.URL+"/home/", http.StatusMovedPermanently)
	}))
	defer seedSrv.Close()

	store := &memStore{}
	crawler := NewEngine(
		WithWorkCount(2),
		WithSeeds([]*collect.Task{newTask(t, headline.Task, seedSrv.URL+"/", store)}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, crawler.Run(ctx))

	assert.Equal(t, []string{"One"}, store.field("title"))
	assert.Equal(t, 1, target.count("/a/1.html"))
}

func TestCrawler_LogsThroughTaskLogger(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	task := newTask(t, headline.Task, srv.URL+"/", &memStore{})
	task.Logger = zap.New(core).Named("news")

	crawler := NewEngine(WithSeeds([]*collect.Task{task}))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, crawler.Run(ctx))

	entries := logs.FilterMessage("can't fetch").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "news", entries[0].LoggerName)
	assert.Equal(t, srv.URL+"/", entries[0].ContextMap()["url"])
}

func TestCrawler_NoSeeds(t *testing.T) {
	crawler := NewEngine()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, crawler.Run(ctx))
	assert.NoError(t, ctx.Err())
}

func TestScheduleEngine_Priority(t *testing.T) {
	s := NewSchedule()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Schedule(ctx)

	s.Push(
		&collect.Request{Url: "normal-1"},
		&collect.Request{Url: "pri-1", Priority: 1},
		&collect.Request{Url: "normal-2"},
	)

	// Push 返回时请求都已进入队列
	var got []string
	for i := 0; i < 3; i++ {
		got = append(got, s.Pull(ctx).Url)
	}
	assert.Equal(t, []string{"pri-1", "normal-1", "normal-2"}, got)

	cancel()
	assert.Nil(t, s.Pull(ctx))
}

func TestCrawler_StoreVisited(t *testing.T) {
	crawler := NewEngine()
	r := &collect.Request{Url: "http://a/1", Method: http.MethodGet}
	assert.False(t, crawler.HasVisited(r))
	assert.True(t, crawler.StoreVisited(r))
	assert.False(t, crawler.StoreVisited(r))
	assert.True(t, crawler.HasVisited(r))
}
