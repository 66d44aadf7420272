// Package headline 抓取 engadget 首页的文章链接并抽取文章标题与正文
package headline

import (
	"iter"
	"net/http"
	"strings"

	"github.com/Nrich-sunny/spiders/collect"
	"github.com/Nrich-sunny/spiders/page"
	"go.uber.org/zap"
)

const (
	Name      = "news"
	StartURL  = "http://engadget.com/"
	Domain    = "engadget.com"
	listRule  = "list"
	storyRule = "article"

	linkQuery  = "article div a"
	titleQuery = "html head title"
	bodyQuery  = "div.article-text p"
)

// Headline 一篇文章
type Headline struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (h Headline) Fields() map[string]interface{} {
	return map[string]interface{}{
		"title": h.Title,
		"body":  h.Body,
	}
}

// Task 任务模板，运行前由 cmd 复制并补全 fetcher、storage 等
var Task = &collect.Task{
	Options: collect.Options{
		Name:           Name,
		AllowedDomains: []string{Domain},
	},
	Rule: collect.RuleTree{
		Root: func() ([]*collect.Request, error) {
			return []*collect.Request{{
				Url:      StartURL,
				Method:   http.MethodGet,
				RuleName: listRule,
			}}, nil
		},
		Trunk: map[string]*collect.Rule{
			listRule:  {ParseFunc: ParseList},
			storyRule: {ItemFields: []string{"title", "body"}, ParseFunc: ParseArticle},
		},
	},
}

// IsArticleLink 文章链接为以 / 开头、以 .html 结尾的站内路径
func IsArticleLink(href string) bool {
	return strings.HasPrefix(href, "/") && strings.HasSuffix(href, ".html")
}

// Discover 返回页面中所有文章链接的绝对地址，不去重。
// 每次 range 都会重新遍历页面。
func Discover(p page.Page) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, href := range p.Attrs(linkQuery, "href") {
			if !IsArticleLink(href) {
				continue
			}
			u, ok := page.Resolve(p.BaseURL(), href)
			if !ok {
				continue
			}
			if !yield(u) {
				return
			}
		}
	}
}

// Extract 缺失的标题或正文以空字符串表示
func Extract(p page.Page) Headline {
	title, _ := p.OwnText(titleQuery)
	return Headline{
		Title: title,
		Body:  strings.Join(p.All(bodyQuery), ""),
	}
}

func ParseList(ctx *collect.Context) (collect.ParseResult, error) {
	p, err := ctx.Page()
	if err != nil {
		return collect.ParseResult{}, err
	}
	result := collect.ParseResult{}
	for u := range Discover(p) {
		result.Requests = append(result.Requests, ctx.Follow(u, storyRule))
	}
	ctx.Logger().Debug("parse article list", zap.String("url", ctx.Req.Url), zap.Int("count", len(result.Requests)))
	return result, nil
}

func ParseArticle(ctx *collect.Context) (collect.ParseResult, error) {
	p, err := ctx.Page()
	if err != nil {
		return collect.ParseResult{}, err
	}
	return collect.ParseResult{
		Items: []interface{}{ctx.Output(Extract(p).Fields())},
	}, nil
}
