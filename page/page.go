// Package page 对抓取到的 HTML 页面提供基于选择器的文本抽取能力。
// 解析逻辑只依赖 Page 接口，与具体的 HTML 解析库解耦。
package page

import (
	"bytes"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Page 一个已抓取页面的只读视图
type Page interface {
	// First 返回 CSS 选择器第一个匹配元素的完整文本
	First(query string) (string, bool)
	// All 按文档顺序返回所有匹配元素的完整文本
	All(query string) []string
	// OwnText 返回第一个匹配元素自身的直接文本节点(不含子元素)
	OwnText(query string) (string, bool)
	// Attrs 按文档顺序返回所有匹配元素上 attr 属性的值，缺失该属性的元素被跳过
	Attrs(query, attr string) []string
	// XPath 返回 XPath 表达式第一个匹配节点的完整文本
	XPath(expr string) (string, bool)
	// BaseURL 用于解析相对链接
	BaseURL() *url.URL
}

// Document Page 的 goquery + htmlquery 实现
type Document struct {
	doc  *goquery.Document
	root *html.Node
	base *url.URL
}

// New 解析 body，base 为页面自身的 URL
func New(body []byte, base *url.URL) (*Document, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)
	// 页面中的 <base href> 优先于响应地址
	if href, ok := doc.Find("head base[href]").First().Attr("href"); ok {
		if ref, err := url.Parse(href); err == nil {
			if base != nil {
				ref = base.ResolveReference(ref)
			}
			if ref.IsAbs() {
				base = ref
			}
		}
	}
	return &Document{
		doc:  doc,
		root: root,
		base: base,
	}, nil
}

// Parse 同 New，但从字符串形式的 URL 开始
func Parse(body []byte, rawURL string) (*Document, error) {
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", rawURL, err)
	}
	return New(body, base)
}

func (d *Document) First(query string) (string, bool) {
	s := d.doc.Find(query).First()
	if s.Length() == 0 {
		return "", false
	}
	return s.Text(), true
}

func (d *Document) All(query string) []string {
	return d.doc.Find(query).Map(func(_ int, s *goquery.Selection) string {
		return s.Text()
	})
}

func (d *Document) OwnText(query string) (string, bool) {
	s := d.doc.Find(query).First()
	if s.Length() == 0 {
		return "", false
	}
	var buf bytes.Buffer
	found := false
	for c := s.Nodes[0].FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			buf.WriteString(c.Data)
			found = true
		}
	}
	return buf.String(), found
}

func (d *Document) Attrs(query, attr string) []string {
	var values []string
	d.doc.Find(query).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr(attr); ok {
			values = append(values, v)
		}
	})
	return values
}

// XPath 表达式非法时与无匹配一样返回 false
func (d *Document) XPath(expr string) (string, bool) {
	n, err := htmlquery.Query(d.root, expr)
	if err != nil || n == nil {
		return "", false
	}
	return htmlquery.InnerText(n), true
}

func (d *Document) BaseURL() *url.URL {
	return d.base
}

// Resolve 将 href 相对 base 解析为绝对地址
func Resolve(base *url.URL, href string) (string, bool) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if base == nil {
		return ref.String(), ref.IsAbs()
	}
	return base.ResolveReference(ref).String(), true
}
