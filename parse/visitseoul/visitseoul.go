// Package visitseoul 按规则翻页抓取 visitseoul 的餐厅列表，并从详情页抽取餐厅信息
package visitseoul

import (
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/Nrich-sunny/spiders/collect"
	"github.com/Nrich-sunny/spiders/page"
	"go.uber.org/zap"
)

const (
	Name     = "visitseoul"
	StartURL = "http://korean.visitseoul.net/restaurants?curPage=1"
	Domain   = "korean.visitseoul.net"

	listRule       = "list"
	restaurantRule = "restaurant"

	addressLabel = "주소"
	phoneLabel   = "전화번호"
	trafficLabel = "교통 정보"
)

// Action 链接命中规则后的处理方式
type Action int

const (
	// Paginate 列表页: 继续按规则发现链接，不抽取数据
	Paginate Action = iota
	// Detail 详情页: 抽取数据，不再继续发现链接
	Detail
)

func (a Action) String() string {
	switch a {
	case Paginate:
		return "paginate"
	case Detail:
		return "detail"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// RuleName 动作对应的采集规则名
func (a Action) RuleName() string {
	if a == Detail {
		return restaurantRule
	}
	return listRule
}

// Rule 一条 (URL 模式, 动作) 规则
type Rule struct {
	Pattern *regexp.Regexp
	Action  Action
}

// Rules 按顺序匹配，第一条命中的规则生效
var Rules = []Rule{
	{Pattern: regexp.MustCompile(`/restaurants\?curPage=\d$`), Action: Paginate},
	{Pattern: regexp.MustCompile(`/restaurants/\w+/\d+`), Action: Detail},
}

// Classify 在任意位置匹配 link，均不命中时返回 false
func Classify(link string) (Action, bool) {
	for _, r := range Rules {
		if r.Pattern.MatchString(link) {
			return r.Action, true
		}
	}
	return 0, false
}

// Link 页面中命中规则的链接
type Link struct {
	URL    string
	Action Action
}

// Follow 抽取页面所有 a/area 链接，转为绝对地址后按 Rules 分类。
// 同一页面中相同的地址只产出一次，非 http(s) 链接与未命中的链接被丢弃。
func Follow(p page.Page) iter.Seq[Link] {
	return func(yield func(Link) bool) {
		seen := make(map[string]struct{})
		for _, href := range p.Attrs("a[href], area[href]", "href") {
			abs, ok := page.Resolve(p.BaseURL(), strings.TrimSpace(href))
			if !ok || !isHTTP(abs) {
				continue
			}
			abs = stripFragment(abs)
			if _, dup := seen[abs]; dup {
				continue
			}
			seen[abs] = struct{}{}

			action, ok := Classify(abs)
			if !ok {
				continue
			}
			if !yield(Link{URL: abs, Action: action}) {
				return
			}
		}
	}
}

func isHTTP(raw string) bool {
	return strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://")
}

func stripFragment(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Fragment == "" {
		return raw
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// Restaurant 一家餐厅，页面中缺失的字段为 nil
type Restaurant struct {
	Name    *string `json:"name,omitempty"`
	Address *string `json:"address,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Traffic *string `json:"traffic,omitempty"`
}

func (r Restaurant) Fields() map[string]interface{} {
	return map[string]interface{}{
		"name":    deref(r.Name),
		"address": deref(r.Address),
		"phone":   deref(r.Phone),
		"traffic": deref(r.Traffic),
	}
}

func deref(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

// Extract 名称取第一个 h3 的完整文本，其余字段取标签 dt 含关键字的条目中紧随其后的 dd
func Extract(p page.Page) Restaurant {
	return Restaurant{
		Name:    text(p.First("h3")),
		Address: text(p.XPath(labelQuery(addressLabel))),
		Phone:   text(p.XPath(labelQuery(phoneLabel))),
		Traffic: text(p.XPath(labelQuery(trafficLabel))),
	}
}

func labelQuery(label string) string {
	return fmt.Sprintf(`//dl/dt[contains(., "%s")]/following-sibling::dd[1]`, label)
}

func text(s string, ok bool) *string {
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	return &s
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
			listRule: {ParseFunc: ParseList},
			restaurantRule: {
				ItemFields: []string{"name", "address", "phone", "traffic"},
				ParseFunc:  ParseRestaurant,
			},
		},
	},
}

func ParseList(ctx *collect.Context) (collect.ParseResult, error) {
	p, err := ctx.Page()
	if err != nil {
		return collect.ParseResult{}, err
	}
	result := collect.ParseResult{}
	for l := range Follow(p) {
		req := ctx.Follow(l.URL, l.Action.RuleName())
		if l.Action == Detail {
			req.Priority = 1
		}
		result.Requests = append(result.Requests, req)
	}
	ctx.Logger().Debug("parse restaurant list", zap.String("url", ctx.Req.Url), zap.Int("count", len(result.Requests)))
	return result, nil
}

func ParseRestaurant(ctx *collect.Context) (collect.ParseResult, error) {
	p, err := ctx.Page()
	if err != nil {
		return collect.ParseResult{}, err
	}
	return collect.ParseResult{
		Items: []interface{}{ctx.Output(Extract(p).Fields())},
	}, nil
}
