package collect

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Nrich-sunny/spiders/collector"
	"github.com/Nrich-sunny/spiders/page"
	"go.uber.org/zap"
)

var (
	ErrMaxDepth = errors.New("max depth limit reached")
	ErrOffsite  = errors.New("url not in allowed domains")
)

// Context 单个请求解析时的上下文
type Context struct {
	Body []byte
	Req  *Request
	Url  string // 响应的最终地址(重定向之后)，为空时使用 Req.Url

	page *page.Document
}

// Page 惰性解析 Body，同一个 Context 只解析一次
func (c *Context) Page() (page.Page, error) {
	if c.page != nil {
		return c.page, nil
	}
	base := c.Url
	if base == "" {
		base = c.Req.Url
	}
	p, err := page.Parse(c.Body, base)
	if err != nil {
		return nil, err
	}
	c.page = p
	return p, nil
}

// Logger 任务的日志，未设置时返回 Nop
func (c *Context) Logger() *zap.Logger {
	if c.Req.Task == nil || c.Req.Task.Logger == nil {
		return zap.NewNop()
	}
	return c.Req.Task.Logger
}

// Follow 基于当前请求生成下一层请求
func (c *Context) Follow(url, ruleName string) *Request {
	return &Request{
		Task:     c.Req.Task,
		Url:      url,
		Method:   http.MethodGet,
		Depth:    c.Req.Depth + 1,
		RuleName: ruleName,
	}
}

// Output 将解析出的字段包装为交给存储的数据单元
func (c *Context) Output(data map[string]interface{}) *collector.DataCell {
	res := &collector.DataCell{Data: make(map[string]interface{})}
	res.Data["Task"] = c.Req.Task.Name
	res.Data["Rule"] = c.Req.RuleName
	res.Data["Data"] = data
	res.Data["Url"] = c.Req.Url
	res.Data["Time"] = time.Now().Format("2006-01-02 15:04:05")
	return res
}

// Request 单个请求
type Request struct {
	Task     *Task
	Url      string // 这里存的是单个请求对应的 url
	Method   string
	Depth    int    // 该请求对应的深度
	Priority int    // 请求的优先级, 值越大优先级越高（目前只有两个优先级：0 和 大于0）
	RuleName string // 该请求对应的规则名
}

type ParseResult struct {
	Requests []*Request    // 用于进一步获取数据。进一步要爬取的 Requests 列表
	Items    []interface{} // 获取到的数据(类型：任意元素类型的切片)
}

// Check 深度与域名检查
func (r *Request) Check() error {
	if r.Task.MaxDepth > 0 && r.Depth > r.Task.MaxDepth {
		return ErrMaxDepth
	}
	if !r.Task.Allowed(r.Url) {
		return fmt.Errorf("%w: %s", ErrOffsite, r.Url)
	}
	return nil
}

// Unique 请求的唯一标识码
func (r *Request) Unique() string {
	block := md5.Sum([]byte(r.Url + r.Method))
	return hex.EncodeToString(block[:])
}

// Rule 返回该请求对应的规则，规则不存在时返回 nil
func (r *Request) Rule() *Rule {
	return r.Task.Rule.Trunk[r.RuleName]
}
