package collect

import (
	"net/url"
	"strings"
)

// Task 整个任务实例，所有请求共享的参数
type Task struct {
	Rule RuleTree // 任务中的规则
	Options
}

// TaskConfig 配置文件中的任务配置
type TaskConfig struct {
	Name     string
	Cookie   string
	WaitTime int64
	Reload   bool
	MaxDepth int
	Fetcher  string
	Limits   []LimitConfig
}

type LimitConfig struct {
	EventCount int
	EventDur   int // 秒
	Bucket     int // 桶大小
}

func NewTask(opts ...Option) *Task {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}

	t := &Task{}
	t.Options = options

	return t
}

// Allowed 判断 rawURL 的主机是否在任务允许的域名内
func (t *Task) Allowed(rawURL string) bool {
	if len(t.AllowedDomains) == 0 {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range t.AllowedDomains {
		d = strings.ToLower(d)
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
