package collect

import (
	"github.com/Nrich-sunny/spiders/collector"
	"github.com/Nrich-sunny/spiders/limiter"
	"go.uber.org/zap"
)

type Options struct {
	Name           string   // 任务名称，应保证唯一性
	AllowedDomains []string // 允许抓取的域名(含子域名)，为空表示不限制
	Cookie         string
	WaitTime       int64 // 随机休眠的最大时间，秒
	Reload         bool  // 网站是否可以重复请求
	MaxDepth       int   // 0 表示不限制
	Fetcher        Fetcher
	Storage        collector.Storage
	Limit          limiter.RateLimiter
	Logger         *zap.Logger
}

var defaultOptions = Options{
	Logger:   zap.NewNop(),
	WaitTime: 0,
	Reload:   false,
	MaxDepth: 5,
}

type Option func(opts *Options)

func WithName(name string) Option {
	return func(opts *Options) {
		opts.Name = name
	}
}

func WithAllowedDomains(domains ...string) Option {
	return func(opts *Options) {
		opts.AllowedDomains = domains
	}
}

func WithCookie(cookie string) Option {
	return func(opts *Options) {
		opts.Cookie = cookie
	}
}

func WithWaitTime(waitTime int64) Option {
	return func(opts *Options) {
		opts.WaitTime = waitTime
	}
}

func WithReload(reload bool) Option {
	return func(opts *Options) {
		opts.Reload = reload
	}
}

func WithMaxDepth(maxDepth int) Option {
	return func(opts *Options) {
		opts.MaxDepth = maxDepth
	}
}

func WithFetcher(f Fetcher) Option {
	return func(opts *Options) {
		opts.Fetcher = f
	}
}

func WithStorage(s collector.Storage) Option {
	return func(opts *Options) {
		opts.Storage = s
	}
}

func WithLimit(l limiter.RateLimiter) Option {
	return func(opts *Options) {
		opts.Limit = l
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}
