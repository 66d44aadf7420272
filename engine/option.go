package engine

import (
	"github.com/Nrich-sunny/spiders/collect"
	"go.uber.org/zap"
)

type Option func(opts *options)

type options struct {
	WorkCount int
	Fetcher   collect.Fetcher // 任务未指定 Fetcher 时使用
	Logger    *zap.Logger
	Seeds     []*collect.Task
	Scheduler Scheduler
}

var defaultOptions = options{
	WorkCount: 1,
	Fetcher:   collect.BaseFetch{},
	Logger:    zap.NewNop(),
}

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.Logger = logger
	}
}

func WithFetcher(fetcher collect.Fetcher) Option {
	return func(opts *options) {
		opts.Fetcher = fetcher
	}
}

func WithWorkCount(workCount int) Option {
	return func(opts *options) {
		opts.WorkCount = workCount
	}
}

func WithSeeds(seed []*collect.Task) Option {
	return func(opts *options) {
		opts.Seeds = seed
	}
}

func WithScheduler(schedule Scheduler) Option {
	return func(opts *options) {
		opts.Scheduler = schedule
	}
}
