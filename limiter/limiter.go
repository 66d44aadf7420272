package limiter

import (
	"context"
	"sort"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter 限速器的抽象，*rate.Limiter 天然实现了该接口
type RateLimiter interface {
	Wait(ctx context.Context) error
	Limit() rate.Limit
}

// Spec 描述一层限速: EventDur 时间内最多 EventCount 个请求，令牌桶大小为 Bucket
type Spec struct {
	EventCount int
	EventDur   time.Duration
	Bucket     int
}

// MultiLimiter 多层限速器，例如同时限制每秒与每分钟的请求数
type MultiLimiter struct {
	limiters []RateLimiter
}

func NewMultiLimiter(limiters ...RateLimiter) *MultiLimiter {
	// 将速率由小到大排序
	sort.Slice(limiters, func(i, j int) bool {
		return limiters[i].Limit() < limiters[j].Limit()
	})
	return &MultiLimiter{
		limiters: limiters,
	}
}

// Build 按 specs 构造多层限速器；非法的 spec 被忽略，全部被忽略时返回 nil
func Build(specs ...Spec) RateLimiter {
	var limiters []RateLimiter
	for _, s := range specs {
		if s.EventCount <= 0 || s.EventDur <= 0 {
			continue
		}
		bucket := s.Bucket
		if bucket <= 0 {
			bucket = 1
		}
		limiters = append(limiters, rate.NewLimiter(Per(s.EventCount, s.EventDur), bucket))
	}
	if len(limiters) == 0 {
		return nil
	}
	return NewMultiLimiter(limiters...)
}

func (l *MultiLimiter) Wait(ctx context.Context) error {
	for _, l := range l.limiters {
		if err := l.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Limit 返回最小速率的限速器的速率
func (l *MultiLimiter) Limit() rate.Limit {
	return l.limiters[0].Limit()
}

// Per 每一个爬虫任务可能有不同的限速。Per 用来生成速率
func Per(eventCount int, duration time.Duration) rate.Limit {
	return rate.Every(duration / time.Duration(eventCount))
}
