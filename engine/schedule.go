package engine

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Nrich-sunny/spiders/collect"
	"github.com/Nrich-sunny/spiders/collector"
	"go.uber.org/zap"
)

type Crawler struct {
	out         chan output // 负责处理爬取后的数据
	Visited     map[string]bool
	VisitedLock sync.Mutex

	inflight  int64         // 已入队但尚未处理完的请求数
	idle      chan struct{} // inflight 归零时通知
	itemCount int64
	options
}

type output struct {
	task  *collect.Task
	items []interface{}
}

type Scheduler interface {
	Schedule(ctx context.Context)             // 负责启动调度器，ctx 结束后退出
	Push(...*collect.Request)                 // 将请求放入到调度器中
	Pull(ctx context.Context) *collect.Request // 从调度器中获取请求，ctx 结束后返回 nil
}

type ScheduleEngine struct {
	requestCh   chan *collect.Request
	workerCh    chan *collect.Request
	priReqQueue []*collect.Request
	reqQueue    []*collect.Request
	done        chan struct{}
	Logger      *zap.Logger
}

func NewEngine(opts ...Option) *Crawler {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	crawler := &Crawler{}
	crawler.out = make(chan output)
	crawler.Visited = make(map[string]bool, 100)
	crawler.idle = make(chan struct{}, 1)
	crawler.options = options
	if crawler.Scheduler == nil {
		crawler.Scheduler = NewSchedule()
	}
	if crawler.WorkCount <= 0 {
		crawler.WorkCount = 1
	}
	return crawler
}

func NewSchedule() *ScheduleEngine {
	s := &ScheduleEngine{}
	s.requestCh = make(chan *collect.Request) // 负责接收请求
	s.workerCh = make(chan *collect.Request)  // 负责分配任务
	s.done = make(chan struct{})
	s.Logger = zap.NewNop()
	return s
}

// Schedule
/**
 * 调度的核心逻辑
 * 监听 requestCh，新的请求按优先级塞进 priReqQueue 或 reqQueue 中;
 * 优先将 priReqQueue 中的 Request 塞进 workerCh 中。
 */
func (s *ScheduleEngine) Schedule(ctx context.Context) {
	defer close(s.done)
	for {
		var req *collect.Request
		var ch chan *collect.Request
		pri := false

		if len(s.priReqQueue) > 0 {
			req = s.priReqQueue[0]
			ch = s.workerCh
			pri = true
		} else if len(s.reqQueue) > 0 {
			req = s.reqQueue[0]
			ch = s.workerCh
		}

		select {
		case r := <-s.requestCh:
			if r.Priority > 0 {
				s.priReqQueue = append(s.priReqQueue, r)
			} else {
				s.reqQueue = append(s.reqQueue, r)
			}
		case ch <- req:
			if pri {
				s.priReqQueue = s.priReqQueue[1:]
			} else {
				s.reqQueue = s.reqQueue[1:]
			}
		case <-ctx.Done():
			s.Logger.Debug("scheduler stopped",
				zap.Int("dropped", len(s.priReqQueue)+len(s.reqQueue)))
			return
		}
	}
}

func (s *ScheduleEngine) Push(reqs ...*collect.Request) {
	for _, req := range reqs {
		select {
		case s.requestCh <- req:
		case <-s.done:
			return
		}
	}
}

func (s *ScheduleEngine) Pull(ctx context.Context) *collect.Request {
	select {
	case r := <-s.workerCh:
		return r
	case <-ctx.Done():
		return nil
	}
}

// Run 启动调度器与 worker，直到所有请求处理完毕或 ctx 结束，最后刷新各任务的存储
func (crawler *Crawler) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go crawler.Scheduler.Schedule(ctx)

	var workers sync.WaitGroup
	for i := 0; i < crawler.WorkCount; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			crawler.CreateWork(ctx)
		}()
	}

	handled := make(chan struct{})
	go func() {
		crawler.HandleResult()
		close(handled)
	}()

	// 种子入队期间持有一个计数，避免第一个种子处理完时提前判定为空闲
	atomic.AddInt64(&crawler.inflight, 1)
	crawler.Schedule()
	crawler.finish()

	select {
	case <-crawler.idle:
	case <-ctx.Done():
	}

	cancel()
	workers.Wait()
	close(crawler.out)
	<-handled

	crawler.Logger.Info("crawl finished",
		zap.Int("visited", crawler.visitedCount()),
		zap.Int64("items", atomic.LoadInt64(&crawler.itemCount)))

	return crawler.flush()
}

// Schedule 将所有种子任务的根请求推入调度器，返回入队的请求数
func (crawler *Crawler) Schedule() int {
	var total int
	for _, task := range crawler.Seeds {
		rootReqs, err := task.Rule.Root()
		if err != nil {
			crawler.Logger.Error("get root failed", zap.String("task", task.Name), zap.Error(err))
			continue
		}
		for _, req := range rootReqs {
			req.Task = task
			if req.Method == "" {
				req.Method = http.MethodGet
			}
		}
		total += crawler.push(rootReqs...)
	}
	return total
}

// push 过滤掉超出深度、站外与已访问的请求后入队
func (crawler *Crawler) push(reqs ...*collect.Request) int {
	var n int
	for _, r := range reqs {
		if r == nil || r.Task == nil {
			continue
		}
		if err := r.Check(); err != nil {
			crawler.Logger.Debug("request dropped", zap.String("url", r.Url), zap.Error(err))
			continue
		}
		if !r.Task.Reload && !crawler.StoreVisited(r) {
			continue
		}
		atomic.AddInt64(&crawler.inflight, 1)
		crawler.Scheduler.Push(r)
		n++
	}
	return n
}

func (crawler *Crawler) finish() {
	if atomic.AddInt64(&crawler.inflight, -1) == 0 {
		select {
		case crawler.idle <- struct{}{}:
		default:
		}
	}
}

func (crawler *Crawler) CreateWork(ctx context.Context) {
	for {
		r := crawler.Scheduler.Pull(ctx)
		if r == nil {
			return
		}
		crawler.handle(ctx, r)
		crawler.finish()
	}
}

func (crawler *Crawler) handle(ctx context.Context, r *collect.Request) {
	logger := r.Task.Logger
	if logger == nil {
		logger = crawler.Logger.With(zap.String("task", r.Task.Name))
	}
	logger = logger.With(zap.String("url", r.Url))

	if r.Task.Limit != nil {
		if err := r.Task.Limit.Wait(ctx); err != nil {
			logger.Debug("limiter wait canceled", zap.Error(err))
			return
		}
	}
	if r.Task.WaitTime > 0 {
		sleep := time.Duration(rand.Int63n(r.Task.WaitTime*1000)) * time.Millisecond
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return
		}
	}

	rule := r.Rule()
	if rule == nil {
		logger.Error("rule not found", zap.String("rule", r.RuleName))
		return
	}

	fetcher := r.Task.Fetcher
	if fetcher == nil {
		fetcher = crawler.Fetcher
	}
	resp, err := fetcher.Get(r)
	if err != nil {
		logger.Error("can't fetch", zap.Error(err))
		return
	}
	if resp.Url != "" && resp.Url != r.Url {
		logger.Debug("redirected", zap.String("final", resp.Url))
	}

	result, err := rule.ParseFunc(&collect.Context{Body: resp.Body, Req: r, Url: resp.Url})
	if err != nil {
		logger.Error("ParseFunc failed", zap.String("rule", r.RuleName), zap.Error(err))
		return
	}

	if len(result.Requests) > 0 {
		crawler.push(result.Requests...)
	}
	if len(result.Items) > 0 {
		crawler.out <- output{task: r.Task, items: result.Items}
	}
}

func (crawler *Crawler) HandleResult() {
	for result := range crawler.out {
		for _, item := range result.items {
			atomic.AddInt64(&crawler.itemCount, 1)
			switch d := item.(type) {
			case *collector.DataCell:
				if result.task.Storage == nil {
					crawler.Logger.Sugar().Info("get result: ", d.Data)
					continue
				}
				if err := result.task.Storage.Save(d); err != nil {
					crawler.Logger.Error("Save failed", zap.String("task", result.task.Name), zap.Error(err))
				}
			default:
				crawler.Logger.Sugar().Info("get result: ", item)
			}
		}
	}
}

func (crawler *Crawler) flush() error {
	var errs []error
	for _, task := range crawler.Seeds {
		if task.Storage == nil {
			continue
		}
		if err := task.Storage.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (crawler *Crawler) HasVisited(r *collect.Request) bool {
	crawler.VisitedLock.Lock()
	defer crawler.VisitedLock.Unlock()
	return crawler.Visited[r.Unique()]
}

// StoreVisited 记录请求，之前未访问过时返回 true
func (crawler *Crawler) StoreVisited(r *collect.Request) bool {
	crawler.VisitedLock.Lock()
	defer crawler.VisitedLock.Unlock()
	unique := r.Unique()
	if crawler.Visited[unique] {
		return false
	}
	crawler.Visited[unique] = true
	return true
}

func (crawler *Crawler) visitedCount() int {
	crawler.VisitedLock.Lock()
	defer crawler.VisitedLock.Unlock()
	return len(crawler.Visited)
}
