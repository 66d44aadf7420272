// Package feedstorage 以 JSON Lines 的格式输出数据，每条数据一行
package feedstorage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/Nrich-sunny/spiders/collector"
	"go.uber.org/zap"
)

type options struct {
	logger *zap.Logger
	path   string
	writer io.Writer
}

var defaultOptions = options{
	logger: zap.NewNop(),
}

type Option func(opts *options)

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// WithPath 以追加方式写入文件
func WithPath(path string) Option {
	return func(opts *options) {
		opts.path = path
	}
}

func WithWriter(w io.Writer) Option {
	return func(opts *options) {
		opts.writer = w
	}
}

type FeedStore struct {
	mu     sync.Mutex
	w      *bufio.Writer
	enc    *json.Encoder
	closer io.Closer
	options
}

func New(opts ...Option) (*FeedStore, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	s := &FeedStore{options: options}

	out := options.writer
	if out == nil {
		if options.path == "" {
			out = os.Stdout
		} else {
			f, err := os.OpenFile(options.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open feed %s: %w", options.path, err)
			}
			out = f
			s.closer = f
		}
	}
	s.w = bufio.NewWriter(out)
	s.enc = json.NewEncoder(s.w)
	s.enc.SetEscapeHTML(false)
	return s, nil
}

func (s *FeedStore) Save(datas ...*collector.DataCell) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range datas {
		if err := s.enc.Encode(d.Data); err != nil {
			s.logger.Error("encode item failed", zap.String("task", d.GetTaskName()), zap.Error(err))
			return err
		}
	}
	return nil
}

func (s *FeedStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Flush()
}

// Close 写出缓冲并关闭由 WithPath 打开的文件
func (s *FeedStore) Close() error {
	if err := s.Flush(); err != nil {
		return err
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
