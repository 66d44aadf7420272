package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// encoderConfig 大写的 level，ISO8601 的时间，方便按行 grep
func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

func newEncoder() zapcore.Encoder {
	return zapcore.NewJSONEncoder(encoderConfig())
}

// crawlerOptions 带上调用位置，堆栈只在 DPanic 及以上附加
func crawlerOptions() []zap.Option {
	stackAbove := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= zapcore.DPanicLevel
	})
	return []zap.Option{zap.AddCaller(), zap.AddStacktrace(stackAbove)}
}

type rotateOptions struct {
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
	compress   bool
}

var defaultRotateOptions = rotateOptions{
	maxSizeMB: 200,
	compress:  true,
}

type RotateOption func(opts *rotateOptions)

// WithMaxSize 单个日志文件的大小上限，单位 MB
func WithMaxSize(mb int) RotateOption {
	return func(opts *rotateOptions) {
		opts.maxSizeMB = mb
	}
}

// WithMaxBackups 0 表示保留全部旧文件
func WithMaxBackups(n int) RotateOption {
	return func(opts *rotateOptions) {
		opts.maxBackups = n
	}
}

// WithMaxAge 0 表示不按天数清理
func WithMaxAge(days int) RotateOption {
	return func(opts *rotateOptions) {
		opts.maxAgeDays = days
	}
}

func WithCompress(compress bool) RotateOption {
	return func(opts *rotateOptions) {
		opts.compress = compress
	}
}

func newRotateWriter(filePath string, opts ...RotateOption) *lumberjack.Logger {
	o := defaultRotateOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    o.maxSizeMB,
		MaxBackups: o.maxBackups,
		MaxAge:     o.maxAgeDays,
		Compress:   o.compress,
		LocalTime:  true,
	}
}
