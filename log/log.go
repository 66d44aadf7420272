package log

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Plugin = zapcore.Core

func NewLogger(plugin zapcore.Core, options ...zap.Option) *zap.Logger {
	return zap.New(plugin, append(crawlerOptions(), options...)...)
}

func NewPlugin(writer zapcore.WriteSyncer, enabler zapcore.LevelEnabler) Plugin {
	return zapcore.NewCore(newEncoder(), writer, enabler)
}

func NewStdoutPlugin(enabler zapcore.LevelEnabler) Plugin {
	return NewPlugin(zapcore.Lock(zapcore.AddSync(os.Stdout)), enabler)
}

func NewStderrPlugin(enabler zapcore.LevelEnabler) Plugin {
	return NewPlugin(zapcore.Lock(zapcore.AddSync(os.Stderr)), enabler)
}

// NewFilePlugin lumberjack 没有暴露 Sync，额外返回一个 closer，
// 进程退出前需要 Close 以保证内容全部刷到磁盘。轮转策略由 opts 决定
func NewFilePlugin(filePath string, enabler zapcore.LevelEnabler, opts ...RotateOption) (Plugin, io.Closer) {
	writer := newRotateWriter(filePath, opts...)
	return NewPlugin(zapcore.AddSync(writer), enabler), writer
}
