package sqlstorage

import (
	"github.com/Nrich-sunny/spiders/sqldb"
	"go.uber.org/zap"
)

type options struct {
	logger     *zap.Logger
	sqlUrl     string
	BatchCount int
	NodeID     int64 // snowflake 节点号
	db         sqldb.DBer
}

var defaultOptions = options{
	logger:     zap.NewNop(),
	BatchCount: 1,
	NodeID:     1,
}

type Option func(opts *options)

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

func WithSqlUrl(sqlUrl string) Option {
	return func(opts *options) {
		opts.sqlUrl = sqlUrl
	}
}

func WithBatchCount(batchCount int) Option {
	return func(opts *options) {
		opts.BatchCount = batchCount
	}
}

func WithNodeID(id int64) Option {
	return func(opts *options) {
		opts.NodeID = id
	}
}

// WithDB 使用已有的数据库连接，而不是根据 sqlUrl 新建
func WithDB(db sqldb.DBer) Option {
	return func(opts *options) {
		opts.db = db
	}
}
