package sqlstorage

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/Nrich-sunny/spiders/collector"
	"github.com/Nrich-sunny/spiders/sqldb"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

// SqlStore 将数据按任务名分表写入 MySQL，攒够 BatchCount 条后批量插入
type SqlStore struct {
	mu         sync.Mutex
	dataDocker []*collector.DataCell // 分批输出结果缓存
	tables     map[string][]sqldb.Field
	db         sqldb.DBer
	node       *snowflake.Node
	options
}

func New(opts ...Option) (*SqlStore, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	s := &SqlStore{}
	s.options = options
	s.tables = make(map[string][]sqldb.Field)

	node, err := snowflake.NewNode(options.NodeID)
	if err != nil {
		return nil, fmt.Errorf("create snowflake node: %w", err)
	}
	s.node = node

	if options.db != nil {
		s.db = options.db
		return s, nil
	}
	db, err := sqldb.New(
		sqldb.WithConnUrl(s.sqlUrl),
		sqldb.WithLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}
	s.db = db
	return s, nil
}

func (s *SqlStore) Save(dataCells ...*collector.DataCell) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cell := range dataCells {
		name := cell.GetTableName()
		if _, ok := s.tables[name]; !ok {
			columns := getFields(cell)
			err := s.db.CreateTable(sqldb.TableMetaData{
				TableName:   name,
				ColumnNames: columns,
			})
			if err != nil {
				s.logger.Error("create table failed", zap.String("table", name), zap.Error(err))
				return err
			}
			s.tables[name] = columns
		}
		s.dataDocker = append(s.dataDocker, cell)
		if len(s.dataDocker) >= s.BatchCount {
			if err := s.flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *SqlStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}

// Close 先写出剩余数据，再关闭底层连接
func (s *SqlStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.flush()
	if c, ok := s.db.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (s *SqlStore) flush() error {
	if len(s.dataDocker) == 0 {
		return nil
	}
	defer func() {
		s.dataDocker = nil
	}()

	// 同一批次内可能混有多个任务的数据，按表分组插入
	var order []string
	groups := make(map[string][]*collector.DataCell)
	for _, cell := range s.dataDocker {
		name := cell.GetTableName()
		if _, ok := groups[name]; !ok {
			order = append(order, name)
		}
		groups[name] = append(groups[name], cell)
	}

	for _, name := range order {
		columns := s.tables[name]
		cells := groups[name]
		var args []interface{}
		for _, cell := range cells {
			args = append(args, s.row(columns, cell)...)
		}
		err := s.db.Insert(sqldb.TableMetaData{
			TableName:   name,
			ColumnNames: columns,
			Args:        args,
			DataCount:   len(cells),
		})
		if err != nil {
			s.logger.Error("insert data failed", zap.String("table", name), zap.Error(err))
			return err
		}
	}
	return nil
}

// row 与 getFields 返回的列一一对应: id, 各字段, Url, Time
func (s *SqlStore) row(columns []sqldb.Field, cell *collector.DataCell) []interface{} {
	data := cell.Fields()
	values := []interface{}{s.node.Generate().Int64()}
	for _, c := range columns[1 : len(columns)-2] {
		values = append(values, toColumn(data[c.Title]))
	}
	values = append(values, cell.Data["Url"], cell.Data["Time"])
	return values
}

func toColumn(v interface{}) interface{} {
	switch v := v.(type) {
	case nil:
		return nil
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

func getFields(cell *collector.DataCell) []sqldb.Field {
	names := make([]string, 0, len(cell.Fields()))
	for k := range cell.Fields() {
		names = append(names, k)
	}
	sort.Strings(names)

	columns := []sqldb.Field{{Title: "id", Type: "BIGINT NOT NULL PRIMARY KEY"}}
	for _, n := range names {
		columns = append(columns, sqldb.Field{Title: n, Type: "MEDIUMTEXT"})
	}
	columns = append(columns,
		sqldb.Field{Title: "Url", Type: "VARCHAR(255)"},
		sqldb.Field{Title: "Time", Type: "VARCHAR(255)"},
	)
	return columns
}
