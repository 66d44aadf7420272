// Package parse 汇总所有爬虫任务的模板
package parse

import (
	"sort"

	"github.com/Nrich-sunny/spiders/collect"
	"github.com/Nrich-sunny/spiders/parse/headline"
	"github.com/Nrich-sunny/spiders/parse/visitseoul"
)

// Store 任务名 -> 任务模板
var Store = map[string]*collect.Task{
	headline.Name:   headline.Task,
	visitseoul.Name: visitseoul.Task,
}

func Get(name string) (*collect.Task, bool) {
	t, ok := Store[name]
	return t, ok
}

// Names 按字母序返回所有任务名
func Names() []string {
	names := make([]string, 0, len(Store))
	for n := range Store {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
