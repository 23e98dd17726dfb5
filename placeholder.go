package batchinsert

import (
	"strings"
	"sync"
)

// valueGroupCache 按列数缓存单个占位符组，条目数上限为使用过的列数种类
type valueGroupCache struct {
	groups sync.Map // key: columnCount  value: ", (?, ?)"
}

var defaultValueGroups = &valueGroupCache{}

// group 返回带前导分隔符的单个占位符组，形如 ", (?, ?)"
func (c *valueGroupCache) group(columnCount int) string {
	if v, ok := c.groups.Load(columnCount); ok {
		return v.(string)
	}
	g := ", (" + strings.Repeat("?, ", columnCount-1) + "?)"
	c.groups.Store(columnCount, g)
	return g
}

// extra 返回追加在基础 SQL 之后的 groupCount 个占位符组，形如 ", (?, ?), (?, ?)"
func (c *valueGroupCache) extra(columnCount, groupCount int) string {
	if columnCount <= 0 || groupCount <= 0 {
		return ""
	}
	return strings.Repeat(c.group(columnCount), groupCount)
}

// MultiValueSQL 在基础 INSERT（已含第一组 VALUES 占位符）后追加 rows-1 个占位符组
func MultiValueSQL(baseSQL string, columnCount, rows int) string {
	return baseSQL + defaultValueGroups.extra(columnCount, rows-1)
}
