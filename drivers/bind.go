// Package drivers 连接适配层的公共工具
package drivers

import (
	"strconv"
	"strings"
)

// BindStyle 占位符风格
type BindStyle int

const (
	// BindQuestion ? 占位符（MySQL、SQLite、ODBC）
	BindQuestion BindStyle = iota
	// BindDollar $1, $2 ... 占位符（PostgreSQL）
	BindDollar
)

// String returns the string representation of BindStyle
func (s BindStyle) String() string {
	switch s {
	case BindQuestion:
		return "question"
	case BindDollar:
		return "dollar"
	default:
		return "unknown"
	}
}

// Rebind 将 ? 占位符改写为目标风格；单引号、双引号内的 ? 保持不变
// 不缓存结果：多值插入的每种块大小都是不同的语句文本
func Rebind(query string, style BindStyle) string {
	if style != BindDollar || !strings.Contains(query, "?") {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + len(query)/4)
	n := 0
	var quote byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
			sb.WriteByte(c)
		case c == '\'' || c == '"':
			quote = c
			sb.WriteByte(c)
		case c == '?':
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
