package batchinsert

import (
	"database/sql"
	"fmt"
	"math"
	"time"
)

const (
	// NullInteger32 Integer32 列的 NULL 哨兵值
	NullInteger32 int32 = math.MinInt32
	// NullInteger64 Integer64 列的 NULL 哨兵值（按位还原之后比较）
	NullInteger64 int64 = math.MinInt64
)

var (
	dateLayouts     = []string{"2006-1-2"}
	dateTimeLayouts = []string{
		"2006-1-2 15:04:05",
		"2006-1-2T15:04:05",
		"2006-1-2",
	}
)

// Column 单列缓冲：同质、定长、带类型标签
// 只有本包内的四种实现，哨兵值到 NULL 的转换集中在 Value 中完成。
type Column interface {
	// Type 列类型标签
	Type() ColumnType
	// Len 列的行数
	Len() int
	// Value 返回 row 行的绑定值；nil 表示 SQL NULL
	Value(row int) (any, error)

	sealed()
}

var (
	_ Column = int32Column(nil)
	_ Column = float64Column(nil)
	_ Column = int64Column(nil)
	_ Column = (*textColumn)(nil)
)

type int32Column []int32

// NewInteger32Column 创建 Integer32 列
func NewInteger32Column(values []int32) Column { return int32Column(values) }

func (c int32Column) Type() ColumnType { return Integer32 }
func (c int32Column) Len() int         { return len(c) }
func (c int32Column) sealed()          {}

func (c int32Column) Value(row int) (any, error) {
	if v := c[row]; v != NullInteger32 {
		return v, nil
	}
	return nil, nil
}

type float64Column []float64

// NewNumericColumn 创建 Numeric 列
func NewNumericColumn(values []float64) Column { return float64Column(values) }

func (c float64Column) Type() ColumnType { return Numeric }
func (c float64Column) Len() int         { return len(c) }
func (c float64Column) sealed()          {}

func (c float64Column) Value(row int) (any, error) {
	if v := c[row]; !math.IsNaN(v) {
		return v, nil
	}
	return nil, nil
}

type int64Column []int64

// NewInteger64Column 创建 Integer64 列（已是真实 int64）
func NewInteger64Column(values []int64) Column { return int64Column(values) }

// NewEncodedInteger64Column 创建 Integer64 列，输入为按位编码的 float64
func NewEncodedInteger64Column(encoded []float64) Column {
	return int64Column(DecodeInteger64Slice(encoded))
}

func (c int64Column) Type() ColumnType { return Integer64 }
func (c int64Column) Len() int         { return len(c) }
func (c int64Column) sealed()          {}

func (c int64Column) Value(row int) (any, error) {
	if v := c[row]; v != NullInteger64 {
		return v, nil
	}
	return nil, nil
}

// textColumn String / Date / DateTime 共用的文本存储
type textColumn struct {
	kind   ColumnType
	values []sql.NullString
}

// NewStringColumn 创建 String 列；Valid=false 的元素绑定为 NULL
func NewStringColumn(values []sql.NullString) Column {
	return &textColumn{kind: String, values: values}
}

// NewDateColumn 创建 Date 列，文本格式 yyyy-mm-dd
func NewDateColumn(values []sql.NullString) Column {
	return &textColumn{kind: Date, values: values}
}

// NewDateTimeColumn 创建 DateTime 列，文本格式 yyyy-mm-dd hh:mm:ss[.fff]
func NewDateTimeColumn(values []sql.NullString) Column {
	return &textColumn{kind: DateTime, values: values}
}

func (c *textColumn) Type() ColumnType { return c.kind }
func (c *textColumn) Len() int         { return len(c.values) }
func (c *textColumn) sealed()          {}

func (c *textColumn) Value(row int) (any, error) {
	v := c.values[row]
	if !v.Valid {
		return nil, nil
	}
	switch c.kind {
	case Date:
		return parseTime(v.String, dateLayouts)
	case DateTime:
		return parseTime(v.String, dateTimeLayouts)
	default:
		return v.String, nil
	}
}

// parseTime 按顺序尝试 layouts；无时区信息的文本按 UTC 解析，不做本地时区偏移
func parseTime(text string, layouts []string) (time.Time, error) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: cannot parse %q as time", ErrInvalidValue, text)
}

// Text 将普通字符串转换为全部非 NULL 的文本列数据
func Text(values ...string) []sql.NullString {
	out := make([]sql.NullString, len(values))
	for i, v := range values {
		out[i] = sql.NullString{String: v, Valid: true}
	}
	return out
}

// TextOrNull 将 *string 转换为文本列数据；nil 元素为 NULL
func TextOrNull(values ...*string) []sql.NullString {
	out := make([]sql.NullString, len(values))
	for i, v := range values {
		if v != nil {
			out[i] = sql.NullString{String: *v, Valid: true}
		}
	}
	return out
}
