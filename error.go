package batchinsert

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrMissingColumn 列未设置错误
	ErrMissingColumn = errors.New("column not set")

	// ErrRowCountMismatch 列长度与批次行数不一致
	ErrRowCountMismatch = errors.New("column data not of correct length")

	// ErrColumnIndexOutOfRange 列序号越界（序号从 1 开始）
	ErrColumnIndexOutOfRange = errors.New("column index out of range")

	// ErrInvalidColumnCount 列数必须大于 0
	ErrInvalidColumnCount = errors.New("column count must be positive")

	// ErrNilConnection 连接为空
	ErrNilConnection = errors.New("connection cannot be nil")

	// ErrInvalidValue 无法转换的列值（如非法日期文本）
	ErrInvalidValue = errors.New("invalid column value")

	// ErrNotSupported 驱动不支持该操作（例如切换 auto-commit）
	ErrNotSupported = errors.New("operation not supported by driver")

	// ErrStatementExecution 数据库拒绝执行语句
	ErrStatementExecution = errors.New("statement execution failed")
)

// ColumnError 关联到某一列（以及可选的某一行）的错误
type ColumnError struct {
	Index int // 1-based
	Row   int // 0-based, -1 表示与行无关
	Err   error
}

func (e *ColumnError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("column %d row %d: %v", e.Index, e.Row, e.Err)
	}
	return fmt.Sprintf("column %d: %v", e.Index, e.Err)
}

func (e *ColumnError) Unwrap() error { return e.Err }

// StatementError 语句准备/执行/提交阶段的失败
type StatementError struct {
	Op     string // prepare, bind, exec_batch, exec_update, commit, autocommit
	Offset int    // 该语句覆盖的首行
	Err    error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("%s at row offset %d: %v", e.Op, e.Offset, e.Err)
}

func (e *StatementError) Unwrap() error { return e.Err }

// Is 使 errors.Is(err, ErrStatementExecution) 对所有 StatementError 成立
func (e *StatementError) Is(target error) bool {
	return target == ErrStatementExecution
}

// DriverError 携带数据库厂商错误码，由驱动适配层附加
type DriverError struct {
	Code string
	Err  error
}

func (e *DriverError) Error() string {
	if e.Code == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("[%s] %v", e.Code, e.Err)
}

func (e *DriverError) Unwrap() error { return e.Err }

// ErrorKind 将错误映射为稳定的指标标签
func ErrorKind(err error) string {
	var de *DriverError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingColumn):
		return "missing_column"
	case errors.Is(err, ErrRowCountMismatch):
		return "row_count_mismatch"
	case errors.Is(err, ErrInvalidValue):
		return "invalid_value"
	case errors.Is(err, ErrNotSupported):
		return "unsupported"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "context"
	case errors.As(err, &de) && de.Code != "":
		return "driver:" + de.Code
	case errors.Is(err, ErrStatementExecution):
		return "statement"
	default:
		return "unknown"
	}
}
