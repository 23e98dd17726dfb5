package batchinsert

import "context"

// Conn 数据库连接抽象（由调用方持有并管理生命周期）
// BatchInserter 只切换 auto-commit、提交事务，从不打开或关闭连接。
type Conn interface {
	// Prepare 根据 SQL 文本创建参数化语句
	Prepare(ctx context.Context, query string) (Stmt, error)
	// Commit 提交当前事务
	Commit(ctx context.Context) error
	// SetAutoCommit 切换 auto-commit；驱动不支持时返回 ErrNotSupported
	SetAutoCommit(ctx context.Context, enabled bool) error
	// ClearWarnings 清除驱动累计的警告
	ClearWarnings()
}

// Stmt 参数化语句
type Stmt interface {
	// Bind 绑定参数，position 从 1 开始；value 为 nil 表示 SQL NULL
	Bind(position int, value any) error
	// AddBatch 将当前绑定的参数作为一行加入批次
	AddBatch() error
	// ExecBatch 一次性执行批次中的所有行
	ExecBatch(ctx context.Context) error
	// ExecUpdate 以当前绑定的参数执行一次，返回影响行数
	ExecUpdate(ctx context.Context) (int64, error)
	// Close 释放语句
	Close() error
}

// Rollbacker 支持回滚的连接（可选扩展）
type Rollbacker interface {
	Rollback(ctx context.Context) error
}

// AutoCommitter 能报告当前 auto-commit 状态的连接（可选扩展）
// 未实现时，执行结束后 auto-commit 一律恢复为 true。
type AutoCommitter interface {
	AutoCommit() bool
}

// ResultSink 执行结果接收者（可选扩展），例如 Redis 执行日志
type ResultSink interface {
	Publish(ctx context.Context, result ExecutionResult) error
}
