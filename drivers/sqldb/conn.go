// Package sqldb 基于 database/sql 的连接适配
//
// database/sql 没有 auto-commit 开关和原生批量接口，这里按 JDBC 语义模拟：
// 关闭 auto-commit 后在首次使用时开启事务，Commit 结束事务，重新开启
// auto-commit 时提交未决事务；批量执行为在同一事务内逐行执行预编译语句。
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rushairer/batchinsert"
	"github.com/rushairer/batchinsert/drivers"
)

// DB *sql.DB 与 *sql.Conn 都满足该接口
type DB interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Options 连接选项
type Options struct {
	// BindStyle 占位符风格，模板中的 ? 会被改写
	BindStyle drivers.BindStyle
	// NoTransactions 驱动不支持事务时置为 true，SetAutoCommit 将返回 ErrNotSupported
	NoTransactions bool
	// TxOptions 开启事务时使用的选项
	TxOptions *sql.TxOptions
	// ErrorCode 从驱动错误中提取厂商错误码（可选）
	ErrorCode func(error) string
}

// Conn 实现 batchinsert.Conn
type Conn struct {
	db         DB
	opts       Options
	autoCommit bool
	tx         *sql.Tx
}

var (
	_ batchinsert.Conn          = (*Conn)(nil)
	_ batchinsert.Rollbacker    = (*Conn)(nil)
	_ batchinsert.AutoCommitter = (*Conn)(nil)
)

// New 创建连接适配，初始为 auto-commit 模式
func New(db DB, opts Options) *Conn {
	return &Conn{db: db, opts: opts, autoCommit: true}
}

// AutoCommit 当前 auto-commit 状态
func (c *Conn) AutoCommit() bool { return c.autoCommit }

// InTx 是否存在未决事务
func (c *Conn) InTx() bool { return c.tx != nil }

func (c *Conn) SetAutoCommit(ctx context.Context, enabled bool) error {
	if c.opts.NoTransactions {
		return batchinsert.ErrNotSupported
	}
	if enabled == c.autoCommit {
		return nil
	}
	if enabled && c.tx != nil {
		tx := c.tx
		c.tx = nil
		if err := tx.Commit(); err != nil {
			return c.wrap(err)
		}
	}
	c.autoCommit = enabled
	return nil
}

func (c *Conn) Commit(ctx context.Context) error {
	if c.tx == nil {
		return nil
	}
	tx := c.tx
	c.tx = nil
	return c.wrap(tx.Commit())
}

func (c *Conn) Rollback(ctx context.Context) error {
	if c.tx == nil {
		return nil
	}
	tx := c.tx
	c.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return c.wrap(err)
	}
	return nil
}

// ClearWarnings database/sql 不暴露驱动警告，无需处理
func (c *Conn) ClearWarnings() {}

func (c *Conn) Prepare(ctx context.Context, query string) (batchinsert.Stmt, error) {
	p, err := c.preparer(ctx)
	if err != nil {
		return nil, err
	}
	stmt, err := p.PrepareContext(ctx, drivers.Rebind(query, c.opts.BindStyle))
	if err != nil {
		return nil, c.wrap(err)
	}
	return &Stmt{conn: c, stmt: stmt}, nil
}

func (c *Conn) preparer(ctx context.Context) (preparer, error) {
	if c.autoCommit {
		return c.db, nil
	}
	if c.tx == nil {
		tx, err := c.db.BeginTx(ctx, c.opts.TxOptions)
		if err != nil {
			return nil, fmt.Errorf("begin transaction: %w", c.wrap(err))
		}
		c.tx = tx
	}
	return c.tx, nil
}

func (c *Conn) wrap(err error) error {
	if err == nil || c.opts.ErrorCode == nil {
		return err
	}
	if code := c.opts.ErrorCode(err); code != "" {
		return &batchinsert.DriverError{Code: code, Err: err}
	}
	return err
}

// Stmt 实现 batchinsert.Stmt，批次在内存中累积
type Stmt struct {
	conn  *Conn
	stmt  *sql.Stmt
	args  []any
	batch [][]any
}

var _ batchinsert.Stmt = (*Stmt)(nil)

func (s *Stmt) Bind(position int, value any) error {
	if position < 1 {
		return fmt.Errorf("invalid parameter position %d", position)
	}
	for len(s.args) < position {
		s.args = append(s.args, nil)
	}
	s.args[position-1] = value
	return nil
}

func (s *Stmt) AddBatch() error {
	row := make([]any, len(s.args))
	copy(row, s.args)
	s.batch = append(s.batch, row)
	s.args = s.args[:0]
	return nil
}

func (s *Stmt) ExecBatch(ctx context.Context) error {
	batch := s.batch
	s.batch = nil
	for i, row := range batch {
		if _, err := s.stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("batch row %d: %w", i, s.conn.wrap(err))
		}
	}
	return nil
}

func (s *Stmt) ExecUpdate(ctx context.Context) (int64, error) {
	args := s.args
	s.args = nil
	res, err := s.stmt.ExecContext(ctx, args...)
	if err != nil {
		return 0, s.conn.wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		// 部分驱动不支持 RowsAffected
		return int64(-1), nil
	}
	return n, nil
}

func (s *Stmt) Close() error {
	return s.stmt.Close()
}
