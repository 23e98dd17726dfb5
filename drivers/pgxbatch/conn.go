// Package pgxbatch 基于 pgx 的连接适配，原生批量使用 pgx.Batch 一次往返发送
package pgxbatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rushairer/batchinsert"
	"github.com/rushairer/batchinsert/drivers"
)

// Querier *pgx.Conn 与 *pgxpool.Pool 都满足该接口
type Querier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Conn 实现 batchinsert.Conn
type Conn struct {
	q          Querier
	autoCommit bool
	tx         pgx.Tx
}

var (
	_ batchinsert.Conn          = (*Conn)(nil)
	_ batchinsert.Rollbacker    = (*Conn)(nil)
	_ batchinsert.AutoCommitter = (*Conn)(nil)
)

// New 创建连接适配，初始为 auto-commit 模式
func New(q Querier) *Conn {
	return &Conn{q: q, autoCommit: true}
}

// Connect 解析 DSN 并建立单个连接
func Connect(ctx context.Context, dsn string) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return conn, nil
}

func (c *Conn) AutoCommit() bool { return c.autoCommit }

func (c *Conn) SetAutoCommit(ctx context.Context, enabled bool) error {
	if enabled == c.autoCommit {
		return nil
	}
	if enabled && c.tx != nil {
		tx := c.tx
		c.tx = nil
		if err := tx.Commit(ctx); err != nil {
			return wrap(err)
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
	return wrap(tx.Commit(ctx))
}

func (c *Conn) Rollback(ctx context.Context) error {
	if c.tx == nil {
		return nil
	}
	tx := c.tx
	c.tx = nil
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return wrap(err)
	}
	return nil
}

// ClearWarnings PostgreSQL NOTICE 由 pgconn 回调处理，这里无状态
func (c *Conn) ClearWarnings() {}

// Prepare 仅记录 SQL；pgx 默认按语句缓存预编译
func (c *Conn) Prepare(ctx context.Context, query string) (batchinsert.Stmt, error) {
	return &Stmt{conn: c, sql: drivers.Rebind(query, drivers.BindDollar)}, nil
}

func (c *Conn) target(ctx context.Context) (execer, error) {
	if c.autoCommit {
		return c.q, nil
	}
	if c.tx == nil {
		tx, err := c.q.Begin(ctx)
		if err != nil {
			return nil, fmt.Errorf("begin transaction: %w", wrap(err))
		}
		c.tx = tx
	}
	return c.tx, nil
}

// Stmt 实现 batchinsert.Stmt
type Stmt struct {
	conn  *Conn
	sql   string
	args  []any
	batch [][]any
}

var _ batchinsert.Stmt = (*Stmt)(nil)

// SQL 改写后的语句文本
func (s *Stmt) SQL() string { return s.sql }

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
	rows := s.batch
	s.batch = nil
	if len(rows) == 0 {
		return nil
	}
	t, err := s.conn.target(ctx)
	if err != nil {
		return err
	}

	b := &pgx.Batch{}
	for _, row := range rows {
		b.Queue(s.sql, row...)
	}
	br := t.SendBatch(ctx, b)
	for i := range rows {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("batch row %d: %w", i, wrap(err))
		}
	}
	return wrap(br.Close())
}

func (s *Stmt) ExecUpdate(ctx context.Context) (int64, error) {
	args := s.args
	s.args = nil
	t, err := s.conn.target(ctx)
	if err != nil {
		return 0, err
	}
	tag, err := t.Exec(ctx, s.sql, args...)
	if err != nil {
		return 0, wrap(err)
	}
	return tag.RowsAffected(), nil
}

func (s *Stmt) Close() error { return nil }

// ErrorCode 提取 SQLSTATE
func ErrorCode(err error) string {
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	if code := ErrorCode(err); code != "" {
		return &batchinsert.DriverError{Code: code, Err: err}
	}
	return err
}
