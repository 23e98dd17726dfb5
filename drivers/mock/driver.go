// Package mock 记录式内存连接，用于测试与演练
package mock

import (
	"context"
	"errors"
	"fmt"

	"github.com/rushairer/batchinsert"
)

// Conn 实现 batchinsert.Conn，记录所有调用
type Conn struct {
	// Statements 按准备顺序记录的语句
	Statements []*Stmt
	// AutoCommitCalls 每次 SetAutoCommit 的参数
	AutoCommitCalls []bool
	Commits         int
	Rollbacks       int
	WarningsCleared int

	// UnsupportedAutoCommit 模拟不支持切换 auto-commit 的驱动
	UnsupportedAutoCommit bool
	// ExecErr 执行失败时返回的错误
	ExecErr error
	// FailAtStatement 第几条语句（从 1 开始）执行失败；0 表示只要 ExecErr 非空就全部失败
	FailAtStatement int
	// PrepareErr 准备语句时返回的错误
	PrepareErr error

	autoCommit bool
	pending    []any
	committed  []any
}

var (
	_ batchinsert.Conn          = (*Conn)(nil)
	_ batchinsert.Rollbacker    = (*Conn)(nil)
	_ batchinsert.AutoCommitter = (*Conn)(nil)
)

// NewConn 创建模拟连接，初始为 auto-commit 模式
func NewConn() *Conn {
	return &Conn{autoCommit: true}
}

func (c *Conn) AutoCommit() bool { return c.autoCommit }

func (c *Conn) SetAutoCommit(ctx context.Context, enabled bool) error {
	c.AutoCommitCalls = append(c.AutoCommitCalls, enabled)
	if c.UnsupportedAutoCommit {
		return fmt.Errorf("mock: set auto-commit: %w", batchinsert.ErrNotSupported)
	}
	if enabled && !c.autoCommit {
		c.flush()
	}
	c.autoCommit = enabled
	return nil
}

func (c *Conn) Commit(ctx context.Context) error {
	c.Commits++
	c.flush()
	return nil
}

func (c *Conn) Rollback(ctx context.Context) error {
	c.Rollbacks++
	c.pending = nil
	return nil
}

func (c *Conn) ClearWarnings() { c.WarningsCleared++ }

func (c *Conn) Prepare(ctx context.Context, query string) (batchinsert.Stmt, error) {
	if c.PrepareErr != nil {
		return nil, c.PrepareErr
	}
	s := &Stmt{conn: c, SQL: query, seq: len(c.Statements) + 1}
	c.Statements = append(c.Statements, s)
	return s, nil
}

// CommittedValues 已提交的参数值（按绑定顺序展开）
func (c *Conn) CommittedValues() []any {
	out := make([]any, len(c.committed))
	copy(out, c.committed)
	return out
}

// CommittedRows 按列数切分已提交的参数值
func (c *Conn) CommittedRows(columnCount int) [][]any {
	if columnCount <= 0 {
		return nil
	}
	rows := make([][]any, 0, len(c.committed)/columnCount)
	for i := 0; i+columnCount <= len(c.committed); i += columnCount {
		rows = append(rows, c.committed[i:i+columnCount])
	}
	return rows
}

// Reset 清空记录（保留故障注入配置）
func (c *Conn) Reset() {
	c.Statements = nil
	c.AutoCommitCalls = nil
	c.Commits, c.Rollbacks, c.WarningsCleared = 0, 0, 0
	c.pending, c.committed = nil, nil
	c.autoCommit = true
}

func (c *Conn) flush() {
	c.committed = append(c.committed, c.pending...)
	c.pending = nil
}

func (c *Conn) record(values []any) {
	if c.autoCommit {
		c.committed = append(c.committed, values...)
		return
	}
	c.pending = append(c.pending, values...)
}

func (c *Conn) shouldFail(seq int) bool {
	if c.ExecErr == nil {
		return false
	}
	return c.FailAtStatement == 0 || c.FailAtStatement == seq
}

// Stmt 实现 batchinsert.Stmt
type Stmt struct {
	conn *Conn
	seq  int
	args []any

	// SQL 准备时的语句文本
	SQL string
	// Batch 通过 AddBatch 加入的行
	Batch [][]any
	// Updates 每次 ExecUpdate 的参数
	Updates [][]any
	// BatchExecutions ExecBatch 调用次数
	BatchExecutions int
	Closed          bool
}

var _ batchinsert.Stmt = (*Stmt)(nil)

func (s *Stmt) Bind(position int, value any) error {
	if s.Closed {
		return errors.New("mock: statement closed")
	}
	if position < 1 {
		return fmt.Errorf("mock: invalid parameter position %d", position)
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
	s.Batch = append(s.Batch, row)
	s.args = s.args[:0]
	return nil
}

func (s *Stmt) ExecBatch(ctx context.Context) error {
	s.BatchExecutions++
	if s.conn.shouldFail(s.seq) {
		return s.conn.ExecErr
	}
	for _, row := range s.Batch {
		s.conn.record(row)
	}
	return nil
}

func (s *Stmt) ExecUpdate(ctx context.Context) (int64, error) {
	args := make([]any, len(s.args))
	copy(args, s.args)
	s.args = s.args[:0]
	s.Updates = append(s.Updates, args)
	if s.conn.shouldFail(s.seq) {
		return 0, s.conn.ExecErr
	}
	s.conn.record(args)
	return int64(len(args)), nil
}

func (s *Stmt) Close() error {
	s.Closed = true
	return nil
}

// Params ExecUpdate 最后一次的参数个数
func (s *Stmt) Params() int {
	if len(s.Updates) == 0 {
		return 0
	}
	return len(s.Updates[len(s.Updates)-1])
}
