package batchinsert

import (
	"context"
	"errors"
	"time"
)

// ExecuteBatch 原生批量执行：一条预编译语句，每行 AddBatch，一次 ExecBatch 后提交
func (b *BatchInserter) ExecuteBatch(ctx context.Context) error {
	return b.execute(ctx, StrategyNativeBatch)
}

// ExecuteBigQueryBatch 多值插入执行：按块拼接 VALUES 元组，每块一条语句并单独提交
// 适用于不支持原生批量的驱动（例如 BigQuery JDBC 类驱动）。
func (b *BatchInserter) ExecuteBigQueryBatch(ctx context.Context) error {
	return b.execute(ctx, StrategyMultiValue)
}

// Execute 使用配置的策略执行
func (b *BatchInserter) Execute(ctx context.Context) error {
	return b.execute(ctx, b.strategy)
}

func (b *BatchInserter) execute(ctx context.Context, strategy Strategy) (err error) {
	startTime := time.Now()
	rows := b.rowCount
	statements := 0

	b.metricsReporter.IncInflight()
	defer func() {
		b.reset()
		b.metricsReporter.DecInflight()
		b.report(ctx, strategy, rows, statements, time.Since(startTime), startTime, err)
	}()

	if err = b.Validate(); err != nil {
		return err
	}

	restoreAutoCommit := true
	if ac, ok := b.conn.(AutoCommitter); ok {
		restoreAutoCommit = ac.AutoCommit()
	}
	if err = b.trySettingAutoCommit(ctx, strategy, false); err != nil {
		return err
	}

	defer func() {
		// 清理阶段不受调用方取消影响
		cleanupCtx := context.WithoutCancel(ctx)
		if err != nil {
			b.rollback(cleanupCtx)
		}
		b.conn.ClearWarnings()
		if restoreErr := b.trySettingAutoCommit(cleanupCtx, strategy, restoreAutoCommit); restoreErr != nil {
			err = errors.Join(err, restoreErr)
		}
	}()

	switch strategy {
	case StrategyMultiValue:
		statements, err = b.executeMultiValue(ctx)
	default:
		statements, err = b.executeNative(ctx)
	}
	return err
}

func (b *BatchInserter) executeNative(ctx context.Context) (int, error) {
	err := b.withStatement(ctx, b.sql, 0, func(stmt Stmt) error {
		for i := 0; i < b.rowCount; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := b.bindRow(stmt, i, 0); err != nil {
				return err
			}
			if err := stmt.AddBatch(); err != nil {
				return &StatementError{Op: "add_batch", Offset: i, Err: err}
			}
		}
		if err := stmt.ExecBatch(ctx); err != nil {
			return &StatementError{Op: "exec_batch", Offset: 0, Err: err}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	b.metricsReporter.ObserveStatementRows(StrategyNativeBatch.String(), b.rowCount)

	if err := b.conn.Commit(ctx); err != nil {
		return 1, &StatementError{Op: "commit", Offset: 0, Err: err}
	}
	return 1, nil
}

func (b *BatchInserter) executeMultiValue(ctx context.Context) (int, error) {
	statements := 0
	// 按固定步长推进，循环上界为总行数
	for offset := 0; offset < b.rowCount; offset += b.chunkLimit {
		size := min(b.rowCount-offset, b.chunkLimit)
		if err := b.executeChunk(ctx, offset, size); err != nil {
			return statements, err
		}
		statements++
	}
	return statements, nil
}

func (b *BatchInserter) executeChunk(ctx context.Context, offset, size int) error {
	query := MultiValueSQL(b.sql, b.columnCount, size)
	err := b.withStatement(ctx, query, offset, func(stmt Stmt) error {
		for i := 0; i < size; i++ {
			if err := b.bindRow(stmt, offset+i, b.columnCount*i); err != nil {
				return err
			}
		}
		if _, err := stmt.ExecUpdate(ctx); err != nil {
			return &StatementError{Op: "exec_update", Offset: offset, Err: err}
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.metricsReporter.ObserveStatementRows(StrategyMultiValue.String(), size)
	b.conn.ClearWarnings()

	// 每块显式提交，不依赖驱动在恢复 auto-commit 时的隐式提交
	if err := b.conn.Commit(ctx); err != nil {
		return &StatementError{Op: "commit", Offset: offset, Err: err}
	}
	return nil
}

// withStatement 准备语句并保证在所有退出路径上关闭
func (b *BatchInserter) withStatement(ctx context.Context, query string, offset int, fn func(Stmt) error) error {
	stmt, err := b.conn.Prepare(ctx, query)
	if err != nil {
		return &StatementError{Op: "prepare", Offset: offset, Err: err}
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			b.logger.Warn().Err(closeErr).Int("offset", offset).Msg("close statement failed")
		}
	}()
	return fn(stmt)
}

// bindRow 绑定 row 行的所有列；参数位置 = base + 列序号(0-based) + 1
func (b *BatchInserter) bindRow(stmt Stmt, row, base int) error {
	for j, column := range b.columns {
		value, err := column.Value(row)
		if err != nil {
			return &ColumnError{Index: j + 1, Row: row, Err: err}
		}
		if err := stmt.Bind(base+j+1, value); err != nil {
			return &StatementError{Op: "bind", Offset: row, Err: err}
		}
	}
	return nil
}

// trySettingAutoCommit 切换 auto-commit，驱动不支持时静默忽略
func (b *BatchInserter) trySettingAutoCommit(ctx context.Context, strategy Strategy, enabled bool) error {
	err := b.conn.SetAutoCommit(ctx, enabled)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotSupported) {
		b.logger.Debug().Bool("auto_commit", enabled).Msg("driver rejected auto-commit toggle, ignored")
		b.metricsReporter.IncError(strategy.String(), "unsupported_autocommit")
		return nil
	}
	return &StatementError{Op: "autocommit", Offset: 0, Err: err}
}

func (b *BatchInserter) rollback(ctx context.Context) {
	rb, ok := b.conn.(Rollbacker)
	if !ok {
		return
	}
	if err := rb.Rollback(ctx); err != nil {
		b.logger.Warn().Err(err).Msg("rollback failed")
	}
}

func (b *BatchInserter) report(ctx context.Context, strategy Strategy, rows, statements int, d time.Duration, startTime time.Time, err error) {
	status := "success"
	if err != nil {
		status = "fail"
		b.metricsReporter.IncError(strategy.String(), ErrorKind(err))
	}
	b.metricsReporter.ObserveExecuteDuration(strategy.String(), rows, d, status)

	result := ExecutionResult{
		Success:    err == nil,
		Strategy:   strategy.String(),
		Rows:       rows,
		Statements: statements,
		StartTime:  startTime,
		Duration:   d,
	}
	if err != nil {
		result.ErrorKind = ErrorKind(err)
		result.Error = err.Error()
		b.logger.Error().Err(err).
			Str("strategy", result.Strategy).
			Int("rows", rows).
			Int("statements", statements).
			Str("error_kind", result.ErrorKind).
			Msg("batch insert failed")
	} else {
		b.logger.Debug().
			Str("strategy", result.Strategy).
			Int("rows", rows).
			Int("statements", statements).
			Dur("duration", d).
			Msg("batch insert completed")
	}

	if b.resultSink != nil {
		if sinkErr := b.resultSink.Publish(context.WithoutCancel(ctx), result); sinkErr != nil {
			b.logger.Warn().Err(sinkErr).Msg("publish execution result failed")
		}
	}
}
