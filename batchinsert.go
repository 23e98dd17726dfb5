// Package batchinsert converts typed column buffers into bulk INSERT operations
package batchinsert

import (
	"database/sql"

	"github.com/rs/zerolog"
)

// BatchInserter 列式数据到行式批量插入的适配器
//
// 每列一个缓冲区（对应 SQL 中一个参数位置），全部设置后调用
// ExecuteBatch（原生批量）或 ExecuteBigQueryBatch（多值分块）写入数据库。
// 无论成功失败，执行结束后缓冲区与行数都会被清空。
//
// 非并发安全：同一实例的调用需由调用方串行化，或每个并发批次使用独立实例。
type BatchInserter struct {
	conn        Conn
	sql         string
	columnCount int
	columns     []Column
	rowCount    int

	strategy        Strategy
	chunkLimit      int
	logger          zerolog.Logger
	metricsReporter MetricsReporter
	resultSink      ResultSink
}

// NewBatchInserter 创建插入器
// 参数：
// - conn: 数据库连接（调用方管理生命周期）
// - sql: 带位置占位符的 INSERT 模板；多值插入时为含第一组 VALUES 的基础语句
// - columnCount: 参数个数
func NewBatchInserter(conn Conn, sql string, columnCount int) (*BatchInserter, error) {
	if conn == nil {
		return nil, ErrNilConnection
	}
	if columnCount <= 0 {
		return nil, ErrInvalidColumnCount
	}
	return &BatchInserter{
		conn:            conn,
		sql:             sql,
		columnCount:     columnCount,
		columns:         make([]Column, columnCount),
		strategy:        StrategyNativeBatch,
		chunkLimit:      DefaultChunkLimit,
		logger:          zerolog.Nop(),
		metricsReporter: NoopMetricsReporter{},
	}, nil
}

// NewBatchInserterWithConfig 创建插入器并应用配置
func NewBatchInserterWithConfig(conn Conn, sql string, columnCount int, cfg *Config) (*BatchInserter, error) {
	b, err := NewBatchInserter(conn, sql, columnCount)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return b, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b.strategy, _ = ParseStrategy(cfg.Strategy)
	b.chunkLimit = cfg.ChunkLimit
	return b, nil
}

// WithLogger 设置日志
func (b *BatchInserter) WithLogger(logger zerolog.Logger) *BatchInserter {
	b.logger = logger.With().Str("component", "batchinsert").Logger()
	return b
}

// WithMetricsReporter 设置指标报告器
func (b *BatchInserter) WithMetricsReporter(metricsReporter MetricsReporter) *BatchInserter {
	if metricsReporter == nil {
		metricsReporter = NoopMetricsReporter{}
	}
	b.metricsReporter = metricsReporter
	return b
}

// WithResultSink 设置执行结果接收者
func (b *BatchInserter) WithResultSink(sink ResultSink) *BatchInserter {
	b.resultSink = sink
	return b
}

// WithChunkLimit 设置多值插入每块最大行数（limit <= 0 时使用默认值 1000）
func (b *BatchInserter) WithChunkLimit(limit int) *BatchInserter {
	if limit <= 0 {
		limit = DefaultChunkLimit
	}
	b.chunkLimit = limit
	return b
}

// WithStrategy 设置 Execute 使用的策略
func (b *BatchInserter) WithStrategy(strategy Strategy) *BatchInserter {
	b.strategy = strategy
	return b
}

// ColumnCount 参数个数
func (b *BatchInserter) ColumnCount() int { return b.columnCount }

// RowCount 当前批次行数（由最后一次设置的列决定）
func (b *BatchInserter) RowCount() int { return b.rowCount }

// SetColumn 设置第 index 列（从 1 开始），替换已有缓冲并把批次行数设为该列长度
// 长度不一致不会在此报错，而是在执行前校验。
func (b *BatchInserter) SetColumn(index int, column Column) error {
	if index < 1 || index > b.columnCount {
		return &ColumnError{Index: index, Row: -1, Err: ErrColumnIndexOutOfRange}
	}
	if column == nil {
		return &ColumnError{Index: index, Row: -1, Err: ErrMissingColumn}
	}
	b.columns[index-1] = column
	b.rowCount = column.Len()
	return nil
}

// SetInteger 设置 Integer32 列
func (b *BatchInserter) SetInteger(index int, values []int32) error {
	return b.SetColumn(index, NewInteger32Column(values))
}

// SetNumeric 设置 Numeric 列
func (b *BatchInserter) SetNumeric(index int, values []float64) error {
	return b.SetColumn(index, NewNumericColumn(values))
}

// SetString 设置 String 列
func (b *BatchInserter) SetString(index int, values []sql.NullString) error {
	return b.SetColumn(index, NewStringColumn(values))
}

// SetDate 设置 Date 列
func (b *BatchInserter) SetDate(index int, values []sql.NullString) error {
	return b.SetColumn(index, NewDateColumn(values))
}

// SetDateTime 设置 DateTime 列
func (b *BatchInserter) SetDateTime(index int, values []sql.NullString) error {
	return b.SetColumn(index, NewDateTimeColumn(values))
}

// SetBigint 设置 Integer64 列，输入为按位编码的 float64
func (b *BatchInserter) SetBigint(index int, encoded []float64) error {
	return b.SetColumn(index, NewEncodedInteger64Column(encoded))
}

// SetInteger64 设置 Integer64 列，输入为真实 int64
func (b *BatchInserter) SetInteger64(index int, values []int64) error {
	return b.SetColumn(index, NewInteger64Column(values))
}

// 单值形式：包装为长度 1 的列

func (b *BatchInserter) SetIntegerValue(index int, value int32) error {
	return b.SetInteger(index, []int32{value})
}

func (b *BatchInserter) SetNumericValue(index int, value float64) error {
	return b.SetNumeric(index, []float64{value})
}

func (b *BatchInserter) SetStringValue(index int, value sql.NullString) error {
	return b.SetString(index, []sql.NullString{value})
}

func (b *BatchInserter) SetDateValue(index int, value sql.NullString) error {
	return b.SetDate(index, []sql.NullString{value})
}

func (b *BatchInserter) SetDateTimeValue(index int, value sql.NullString) error {
	return b.SetDateTime(index, []sql.NullString{value})
}

func (b *BatchInserter) SetBigintValue(index int, encoded float64) error {
	return b.SetBigint(index, []float64{encoded})
}

// Validate 校验所有列已设置且长度等于批次行数；无副作用
func (b *BatchInserter) Validate() error {
	for i, column := range b.columns {
		if column == nil {
			return &ColumnError{Index: i + 1, Row: -1, Err: ErrMissingColumn}
		}
		if column.Len() != b.rowCount {
			return &ColumnError{Index: i + 1, Row: -1, Err: ErrRowCountMismatch}
		}
	}
	return nil
}

// reset 清空缓冲区与行数，缓冲区从不跨批次保留
func (b *BatchInserter) reset() {
	for i := range b.columns {
		b.columns[i] = nil
	}
	b.rowCount = 0
}
