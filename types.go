package batchinsert

import "time"

// ColumnType defines the storage kind of a column buffer
type ColumnType int

const (
	// Integer32 32位有符号整数，math.MinInt32 表示 NULL
	Integer32 ColumnType = iota
	// Numeric 64位浮点数，NaN 表示 NULL
	Numeric
	// String 文本
	String
	// Date 日期文本（yyyy-mm-dd）
	Date
	// DateTime 时间戳文本（yyyy-mm-dd hh:mm:ss[.fff]）
	DateTime
	// Integer64 64位有符号整数，math.MinInt64 表示 NULL
	Integer64
)

// String returns the string representation of ColumnType
func (ct ColumnType) String() string {
	switch ct {
	case Integer32:
		return "INTEGER"
	case Numeric:
		return "NUMERIC"
	case String:
		return "STRING"
	case Date:
		return "DATE"
	case DateTime:
		return "DATETIME"
	case Integer64:
		return "BIGINT"
	default:
		return "UNKNOWN"
	}
}

// Strategy defines how a batch is sent to the database
type Strategy int

const (
	// StrategyNativeBatch 单条预编译语句 + 驱动原生批量
	StrategyNativeBatch Strategy = iota
	// StrategyMultiValue 多 VALUES 元组拼接，按块执行（适用于不支持批量的驱动）
	StrategyMultiValue
)

// String returns the string representation of Strategy
func (s Strategy) String() string {
	switch s {
	case StrategyNativeBatch:
		return "native_batch"
	case StrategyMultiValue:
		return "multi_value"
	default:
		return "unknown"
	}
}

// ParseStrategy 从配置字符串解析执行策略
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "native_batch", "native":
		return StrategyNativeBatch, nil
	case "multi_value", "bigquery", "chunked":
		return StrategyMultiValue, nil
	default:
		return 0, &ValidationError{Field: "strategy", Message: "unknown strategy: " + s, Value: s}
	}
}

// ExecutionResult represents the result of a batch execution
type ExecutionResult struct {
	Success    bool          `json:"success"`
	Strategy   string        `json:"strategy"`
	Rows       int           `json:"rows"`
	Statements int           `json:"statements"`
	StartTime  time.Time     `json:"start_time"`
	Duration   time.Duration `json:"duration_ns"`
	ErrorKind  string        `json:"error_kind,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// Error implements the error interface
func (ve *ValidationError) Error() string {
	return ve.Message
}
