package batchinsert

import "time"

// MetricsReporter 性能监控报告器接口
type MetricsReporter interface {
	// ObserveExecuteDuration 一次执行（含所有块）的耗时；status 为 success / fail
	ObserveExecuteDuration(strategy string, rows int, d time.Duration, status string)
	// ObserveStatementRows 单条语句覆盖的行数（原生批量为整批，多值插入为每块）
	ObserveStatementRows(strategy string, n int)
	// IncError 错误计数，kind 见 ErrorKind
	IncError(strategy string, kind string)
	// IncInflight 在途执行 +1
	IncInflight()
	// DecInflight 在途执行 -1
	DecInflight()
}

// NoopMetricsReporter 默认空实现
type NoopMetricsReporter struct{}

var _ MetricsReporter = NoopMetricsReporter{}

func NewNoopMetricsReporter() NoopMetricsReporter { return NoopMetricsReporter{} }

func (NoopMetricsReporter) ObserveExecuteDuration(string, int, time.Duration, string) {}
func (NoopMetricsReporter) ObserveStatementRows(string, int)                         {}
func (NoopMetricsReporter) IncError(string, string)                                  {}
func (NoopMetricsReporter) IncInflight()                                             {}
func (NoopMetricsReporter) DecInflight()                                             {}
