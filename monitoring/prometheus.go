package monitoring

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rushairer/batchinsert"
)

// Options 配置项（可选）
type Options struct {
	Namespace   string            // 默认 "batchinsert"
	ConstLabels map[string]string // 追加到所有指标的常量标签，如 {"database":"mysql"}

	ExecuteBuckets   []float64
	StatementBuckets []float64

	// IncludeRuntime 是否注册 Go 运行时与进程指标
	IncludeRuntime bool
}

// PrometheusMetrics Prometheus指标收集器，实现MetricsReporter接口
type PrometheusMetrics struct {
	executeDuration *prometheus.HistogramVec
	executeTotal    *prometheus.CounterVec
	rowsInserted    *prometheus.CounterVec
	statementRows   *prometheus.HistogramVec
	statementsTotal *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	inflight        prometheus.Gauge

	registry *prometheus.Registry
	server   *http.Server
	mu       sync.Mutex
	logger   zerolog.Logger
}

var _ batchinsert.MetricsReporter = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics 创建并注册指标
func NewPrometheusMetrics(opts Options) *PrometheusMetrics {
	ns := opts.Namespace
	if ns == "" {
		ns = "batchinsert"
	}
	if len(opts.ExecuteBuckets) == 0 {
		opts.ExecuteBuckets = prometheus.ExponentialBuckets(0.001, 2, 15) // 1ms ~ 16s
	}
	if len(opts.StatementBuckets) == 0 {
		opts.StatementBuckets = prometheus.ExponentialBuckets(1, 2, 15) // 1 ~ 16k 行
	}
	cl := prometheus.Labels(opts.ConstLabels)

	registry := prometheus.NewRegistry()
	pm := &PrometheusMetrics{
		executeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Name:        "execute_duration_seconds",
				Help:        "Duration of one batch execution including all chunks",
				Buckets:     opts.ExecuteBuckets,
				ConstLabels: cl,
			},
			[]string{"strategy", "status"},
		),
		executeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Name:        "execute_total",
				Help:        "Total number of batch executions",
				ConstLabels: cl,
			},
			[]string{"strategy", "status"},
		),
		rowsInserted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Name:        "rows_inserted_total",
				Help:        "Total number of rows in successful executions",
				ConstLabels: cl,
			},
			[]string{"strategy"},
		),
		statementRows: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Name:        "statement_rows",
				Help:        "Rows carried by a single statement",
				Buckets:     opts.StatementBuckets,
				ConstLabels: cl,
			},
			[]string{"strategy"},
		),
		statementsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Name:        "statements_total",
				Help:        "Total number of executed statements",
				ConstLabels: cl,
			},
			[]string{"strategy"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Name:        "errors_total",
				Help:        "Total number of errors by kind",
				ConstLabels: cl,
			},
			[]string{"strategy", "kind"},
		),
		inflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Name:        "inflight_executions",
				Help:        "Executions currently running",
				ConstLabels: cl,
			},
		),
		registry: registry,
		logger:   zerolog.Nop(),
	}

	registry.MustRegister(
		pm.executeDuration,
		pm.executeTotal,
		pm.rowsInserted,
		pm.statementRows,
		pm.statementsTotal,
		pm.errorsTotal,
		pm.inflight,
	)
	if opts.IncludeRuntime {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return pm
}

// WithLogger 设置日志
func (pm *PrometheusMetrics) WithLogger(logger zerolog.Logger) *PrometheusMetrics {
	pm.logger = logger
	return pm
}

// Registry 返回底层 Registry
func (pm *PrometheusMetrics) Registry() *prometheus.Registry { return pm.registry }

// Handler /metrics 处理器
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{})
}

func (pm *PrometheusMetrics) ObserveExecuteDuration(strategy string, rows int, d time.Duration, status string) {
	pm.executeDuration.WithLabelValues(strategy, status).Observe(d.Seconds())
	pm.executeTotal.WithLabelValues(strategy, status).Inc()
	if status == "success" {
		pm.rowsInserted.WithLabelValues(strategy).Add(float64(rows))
	}
}

func (pm *PrometheusMetrics) ObserveStatementRows(strategy string, n int) {
	pm.statementRows.WithLabelValues(strategy).Observe(float64(n))
	pm.statementsTotal.WithLabelValues(strategy).Inc()
}

func (pm *PrometheusMetrics) IncError(strategy string, kind string) {
	pm.errorsTotal.WithLabelValues(strategy, kind).Inc()
}

func (pm *PrometheusMetrics) IncInflight() { pm.inflight.Inc() }
func (pm *PrometheusMetrics) DecInflight() { pm.inflight.Dec() }

// Router 返回包含 /metrics 与 /health 的路由，routes 用于追加其他端点
func (pm *PrometheusMetrics) Router(routes ...func(*gin.Engine)) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/metrics", gin.WrapH(pm.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	for _, route := range routes {
		route(router)
	}
	return router
}

// StartServer 启动Prometheus HTTP服务器
func (pm *PrometheusMetrics) StartServer(addr string, routes ...func(*gin.Engine)) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.server != nil {
		return fmt.Errorf("server already running")
	}

	pm.server = &http.Server{
		Addr:              addr,
		Handler:           pm.Router(routes...),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func(srv *http.Server) {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			pm.logger.Error().Err(err).Str("addr", addr).Msg("prometheus server error")
		}
	}(pm.server)

	return nil
}

// StopServer 停止Prometheus HTTP服务器
func (pm *PrometheusMetrics) StopServer(ctx context.Context) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.server == nil {
		return nil
	}
	err := pm.server.Shutdown(ctx)
	pm.server = nil
	return err
}
