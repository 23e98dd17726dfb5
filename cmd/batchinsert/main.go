// batchinsert 批量插入冒烟工具：生成一批列式数据，按配置的策略写入目标数据库。
//
// 用法：
//
//	batchinsert [--dev] [--config path] [--rows n]
//
// 参数：
//
//	--dev     进程内 miniredis 作为执行日志（无需外部 Redis）
//	--config  YAML 配置文件路径，为空时使用默认值
//	--rows    覆盖配置中的行数
//
// 环境变量：BATCHINSERT_DRIVER、BATCHINSERT_DSN、BATCHINSERT_STRATEGY、
// BATCHINSERT_CHUNK_LIMIT、BATCHINSERT_ROWS、BATCHINSERT_METRICS_ADDR、
// BATCHINSERT_REDIS_ADDR 等，优先级高于配置文件。
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rushairer/batchinsert"
	"github.com/rushairer/batchinsert/monitoring"
	"github.com/rushairer/batchinsert/resultlog"
)

func main() {
	dev := flag.Bool("dev", false, "dev mode: in-process miniredis result journal")
	configPath := flag.String("config", "", "path to config file")
	rowsOverride := flag.Int("rows", -1, "rows override")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("config load failed")
	}
	if *rowsOverride >= 0 {
		cfg.Rows = *rowsOverride
	}

	if !batchinsert.ValidateInteger64Encoding(selfCheckFixtures()) {
		log.Fatal().Msg("integer64 self-check failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *dev); err != nil {
		log.Error().Err(err).Str("error_kind", batchinsert.ErrorKind(err)).Msg("batch insert failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *Config, dev bool) error {
	tgt, err := openTarget(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := tgt.close(); err != nil {
			log.Warn().Err(err).Msg("close connection failed")
		}
	}()

	if cfg.CreateTable {
		if err := tgt.exec(ctx, createTableSQL(cfg.Table)); err != nil {
			return err
		}
	}

	metrics := monitoring.NewPrometheusMetrics(monitoring.Options{
		ConstLabels:    map[string]string{"database": cfg.Driver},
		IncludeRuntime: true,
	}).WithLogger(log.Logger)

	journal, closeJournal, err := openJournal(cfg, dev)
	if err != nil {
		return err
	}
	defer closeJournal()

	if cfg.Metrics.Addr != "" {
		if err := metrics.StartServer(cfg.Metrics.Addr, resultRoute(journal)); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metrics.StopServer(shutdownCtx)
		}()
		log.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics endpoint started")
	}

	b, err := batchinsert.NewBatchInserterWithConfig(tgt.conn, insertSQL(cfg.Table), eventColumns, &cfg.Insert)
	if err != nil {
		return err
	}
	b.WithLogger(log.Logger).WithMetricsReporter(metrics)
	if journal != nil {
		b.WithResultSink(journal)
	}

	if err := fillBatch(b, cfg.Rows, 10, time.Now().UTC().Truncate(time.Second)); err != nil {
		return err
	}

	log.Info().
		Str("driver", cfg.Driver).
		Str("table", cfg.Table).
		Str("strategy", cfg.Insert.Strategy).
		Int("chunk_limit", cfg.Insert.ChunkLimit).
		Int("rows", cfg.Rows).
		Msg("executing batch")

	start := time.Now()
	if err := b.Execute(ctx); err != nil {
		return err
	}
	log.Info().Int("rows", cfg.Rows).Dur("duration", time.Since(start)).Msg("batch committed")

	if journal != nil {
		if rec, err := journal.Last(ctx); err == nil {
			log.Info().
				Str("status", rec.Status).
				Int("statements", rec.Statements).
				Str("key", journal.StateKey()).
				Msg("result journal")
		}
	}

	if cfg.Metrics.Addr != "" && cfg.Metrics.Hold > 0 {
		log.Info().Dur("hold", cfg.Metrics.Hold).Msg("holding metrics endpoint")
		select {
		case <-time.After(cfg.Metrics.Hold):
		case <-ctx.Done():
		}
	}
	return nil
}

// resultRoute GET /result 返回最近一次执行日志
func resultRoute(journal *resultlog.RedisPublisher) func(*gin.Engine) {
	return func(r *gin.Engine) {
		r.GET("/result", func(c *gin.Context) {
			if journal == nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "result journal disabled"})
				return
			}
			rec, err := journal.Last(c.Request.Context())
			if errors.Is(err, redis.Nil) {
				c.JSON(http.StatusNotFound, gin.H{"error": "no result yet"})
				return
			}
			if err != nil {
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, rec)
		})
	}
}

func openJournal(cfg *Config, dev bool) (*resultlog.RedisPublisher, func(), error) {
	if !dev && !cfg.ResultLog.Enabled {
		return nil, func() {}, nil
	}

	rlCfg := cfg.ResultLog.Config
	var mr *miniredis.Miniredis
	if dev {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, nil, err
		}
		rlCfg.Address = mr.Addr()
		log.Warn().Str("addr", mr.Addr()).Msg("DEV MODE: in-process miniredis result journal")
	}

	journal := resultlog.NewRedisPublisher(rlCfg)
	return journal, func() {
		_ = journal.Close()
		if mr != nil {
			mr.Close()
		}
	}, nil
}
