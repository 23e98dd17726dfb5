package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rushairer/batchinsert"
	"github.com/rushairer/batchinsert/drivers/mock"
	"github.com/rushairer/batchinsert/drivers/mysql"
	"github.com/rushairer/batchinsert/drivers/pgxbatch"
	"github.com/rushairer/batchinsert/drivers/postgresql"
	"github.com/rushairer/batchinsert/drivers/sqlite"
)

// target 打开的数据库连接
type target struct {
	conn  batchinsert.Conn
	exec  func(ctx context.Context, query string) error
	close func() error
}

func openTarget(ctx context.Context, cfg *Config) (*target, error) {
	switch cfg.Driver {
	case "mock":
		return &target{
			conn:  mock.NewConn(),
			exec:  func(context.Context, string) error { return nil },
			close: func() error { return nil },
		}, nil
	case "pgx":
		pg, err := pgxbatch.Connect(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return &target{
			conn: pgxbatch.New(pg),
			exec: func(ctx context.Context, query string) error {
				_, err := pg.Exec(ctx, query)
				return err
			},
			close: func() error { return pg.Close(context.Background()) },
		}, nil
	}

	var (
		db   *sql.DB
		conn batchinsert.Conn
		err  error
	)
	switch cfg.Driver {
	case "mysql":
		if db, err = mysql.Open(cfg.DSN); err == nil {
			conn = mysql.NewConn(db)
		}
	case "postgresql":
		if db, err = postgresql.Open(cfg.DSN); err == nil {
			conn = postgresql.NewConn(db)
		}
	case "sqlite":
		if db, err = sqlite.Open(cfg.DSN); err == nil {
			conn = sqlite.NewConn(db)
		}
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}
	return &target{
		conn: conn,
		exec: func(ctx context.Context, query string) error {
			_, err := db.ExecContext(ctx, query)
			return err
		},
		close: db.Close,
	}, nil
}
