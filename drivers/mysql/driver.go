package mysql

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/rushairer/batchinsert/drivers"
	"github.com/rushairer/batchinsert/drivers/sqldb"
)

// DefaultOptions MySQL 连接选项：? 占位符，错误码为 MySQL 错误号
var DefaultOptions = sqldb.Options{
	BindStyle: drivers.BindQuestion,
	ErrorCode: ErrorCode,
}

// NewConn 包装已打开的 MySQL 连接
func NewConn(db sqldb.DB) *sqldb.Conn {
	return sqldb.New(db, DefaultOptions)
}

// Open 打开 MySQL 数据库；强制 parseTime，使 DATE/DATETIME 读回为 time.Time
func Open(dsn string) (*sql.DB, error) {
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	connector, err := gomysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("create mysql connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}

// ErrorCode 提取 MySQL 错误号，例如 1062（重复键）
func ErrorCode(err error) string {
	var me *gomysql.MySQLError
	if errors.As(err, &me) {
		return strconv.Itoa(int(me.Number))
	}
	return ""
}
