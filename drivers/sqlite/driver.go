package sqlite

import (
	"database/sql"
	"errors"
	"strconv"

	"github.com/mattn/go-sqlite3"

	"github.com/rushairer/batchinsert/drivers"
	"github.com/rushairer/batchinsert/drivers/sqldb"
)

// DriverName go-sqlite3 注册的驱动名
const DriverName = "sqlite3"

// DefaultOptions SQLite 连接选项：? 占位符，错误码为扩展结果码
var DefaultOptions = sqldb.Options{
	BindStyle: drivers.BindQuestion,
	ErrorCode: ErrorCode,
}

// NewConn 包装已打开的 SQLite 连接
func NewConn(db sqldb.DB) *sqldb.Conn {
	return sqldb.New(db, DefaultOptions)
}

// Open 打开 SQLite 数据库；SQLite 单写者，限制为一个连接
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// ErrorCode 提取扩展结果码，例如 2067（SQLITE_CONSTRAINT_UNIQUE）
func ErrorCode(err error) string {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return strconv.Itoa(int(se.ExtendedCode))
	}
	return ""
}
