package postgresql

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/rushairer/batchinsert/drivers"
	"github.com/rushairer/batchinsert/drivers/sqldb"
)

// DriverName lib/pq 注册的驱动名
const DriverName = "postgres"

// DefaultOptions PostgreSQL 连接选项：模板中的 ? 改写为 $n，错误码为 SQLSTATE
var DefaultOptions = sqldb.Options{
	BindStyle: drivers.BindDollar,
	ErrorCode: ErrorCode,
}

// NewConn 包装已打开的 PostgreSQL 连接
func NewConn(db sqldb.DB) *sqldb.Conn {
	return sqldb.New(db, DefaultOptions)
}

// Open 打开 PostgreSQL 数据库
func Open(dsn string) (*sql.DB, error) {
	return sql.Open(DriverName, dsn)
}

// ErrorCode 提取 SQLSTATE，例如 23505（唯一约束冲突）
func ErrorCode(err error) string {
	var pe *pq.Error
	if errors.As(err, &pe) {
		return string(pe.Code)
	}
	return ""
}
