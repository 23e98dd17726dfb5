package batchinsert_test

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rushairer/batchinsert"
	"github.com/rushairer/batchinsert/drivers/mock"
)

const insertSQL = "INSERT INTO t (id, name) VALUES (?, ?)"

func newInserter(t *testing.T, conn *mock.Conn, columns int) *batchinsert.BatchInserter {
	t.Helper()
	b, err := batchinsert.NewBatchInserter(conn, insertSQL, columns)
	if err != nil {
		t.Fatalf("NewBatchInserter() error = %v", err)
	}
	return b
}

func fillRows(t *testing.T, b *batchinsert.BatchInserter, n int) {
	t.Helper()
	ids := make([]int32, n)
	names := make([]sql.NullString, n)
	for i := range ids {
		ids[i] = int32(i)
		names[i] = sql.NullString{String: "n", Valid: true}
	}
	if err := b.SetInteger(1, ids); err != nil {
		t.Fatalf("SetInteger() error = %v", err)
	}
	if err := b.SetString(2, names); err != nil {
		t.Fatalf("SetString() error = %v", err)
	}
}

func TestNewBatchInserter_InvalidArgs(t *testing.T) {
	if _, err := batchinsert.NewBatchInserter(nil, insertSQL, 2); !errors.Is(err, batchinsert.ErrNilConnection) {
		t.Fatalf("expected ErrNilConnection, got %v", err)
	}
	if _, err := batchinsert.NewBatchInserter(mock.NewConn(), insertSQL, 0); !errors.Is(err, batchinsert.ErrInvalidColumnCount) {
		t.Fatalf("expected ErrInvalidColumnCount, got %v", err)
	}
}

func TestExecuteBatch_InsertsAllRows(t *testing.T) {
	conn := mock.NewConn()
	b := newInserter(t, conn, 2)
	fillRows(t, b, 5)

	if err := b.ExecuteBatch(context.Background()); err != nil {
		t.Fatalf("ExecuteBatch() error = %v", err)
	}

	if len(conn.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(conn.Statements))
	}
	stmt := conn.Statements[0]
	if stmt.SQL != insertSQL || len(stmt.Batch) != 5 || stmt.BatchExecutions != 1 {
		t.Fatalf("unexpected statement: sql=%q batch=%d exec=%d", stmt.SQL, len(stmt.Batch), stmt.BatchExecutions)
	}
	if !stmt.Closed {
		t.Fatal("statement should be closed")
	}
	rows := conn.CommittedRows(2)
	if len(rows) != 5 || rows[4][0] != int32(4) || rows[4][1] != "n" {
		t.Fatalf("unexpected committed rows: %v", rows)
	}
	if conn.Commits != 1 {
		t.Fatalf("expected 1 commit, got %d", conn.Commits)
	}
	if got := conn.AutoCommitCalls; len(got) != 2 || got[0] || !got[1] {
		t.Fatalf("auto-commit should be disabled then restored once, got %v", got)
	}
	if !conn.AutoCommit() {
		t.Fatal("auto-commit should be restored")
	}
	if conn.WarningsCleared == 0 {
		t.Fatal("warnings should be cleared")
	}
}

func TestExecuteBigQueryBatch_InsertsAllRows(t *testing.T) {
	conn := mock.NewConn()
	b := newInserter(t, conn, 2)
	fillRows(t, b, 3)

	if err := b.ExecuteBigQueryBatch(context.Background()); err != nil {
		t.Fatalf("ExecuteBigQueryBatch() error = %v", err)
	}
	if len(conn.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(conn.Statements))
	}
	stmt := conn.Statements[0]
	if want := insertSQL + ", (?, ?), (?, ?)"; stmt.SQL != want {
		t.Fatalf("SQL = %q, want %q", stmt.SQL, want)
	}
	if stmt.Params() != 6 {
		t.Fatalf("expected 6 bound params, got %d", stmt.Params())
	}
	// 位置 = 列数*行 + 列 + 1
	params := stmt.Updates[0]
	for i := 0; i < 3; i++ {
		if params[2*i] != int32(i) {
			t.Fatalf("param %d = %v, want %d", 2*i+1, params[2*i], i)
		}
	}
	if len(conn.CommittedRows(2)) != 3 {
		t.Fatalf("expected 3 committed rows, got %d", len(conn.CommittedRows(2)))
	}
}

func TestExecuteBigQueryBatch_SingleRow(t *testing.T) {
	conn := mock.NewConn()
	b := newInserter(t, conn, 2)
	fillRows(t, b, 1)

	if err := b.ExecuteBigQueryBatch(context.Background()); err != nil {
		t.Fatalf("ExecuteBigQueryBatch() error = %v", err)
	}
	if sql := conn.Statements[0].SQL; sql != insertSQL {
		t.Fatalf("single-row chunk must use the base statement unchanged, got %q", sql)
	}
}

func TestExecuteBigQueryBatch_Chunks(t *testing.T) {
	conn := mock.NewConn()
	b := newInserter(t, conn, 2)
	fillRows(t, b, 2500)

	if err := b.ExecuteBigQueryBatch(context.Background()); err != nil {
		t.Fatalf("ExecuteBigQueryBatch() error = %v", err)
	}
	if len(conn.Statements) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(conn.Statements))
	}
	wantRows := []int{1000, 1000, 500}
	for i, stmt := range conn.Statements {
		if got := strings.Count(stmt.SQL, "(?, ?)"); got != wantRows[i] {
			t.Fatalf("statement %d carries %d groups, want %d", i, got, wantRows[i])
		}
		if stmt.Params() != 2*wantRows[i] {
			t.Fatalf("statement %d bound %d params", i, stmt.Params())
		}
		if !stmt.Closed {
			t.Fatalf("statement %d not closed", i)
		}
	}
	// 第三块首行为第 2000 行
	if first := conn.Statements[2].Updates[0][0]; first != int32(2000) {
		t.Fatalf("third chunk starts at %v", first)
	}
	if conn.Commits != 3 {
		t.Fatalf("expected a commit per chunk, got %d", conn.Commits)
	}
	if len(conn.CommittedRows(2)) != 2500 {
		t.Fatalf("expected 2500 committed rows, got %d", len(conn.CommittedRows(2)))
	}
}

func TestExecuteBigQueryBatch_ExactMultiple(t *testing.T) {
	conn := mock.NewConn()
	b := newInserter(t, conn, 2).WithChunkLimit(10)
	fillRows(t, b, 20)

	if err := b.ExecuteBigQueryBatch(context.Background()); err != nil {
		t.Fatalf("ExecuteBigQueryBatch() error = %v", err)
	}
	if len(conn.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(conn.Statements))
	}
}

func TestExecute_SentinelsBindNull(t *testing.T) {
	conn := mock.NewConn()
	b, err := batchinsert.NewBatchInserter(conn, "INSERT INTO t VALUES (?, ?, ?, ?, ?, ?)", 6)
	if err != nil {
		t.Fatal(err)
	}
	for _, run := range []func(context.Context) error{b.ExecuteBatch, b.ExecuteBigQueryBatch} {
		conn.Reset()
		_ = b.SetInteger(1, []int32{batchinsert.NullInteger32})
		_ = b.SetNumeric(2, []float64{math.NaN()})
		_ = b.SetString(3, []sql.NullString{{}})
		_ = b.SetDate(4, []sql.NullString{{}})
		_ = b.SetDateTime(5, []sql.NullString{{}})
		_ = b.SetBigint(6, []float64{batchinsert.EncodeInteger64(math.MinInt64)})

		if err := run(context.Background()); err != nil {
			t.Fatalf("execute error = %v", err)
		}
		values := conn.CommittedValues()
		if len(values) != 6 {
			t.Fatalf("expected 6 values, got %d", len(values))
		}
		for i, v := range values {
			if v != nil {
				t.Fatalf("column %d should bind NULL, got %#v", i+1, v)
			}
		}
	}
}

func TestExecute_TypedValues(t *testing.T) {
	conn := mock.NewConn()
	b, err := batchinsert.NewBatchInserter(conn, "INSERT INTO t VALUES (?, ?, ?)", 3)
	if err != nil {
		t.Fatal(err)
	}
	_ = b.SetDateValue(1, sql.NullString{String: "2020-01-15", Valid: true})
	_ = b.SetBigintValue(2, batchinsert.EncodeInteger64(1<<40))
	_ = b.SetNumericValue(3, 2.5)

	if err := b.ExecuteBatch(context.Background()); err != nil {
		t.Fatalf("ExecuteBatch() error = %v", err)
	}
	values := conn.CommittedValues()
	if got := values[0].(time.Time); !got.Equal(time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date bound as %v", got)
	}
	if values[1] != int64(1<<40) {
		t.Fatalf("bigint bound as %#v", values[1])
	}
	if values[2] != 2.5 {
		t.Fatalf("numeric bound as %#v", values[2])
	}
}

func TestExecute_MissingColumn(t *testing.T) {
	conn := mock.NewConn()
	b := newInserter(t, conn, 2)
	_ = b.SetInteger(1, []int32{1, 2})

	err := b.ExecuteBatch(context.Background())
	if !errors.Is(err, batchinsert.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
	var ce *batchinsert.ColumnError
	if !errors.As(err, &ce) || ce.Index != 2 {
		t.Fatalf("expected ColumnError for column 2, got %#v", err)
	}
	if len(conn.Statements) != 0 || len(conn.AutoCommitCalls) != 0 {
		t.Fatal("no database interaction expected on validation failure")
	}
	if b.RowCount() != 0 {
		t.Fatalf("buffers should be cleared after failure, rowCount=%d", b.RowCount())
	}
}

func TestExecute_RowCountMismatch(t *testing.T) {
	conn := mock.NewConn()
	b := newInserter(t, conn, 2)
	_ = b.SetInteger(1, []int32{1, 2, 3})
	_ = b.SetString(2, batchinsert.Text("a", "b"))

	err := b.ExecuteBigQueryBatch(context.Background())
	if !errors.Is(err, batchinsert.ErrRowCountMismatch) {
		t.Fatalf("expected ErrRowCountMismatch, got %v", err)
	}
	var ce *batchinsert.ColumnError
	if !errors.As(err, &ce) || ce.Index != 1 {
		t.Fatalf("expected ColumnError for column 1, got %#v", err)
	}
	if got := batchinsert.ErrorKind(err); got != "row_count_mismatch" {
		t.Fatalf("ErrorKind = %q", got)
	}
}

func TestSetColumn_IndexOutOfRange(t *testing.T) {
	b := newInserter(t, mock.NewConn(), 2)
	for _, idx := range []int{0, 3} {
		if err := b.SetInteger(idx, []int32{1}); !errors.Is(err, batchinsert.ErrColumnIndexOutOfRange) {
			t.Fatalf("index %d: expected ErrColumnIndexOutOfRange, got %v", idx, err)
		}
	}
	if err := b.SetColumn(1, nil); !errors.Is(err, batchinsert.ErrMissingColumn) {
		t.Fatalf("nil column: expected ErrMissingColumn, got %v", err)
	}
}

func TestExecute_ResetsAfterSuccess(t *testing.T) {
	conn := mock.NewConn()
	b := newInserter(t, conn, 2)
	fillRows(t, b, 2)

	if err := b.ExecuteBatch(context.Background()); err != nil {
		t.Fatal(err)
	}
	if b.RowCount() != 0 {
		t.Fatalf("rowCount should be 0, got %d", b.RowCount())
	}
	// 缓冲区不跨批次保留
	if err := b.ExecuteBatch(context.Background()); !errors.Is(err, batchinsert.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn on reuse without new data, got %v", err)
	}
}

func TestExecute_AutoCommitUnsupported(t *testing.T) {
	conn := mock.NewConn()
	conn.UnsupportedAutoCommit = true
	b := newInserter(t, conn, 2)
	fillRows(t, b, 4)

	if err := b.ExecuteBatch(context.Background()); err != nil {
		t.Fatalf("unsupported auto-commit must be tolerated, got %v", err)
	}
	if len(conn.CommittedRows(2)) != 4 {
		t.Fatalf("expected 4 committed rows, got %d", len(conn.CommittedRows(2)))
	}
}

func TestExecute_RestoresPriorAutoCommit(t *testing.T) {
	conn := mock.NewConn()
	_ = conn.SetAutoCommit(context.Background(), false)

	b := newInserter(t, conn, 2)
	fillRows(t, b, 1)
	if err := b.ExecuteBatch(context.Background()); err != nil {
		t.Fatal(err)
	}
	if conn.AutoCommit() {
		t.Fatal("prior auto-commit=false should be restored")
	}
}

func TestExecuteBatch_FailurePropagates(t *testing.T) {
	conn := mock.NewConn()
	conn.ExecErr = errors.New("duplicate key")
	b := newInserter(t, conn, 2)
	fillRows(t, b, 3)

	err := b.ExecuteBatch(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, batchinsert.ErrStatementExecution) || !errors.Is(err, conn.ExecErr) {
		t.Fatalf("error should wrap the driver failure, got %v", err)
	}
	if conn.Rollbacks != 1 || conn.Commits != 0 {
		t.Fatalf("expected rollback without commit, rollbacks=%d commits=%d", conn.Rollbacks, conn.Commits)
	}
	if len(conn.CommittedValues()) != 0 {
		t.Fatal("nothing should be committed")
	}
	if !conn.Statements[0].Closed || !conn.AutoCommit() {
		t.Fatal("cleanup must close the statement and restore auto-commit")
	}
	if b.RowCount() != 0 {
		t.Fatal("buffers should be cleared after failure")
	}
}

func TestExecuteBigQueryBatch_FailureAbortsRemainingChunks(t *testing.T) {
	conn := mock.NewConn()
	conn.ExecErr = errors.New("quota exceeded")
	conn.FailAtStatement = 2
	b := newInserter(t, conn, 2).WithChunkLimit(10)
	fillRows(t, b, 35)

	err := b.ExecuteBigQueryBatch(context.Background())
	var se *batchinsert.StatementError
	if !errors.As(err, &se) || se.Op != "exec_update" || se.Offset != 10 {
		t.Fatalf("expected exec_update failure at offset 10, got %v", err)
	}
	if len(conn.Statements) != 2 {
		t.Fatalf("remaining chunks must not run, got %d statements", len(conn.Statements))
	}
	if len(conn.CommittedRows(2)) != 10 {
		t.Fatalf("first chunk stays committed, got %d rows", len(conn.CommittedRows(2)))
	}
	if conn.Rollbacks != 1 {
		t.Fatalf("failed chunk should be rolled back, got %d", conn.Rollbacks)
	}
	for i, stmt := range conn.Statements {
		if !stmt.Closed {
			t.Fatalf("statement %d not closed", i)
		}
	}
}

func TestExecute_PrepareFailure(t *testing.T) {
	conn := mock.NewConn()
	conn.PrepareErr = errors.New("syntax error")
	b := newInserter(t, conn, 2)
	fillRows(t, b, 1)

	err := b.ExecuteBatch(context.Background())
	var se *batchinsert.StatementError
	if !errors.As(err, &se) || se.Op != "prepare" {
		t.Fatalf("expected prepare failure, got %v", err)
	}
	if got := batchinsert.ErrorKind(err); got != "statement" {
		t.Fatalf("ErrorKind = %q", got)
	}
}

func TestExecute_InvalidDate(t *testing.T) {
	conn := mock.NewConn()
	b, _ := batchinsert.NewBatchInserter(conn, "INSERT INTO t VALUES (?)", 1)
	_ = b.SetDate(1, batchinsert.Text("2020-01-15", "not-a-date"))

	err := b.ExecuteBatch(context.Background())
	if !errors.Is(err, batchinsert.ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	var ce *batchinsert.ColumnError
	if !errors.As(err, &ce) || ce.Row != 1 {
		t.Fatalf("expected ColumnError on row 1, got %#v", err)
	}
	if len(conn.CommittedValues()) != 0 {
		t.Fatal("nothing should be committed")
	}
}

func TestExecute_CanceledContext(t *testing.T) {
	conn := mock.NewConn()
	b := newInserter(t, conn, 2)
	fillRows(t, b, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := b.ExecuteBatch(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := batchinsert.ErrorKind(err); got != "context" {
		t.Fatalf("ErrorKind = %q", got)
	}
	if !conn.AutoCommit() {
		t.Fatal("auto-commit should be restored despite cancellation")
	}
}

func TestExecute_UsesConfiguredStrategy(t *testing.T) {
	conn := mock.NewConn()
	cfg := &batchinsert.Config{Strategy: "multi_value", ChunkLimit: 2}
	b, err := batchinsert.NewBatchInserterWithConfig(conn, insertSQL, 2, cfg)
	if err != nil {
		t.Fatal(err)
	}
	fillRows(t, b, 5)

	if err := b.Execute(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(conn.Statements) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(conn.Statements))
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := batchinsert.DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	var ve *batchinsert.ValidationError
	if err := (&batchinsert.Config{Strategy: "bulk", ChunkLimit: 10}).Validate(); !errors.As(err, &ve) || ve.Field != "strategy" {
		t.Fatalf("expected strategy validation error, got %v", err)
	}
	if err := (&batchinsert.Config{ChunkLimit: 0}).Validate(); !errors.As(err, &ve) || ve.Field != "chunk_limit" {
		t.Fatalf("expected chunk_limit validation error, got %v", err)
	}
	if _, err := batchinsert.NewBatchInserterWithConfig(mock.NewConn(), insertSQL, 2, &batchinsert.Config{ChunkLimit: -1}); err == nil {
		t.Fatal("invalid config should be rejected")
	}
}

func TestErrorKind(t *testing.T) {
	cases := map[string]error{
		"":               nil,
		"missing_column": &batchinsert.ColumnError{Index: 1, Row: -1, Err: batchinsert.ErrMissingColumn},
		"invalid_value":  batchinsert.ErrInvalidValue,
		"unsupported":    batchinsert.ErrNotSupported,
		"driver:23505":   &batchinsert.StatementError{Op: "exec_batch", Err: &batchinsert.DriverError{Code: "23505", Err: errors.New("dup")}},
		"statement":      &batchinsert.StatementError{Op: "commit", Err: errors.New("x")},
		"unknown":        errors.New("other"),
	}
	for want, err := range cases {
		if got := batchinsert.ErrorKind(err); got != want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", err, got, want)
		}
	}
}
