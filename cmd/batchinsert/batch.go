package main

import (
	"fmt"
	"math"
	"time"

	"github.com/rushairer/batchinsert"
)

// eventColumns 合成数据覆盖全部六种列类型
const eventColumns = 6

func createTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INTEGER,
	score DOUBLE PRECISION,
	name VARCHAR(64),
	day DATE,
	created_at TIMESTAMP,
	seq BIGINT
)`, table)
}

func insertSQL(table string) string {
	return fmt.Sprintf("INSERT INTO %s (id, score, name, day, created_at, seq) VALUES (?, ?, ?, ?, ?, ?)", table)
}

// fillBatch 生成 rows 行列式数据；每 nullEvery 行整行为 NULL（0 表示不生成）
func fillBatch(b *batchinsert.BatchInserter, rows, nullEvery int, base time.Time) error {
	ids := make([]int32, rows)
	scores := make([]float64, rows)
	seqs := make([]float64, rows)
	names := make([]string, rows)
	days := make([]string, rows)
	stamps := make([]string, rows)

	for i := 0; i < rows; i++ {
		t := base.Add(time.Duration(i) * time.Minute)
		ids[i] = int32(i)
		scores[i] = float64(i) * 0.25
		seqs[i] = batchinsert.EncodeInteger64(int64(i) << 33)
		names[i] = fmt.Sprintf("event-%d", i)
		days[i] = t.Format("2006-01-02")
		stamps[i] = t.Format("2006-01-02 15:04:05")
	}

	nameCol := batchinsert.Text(names...)
	dayCol := batchinsert.Text(days...)
	stampCol := batchinsert.Text(stamps...)
	if nullEvery > 0 {
		for i := 0; i < rows; i += nullEvery {
			ids[i] = batchinsert.NullInteger32
			scores[i] = math.NaN()
			seqs[i] = batchinsert.EncodeInteger64(batchinsert.NullInteger64)
			nameCol[i].Valid = false
			dayCol[i].Valid = false
			stampCol[i].Valid = false
		}
	}

	for _, err := range []error{
		b.SetInteger(1, ids),
		b.SetNumeric(2, scores),
		b.SetString(3, nameCol),
		b.SetDate(4, dayCol),
		b.SetDateTime(5, stampCol),
		b.SetBigint(6, seqs),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

// selfCheckFixtures 按位编码的 1, -1, 2^33, -2^33
func selfCheckFixtures() []float64 {
	return []float64{
		batchinsert.EncodeInteger64(1),
		batchinsert.EncodeInteger64(-1),
		batchinsert.EncodeInteger64(1 << 33),
		batchinsert.EncodeInteger64(-(1 << 33)),
	}
}
