package benchmark

import (
	"context"
	"fmt"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/coregx/updatebulk"
)

type User struct {
	ID    int64  `db:"id,pk"`
	Name  string `db:"name"`
	Email string `db:"email"`
	Age   int64  `db:"age"`
}

// setupBenchDB creates an in-memory SQLite database seeded with rows users.
func setupBenchDB(b *testing.B, rows int) (*updatebulk.DB, *updatebulk.Model) {
	db, err := updatebulk.Open("sqlite", ":memory:", updatebulk.WithMaxOpenConns(1))
	if err != nil {
		b.Fatalf("Failed to open database: %v", err)
	}
	b.Cleanup(func() {
		db.Close()
	})

	ctx := context.Background()
	_, err = db.SQLDB().ExecContext(ctx, `
		CREATE TABLE users (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			age INTEGER
		)
	`)
	if err != nil {
		b.Fatalf("Failed to create table: %v", err)
	}
	for i := 1; i <= rows; i++ {
		_, err := db.SQLDB().ExecContext(ctx, `INSERT INTO users (id, name, email, age) VALUES (?, ?, ?, ?)`,
			i, fmt.Sprintf("User %d", i), fmt.Sprintf("user%d@example.com", i), 20)
		if err != nil {
			b.Fatalf("Failed to seed: %v", err)
		}
	}

	model, err := updatebulk.ModelOf(User{})
	if err != nil {
		b.Fatalf("Failed to build model: %v", err)
	}
	return db, model
}

func ageBatch(rows, iteration int) updatebulk.ByKey {
	batch := make(updatebulk.ByKey, rows)
	for j := 1; j <= rows; j++ {
		batch[j] = updatebulk.Assignments{"age": 20 + (iteration+j)%50}
	}
	return batch
}

func benchmarkBulk(b *testing.B, rows int) {
	db, model := setupBenchDB(b, rows)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := db.UpdateInBulk(ctx, model, ageBatch(rows, i)); err != nil {
			b.Fatalf("Bulk update failed: %v", err)
		}
	}
}

// benchmarkRowByRow is the baseline: one prepared UPDATE per row in a
// transaction.
func benchmarkRowByRow(b *testing.B, rows int) {
	db, _ := setupBenchDB(b, rows)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tx, err := db.SQLDB().BeginTx(ctx, nil)
		if err != nil {
			b.Fatalf("Begin failed: %v", err)
		}
		stmt, err := tx.PrepareContext(ctx, `UPDATE users SET age = ? WHERE id = ?`)
		if err != nil {
			b.Fatalf("Prepare failed: %v", err)
		}
		for j := 1; j <= rows; j++ {
			if _, err := stmt.ExecContext(ctx, 20+(i+j)%50, j); err != nil {
				b.Fatalf("Update failed: %v", err)
			}
		}
		stmt.Close()
		if err := tx.Commit(); err != nil {
			b.Fatalf("Commit failed: %v", err)
		}
	}
}

func BenchmarkBulkUpdate_10rows(b *testing.B)   { benchmarkBulk(b, 10) }
func BenchmarkBulkUpdate_100rows(b *testing.B)  { benchmarkBulk(b, 100) }
func BenchmarkBulkUpdate_1000rows(b *testing.B) { benchmarkBulk(b, 1000) }

func BenchmarkRowByRow_10rows(b *testing.B)   { benchmarkRowByRow(b, 10) }
func BenchmarkRowByRow_100rows(b *testing.B)  { benchmarkRowByRow(b, 100) }
func BenchmarkRowByRow_1000rows(b *testing.B) { benchmarkRowByRow(b, 1000) }

// BenchmarkCompile_100rows measures compilation alone.
func BenchmarkCompile_100rows(b *testing.B) {
	db, model := setupBenchDB(b, 0)
	ctx := context.Background()
	batch := ageBatch(100, 0)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := db.CompileUpdateInBulk(ctx, model, batch, updatebulk.WithFormula("age", updatebulk.FormulaMax)); err != nil {
			b.Fatalf("Compile failed: %v", err)
		}
	}
}
