package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/coregx/updatebulk/internal/bulk"
)

func openAccounts(t *testing.T, opts ...Option) *DB {
	t.Helper()
	opts = append([]Option{WithMaxOpenConns(1)}, opts...)
	db, err := Open("sqlite", ":memory:", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.SQLDB().Exec(`CREATE TABLE accounts (
		id INTEGER PRIMARY KEY,
		balance INTEGER NOT NULL,
		password TEXT
	)`)
	require.NoError(t, err)
	_, err = db.SQLDB().Exec(`INSERT INTO accounts (id, balance) VALUES (1, 100), (2, 200), (3, 300)`)
	require.NoError(t, err)
	return db
}

func balanceOf(t *testing.T, db *DB, id int) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.SQLDB().QueryRow(`SELECT balance FROM accounts WHERE id = ?`, id).Scan(&n))
	return n
}

func TestSQLite_UpdateInBulk(t *testing.T) {
	ctx := context.Background()
	db := openAccounts(t)

	n, err := db.UpdateInBulk(ctx, accountsModel(), bulk.ByKey{
		1: {"balance": 10},
		2: {"balance": 20},
		9: {"balance": 90},
	}, bulk.WithFormula("balance", "add"))
	require.NoError(t, err)

	assert.Equal(t, int64(2), n)
	assert.Equal(t, int64(110), balanceOf(t, db, 1))
	assert.Equal(t, int64(220), balanceOf(t, db, 2))
	assert.Equal(t, int64(300), balanceOf(t, db, 3))

	n, err = db.UpdateInBulk(ctx, accountsModel(), bulk.ByKey{
		1: {"balance": 10},
		2: {"balance": 20},
		9: {"balance": 90},
	}, bulk.WithFormula("balance", "add"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, int64(120), balanceOf(t, db, 1))
	assert.Equal(t, uint64(1), db.CacheStats().Hits)
}

func TestSQLite_SimplePath(t *testing.T) {
	db := openAccounts(t)

	n, err := db.UpdateInBulk(context.Background(), accountsModel(), bulk.Pairs{
		{Conditions: bulk.Conditions{"id": 3}, Assignments: bulk.Assignments{"balance": 0}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, int64(0), balanceOf(t, db, 3))
}

func TestSQLite_TxRollback(t *testing.T) {
	ctx := context.Background()
	db := openAccounts(t)

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	n, err := tx.UpdateInBulk(ctx, accountsModel(), bulk.ByKey{
		1: {"balance": 1},
		2: {"balance": 2},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, tx.Rollback())

	assert.Equal(t, int64(100), balanceOf(t, db, 1))
	assert.Equal(t, int64(200), balanceOf(t, db, 2))
	assert.Zero(t, db.CacheStats().Size)
}

func TestSQLite_TxCommit(t *testing.T) {
	ctx := context.Background()
	db := openAccounts(t)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	_, err = tx.UpdateInBulk(ctx, accountsModel(), bulk.ByKey{
		1: {"balance": 1},
		2: {"balance": 2},
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, int64(1), balanceOf(t, db, 1))
	assert.Equal(t, int64(2), balanceOf(t, db, 2))
}

func TestSQLite_Explain(t *testing.T) {
	ctx := context.Background()
	db := openAccounts(t)

	stmt, err := db.CompileUpdateInBulk(ctx, accountsModel(), bulk.ByKey{
		1: {"balance": 10},
		2: {"balance": 20},
	})
	require.NoError(t, err)

	plan, err := db.Explain(ctx, stmt)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", plan.Database)
	assert.NotEmpty(t, plan.RawOutput)
	assert.Equal(t, int64(100), balanceOf(t, db, 1), "explain must not apply the update")

	_, err = db.Explain(ctx, nil)
	assert.Error(t, err)
}

func TestSQLite_Advise(t *testing.T) {
	ctx := context.Background()
	db := openAccounts(t)

	stmt, err := db.CompileUpdateInBulk(ctx, accountsModel(), bulk.ByKey{
		1: {"balance": 10},
		2: {"balance": 20},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, stmt.ConditionColumns)

	analysis, err := db.Advise(ctx, accountsModel(), stmt)
	require.NoError(t, err)
	require.NotNil(t, analysis.QueryPlan)
	assert.Empty(t, analysis.MissingIndexes, "rows are matched on the primary key")
}
