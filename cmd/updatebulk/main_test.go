package main

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJob(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func seedBooks(t *testing.T) string {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "books.db")
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE books (id INTEGER PRIMARY KEY, title TEXT, qty INTEGER, notes TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO books VALUES (1, 'Agile', 10, 'old'), (2, 'Refactoring', 10, 'old')`)
	require.NoError(t, err)
	return dsn
}

func TestRun_Print(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-job", writeJob(t, booksJob)}, &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	out := stdout.String()
	assert.Contains(t, out, `UPDATE "books" SET`)
	assert.Contains(t, out, `("books"."qty" + "t"."column2")`)
	assert.Contains(t, out, "upper('old')")
	assert.Contains(t, out, "-- args: [")
}

func TestRun_PrintPostgres(t *testing.T) {
	job := booksJob[len("\ndriver: sqlite"):]
	job = "driver: postgres\ndsn: postgres://localhost/none?sslmode=disable" + job

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-job", writeJob(t, job)}, &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "$1")
	assert.Contains(t, stdout.String(), `FROM (VALUES`)
}

func TestRun_Execute(t *testing.T) {
	dsn := seedBooks(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-job", writeJob(t, booksJob), "-dsn", dsn, "-execute"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "2 rows affected\n", stdout.String())

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()

	var qty int
	var notes sql.NullString
	require.NoError(t, db.QueryRow(`SELECT qty, notes FROM books WHERE id = 1`).Scan(&qty, &notes))
	assert.Equal(t, 15, qty)
	assert.Equal(t, "OLD", notes.String)

	require.NoError(t, db.QueryRow(`SELECT qty, notes FROM books WHERE id = 2`).Scan(&qty, &notes))
	assert.Equal(t, 13, qty)
	assert.False(t, notes.Valid)
}

func TestRun_Explain(t *testing.T) {
	dsn := seedBooks(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-job", writeJob(t, booksJob), "-dsn", dsn, "-explain"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), `UPDATE "books"`)
	assert.Contains(t, stdout.String(), "-- plan: index=")

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()
	var qty int
	require.NoError(t, db.QueryRow(`SELECT qty FROM books WHERE id = 1`).Scan(&qty))
	assert.Equal(t, 10, qty)
}

func TestRun_StrictRejectsSubquery(t *testing.T) {
	job := booksJob + "strict_raw: true\n"
	job = replaceOnce(job, `!raw "upper('old')"`, `!raw "(SELECT 'x')"`)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-job", writeJob(t, job)}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "unsafe raw SQL fragment")
}

func TestRun_Errors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(context.Background(), nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "-job is required")

	stderr.Reset()
	assert.Equal(t, 2, run(context.Background(), []string{"-nope"}, &stdout, &stderr))

	stderr.Reset()
	assert.Equal(t, 2, run(context.Background(), []string{"-job", "x.yaml", "-execute", "-explain"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "exclusive")

	stderr.Reset()
	assert.Equal(t, 1, run(context.Background(), []string{"-job", "missing.yaml"}, &stdout, &stderr))

	stderr.Reset()
	bad := replaceOnce(booksJob, "{qty: 3, notes: null}", "{qty: 3, color: red}")
	assert.Equal(t, 1, run(context.Background(), []string{"-job", writeJob(t, bad)}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "unknown column")
}

func replaceOnce(s, old, repl string) string {
	i := bytes.Index([]byte(s), []byte(old))
	if i < 0 {
		return s
	}
	return s[:i] + repl + s[i+len(old):]
}
