package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/updatebulk"
)

const booksJob = `
driver: sqlite
model:
  table: books
  primary_key: [id]
  aliases: {name: title}
  columns:
    - {name: id, type: integer}
    - {name: title, type: string}
    - {name: qty, type: integer}
    - {name: notes, type: text, nullable: true}
formulas:
  qty: add
timestamps: "false"
rows:
  - where: 1
    set: {qty: 5, notes: !raw "upper('old')"}
  - where: {id: 2}
    set: {qty: 3, notes: null}
`

func TestParseJob(t *testing.T) {
	job, err := ParseJob([]byte(booksJob))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", job.Driver)
	assert.Equal(t, "books", job.Model.Table)
	assert.Equal(t, []string{"id"}, job.Model.PrimaryKey)
	assert.Equal(t, "title", job.Model.Aliases["name"])
	assert.True(t, job.Model.Columns[3].Nullable)
	assert.Equal(t, map[string]string{"qty": "add"}, job.Formulas)

	batch := job.Batch()
	require.Len(t, batch, 2)
	assert.Equal(t, 1, batch[0].Conditions)
	assert.Equal(t, 5, batch[0].Assignments["qty"])
	assert.IsType(t, updatebulk.RawSQL(""), batch[0].Assignments["notes"])
	assert.Equal(t, updatebulk.Conditions{"id": 2}, batch[1].Conditions)
	assert.Contains(t, batch[1].Assignments, "notes")
	assert.Nil(t, batch[1].Assignments["notes"])

	opts, err := job.CompileOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 2)
}

func TestParseJob_DSNFromEnv(t *testing.T) {
	t.Setenv(dsnEnv, "file:env.db")

	job, err := ParseJob([]byte(booksJob))
	require.NoError(t, err)
	assert.Equal(t, "file:env.db", job.DSN)

	job, err = ParseJob([]byte(booksJob + "dsn: file:job.db\n"))
	require.NoError(t, err)
	assert.Equal(t, "file:job.db", job.DSN)
}

func TestParseJob_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing driver", "model: {table: t, primary_key: [id], columns: [{name: id, type: integer}]}", "driver is required"},
		{"invalid model", "driver: sqlite\nmodel: {table: t}", "job:"},
		{"bad yaml", "driver: [", "decode job"},
		{"raw mapping", "driver: sqlite\nrows: [{set: {a: !raw {x: 1}}}]", "expects a string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJob([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestJob_CompileOptionsRejectsMode(t *testing.T) {
	job := &Job{Timestamps: "sometimes"}
	_, err := job.CompileOptions()
	assert.ErrorIs(t, err, updatebulk.ErrInvalidInput)
}

func TestLoadJob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(booksJob), 0o600))

	job, err := LoadJob(path)
	require.NoError(t, err)
	assert.Len(t, job.Rows, 2)

	_, err = LoadJob(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
