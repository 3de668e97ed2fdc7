//go:build integration
// +build integration

package test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO required)

	"github.com/coregx/updatebulk"
)

// DatabaseSetup encapsulates database connection and cleanup.
type DatabaseSetup struct {
	DB        *updatebulk.DB
	Container testcontainers.Container
	Dialect   string
}

// Close cleans up database resources.
func (ds *DatabaseSetup) Close() {
	if ds.DB != nil {
		ds.DB.Close() //nolint:errcheck
	}
	if ds.Container != nil {
		ds.Container.Terminate(context.Background()) //nolint:errcheck
	}
}

// SetupPostgreSQLTestDB creates a PostgreSQL test database.
// Uses testcontainers if available, falls back to env DSN.
func SetupPostgreSQLTestDB(t *testing.T) *DatabaseSetup {
	ctx := context.Background()

	if dsn := os.Getenv("POSTGRES_TEST_DSN"); dsn != "" {
		db, err := updatebulk.Open("postgres", dsn)
		require.NoError(t, err)
		return &DatabaseSetup{DB: db, Dialect: "postgres"}
	}

	pgContainer, err := postgres.Run(
		ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skip("Docker not available for PostgreSQL integration tests: " + err.Error())
	}

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := updatebulk.Open("postgres", dsn)
	require.NoError(t, err)

	return &DatabaseSetup{DB: db, Container: pgContainer, Dialect: "postgres"}
}

// SetupMySQLTestDB creates a MySQL test database and detects its version,
// which gates the row source syntax.
func SetupMySQLTestDB(t *testing.T) *DatabaseSetup {
	ctx := context.Background()

	if dsn := os.Getenv("MYSQL_TEST_DSN"); dsn != "" {
		if !strings.Contains(dsn, "parseTime=true") {
			if strings.Contains(dsn, "?") {
				dsn += "&parseTime=true"
			} else {
				dsn += "?parseTime=true"
			}
		}
		db, err := updatebulk.Open("mysql", dsn)
		require.NoError(t, err)
		require.NoError(t, db.DetectCapabilities(ctx))
		return &DatabaseSetup{DB: db, Dialect: "mysql"}
	}

	mysqlContainer, err := mysql.Run(
		ctx,
		"mysql:8.0",
		mysql.WithDatabase("testdb"),
		mysql.WithUsername("user"),
		mysql.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("port: 3306  MySQL Community Server").
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skip("Docker not available for MySQL integration tests: " + err.Error())
	}

	dsn, err := mysqlContainer.ConnectionString(ctx)
	require.NoError(t, err)

	// DATETIME columns scan into time.Time only with parseTime.
	dsn += "?parseTime=true"

	db, err := updatebulk.Open("mysql", dsn)
	require.NoError(t, err)
	require.NoError(t, db.DetectCapabilities(ctx))

	return &DatabaseSetup{DB: db, Container: mysqlContainer, Dialect: "mysql"}
}

// SetupSQLiteTestDB creates an in-memory SQLite database.
func SetupSQLiteTestDB(t *testing.T) *DatabaseSetup {
	db, err := updatebulk.Open("sqlite", ":memory:", updatebulk.WithMaxOpenConns(1))
	require.NoError(t, err)
	return &DatabaseSetup{DB: db, Dialect: "sqlite"}
}

// Book is the row type of the books table.
type Book struct {
	ID        int64     `db:"id,pk"`
	Title     string    `db:"title"`
	Quantity  int64     `db:"quantity"`
	Notes     *string   `db:"notes"`
	UpdatedAt time.Time `db:"updated_at"`
}

// CreateBooksTable creates and seeds the books table.
func CreateBooksTable(t *testing.T, ds *DatabaseSetup) {
	t.Helper()
	ctx := context.Background()

	ddl := map[string]string{
		"postgres": `CREATE TABLE books (
			id BIGINT PRIMARY KEY,
			title TEXT NOT NULL,
			quantity BIGINT NOT NULL,
			notes TEXT,
			updated_at TIMESTAMP NOT NULL
		)`,
		"mysql": `CREATE TABLE books (
			id BIGINT PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			quantity BIGINT NOT NULL,
			notes TEXT,
			updated_at DATETIME(6) NOT NULL
		)`,
		"sqlite": `CREATE TABLE books (
			id INTEGER PRIMARY KEY,
			title TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			notes TEXT,
			updated_at DATETIME NOT NULL
		)`,
	}
	_, err := ds.DB.SQLDB().ExecContext(ctx, `DROP TABLE IF EXISTS books`)
	require.NoError(t, err)
	_, err = ds.DB.SQLDB().ExecContext(ctx, ddl[ds.Dialect])
	require.NoError(t, err)

	insert := `INSERT INTO books (id, title, quantity, notes, updated_at) VALUES
		(1, 'Agile', 10, 'old', '2020-01-01 00:00:00'),
		(2, 'Refactoring', 20, 'old', '2020-01-01 00:00:00'),
		(3, 'Patterns', 30, NULL, '2020-01-01 00:00:00')`
	_, err = ds.DB.SQLDB().ExecContext(ctx, insert)
	require.NoError(t, err)
}

// ReadBook loads one row of the books table.
func ReadBook(t *testing.T, ds *DatabaseSetup, id int64) Book {
	t.Helper()
	query := `SELECT id, title, quantity, notes, updated_at FROM books WHERE id = ?`
	if ds.Dialect == "postgres" {
		query = strings.Replace(query, "?", "$1", 1)
	}
	var b Book
	require.NoError(t, ds.DB.SQLDB().QueryRowContext(context.Background(), query, id).
		Scan(&b.ID, &b.Title, &b.Quantity, &b.Notes, &b.UpdatedAt))
	return b
}
