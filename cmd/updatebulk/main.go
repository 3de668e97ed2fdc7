// Command updatebulk compiles a bulk update described in a YAML job file and
// prints the statement, or executes it with -execute.
//
// Usage:
//
//	updatebulk -job job.yaml [-dsn DSN] [-execute | -explain] [-detect] [-v]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/coregx/updatebulk"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run is main without process exit, returning the exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("updatebulk", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		jobPath string
		dsn     string
		execute bool
		explain bool
		detect  bool
		strict  bool
		verbose bool
	)
	fs.StringVar(&jobPath, "job", "", "YAML job file")
	fs.StringVar(&dsn, "dsn", "", "data source name (overrides the job file and "+dsnEnv+")")
	fs.BoolVar(&execute, "execute", false, "execute the statement instead of printing it")
	fs.BoolVar(&explain, "explain", false, "print the estimated plan of the statement")
	fs.BoolVar(&detect, "detect", false, "query the server version before compiling (implied by -execute)")
	fs.BoolVar(&strict, "strict", false, "reject raw values containing subqueries")
	fs.BoolVar(&verbose, "v", false, "enable debug logs")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if execute && explain {
		fmt.Fprintln(stderr, "updatebulk: -execute and -explain are exclusive")
		return 2
	}
	if jobPath == "" {
		fmt.Fprintln(stderr, "updatebulk: -job is required")
		fs.Usage()
		return 2
	}

	job, err := LoadJob(jobPath)
	if err != nil {
		fmt.Fprintf(stderr, "updatebulk: %v\n", err)
		return 1
	}
	if dsn != "" {
		job.DSN = dsn
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	log := updatebulk.NewSlogAdapter(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))

	opts := []updatebulk.Option{
		updatebulk.WithLogger(log),
		updatebulk.WithRawValueValidator(updatebulk.NewValidator(updatebulk.WithStrictValidation(strict || job.StrictRaw))),
	}
	if job.Dialect != "" {
		opts = append(opts, updatebulk.WithDialect(job.Dialect))
	}
	db, err := updatebulk.Open(job.Driver, job.DSN, opts...)
	if err != nil {
		fmt.Fprintf(stderr, "updatebulk: open: %v\n", err)
		return 1
	}
	defer db.Close()

	if detect || execute {
		if err := db.DetectCapabilities(ctx); err != nil {
			fmt.Fprintf(stderr, "updatebulk: %v\n", err)
			return 1
		}
	}

	compileOpts, err := job.CompileOptions()
	if err != nil {
		fmt.Fprintf(stderr, "updatebulk: %v\n", err)
		return 1
	}

	if !execute {
		stmt, err := db.CompileUpdateInBulk(ctx, &job.Model, job.Batch(), compileOpts...)
		if err != nil {
			fmt.Fprintf(stderr, "updatebulk: %v\n", err)
			return 1
		}
		printStatement(stdout, stmt)
		if explain && stmt != nil {
			analysis, err := db.Advise(ctx, &job.Model, stmt)
			if err != nil {
				fmt.Fprintf(stderr, "updatebulk: %v\n", err)
				return 1
			}
			printPlan(stdout, job.Model.Table, analysis)
		}
		return 0
	}

	n, err := db.UpdateInBulk(ctx, &job.Model, job.Batch(), compileOpts...)
	if err != nil {
		fmt.Fprintf(stderr, "updatebulk: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "%d rows affected\n", n)
	return 0
}

func printStatement(w io.Writer, stmt *updatebulk.Statement) {
	if stmt == nil {
		fmt.Fprintln(w, "-- nothing to update")
		return
	}
	fmt.Fprintln(w, stmt.SQL)
	args := make([]string, len(stmt.Args))
	for i, a := range stmt.Args {
		if a == nil {
			args[i] = "NULL"
			continue
		}
		args[i] = fmt.Sprintf("%#v", a)
	}
	fmt.Fprintf(w, "-- args: [%s]\n", strings.Join(args, ", "))
}

func printPlan(w io.Writer, table string, analysis *updatebulk.Analysis) {
	plan := analysis.QueryPlan
	index := plan.IndexName
	if index == "" {
		index = "none"
	}
	fmt.Fprintf(w, "-- plan: index=%s full_scan_of_%s=%t cost=%g\n", index, table, plan.ScansTable(table), plan.Cost)
	for _, line := range strings.Split(plan.RawOutput, "\n") {
		fmt.Fprintf(w, "--   %s\n", line)
	}
	for _, s := range analysis.Suggestions {
		for _, line := range strings.Split(s.String(), "\n") {
			fmt.Fprintf(w, "-- %s\n", line)
		}
	}
}
