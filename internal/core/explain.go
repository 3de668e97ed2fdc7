package core

import (
	"context"
	"errors"

	"github.com/coregx/updatebulk/internal/analyzer"
	"github.com/coregx/updatebulk/internal/bulk"
	"github.com/coregx/updatebulk/internal/optimizer"
	"github.com/coregx/updatebulk/internal/schema"
)

// Explain returns the estimated execution plan of a compiled statement
// without applying it. Use QueryPlan.ScansTable with the model's table to
// check that the join against the row source is resolved through an index.
func (db *DB) Explain(ctx context.Context, stmt *bulk.Statement) (*analyzer.QueryPlan, error) {
	if stmt == nil {
		return nil, errors.New("explain: nothing to update")
	}
	a, err := analyzer.New(db.Dialect().Name(), db.sqlDB)
	if err != nil {
		return nil, err
	}
	plan, err := a.Explain(ctx, stmt.SQL, stmt.Args)
	if err != nil {
		return nil, WrapError(err, "explain bulk update")
	}
	db.logger.Debug("bulk update explained",
		"index", plan.IndexName,
		"full_scan", plan.FullScan,
		"cost", plan.Cost,
	)
	return plan, nil
}

// Advise explains stmt and suggests indexes or maintenance when the target
// table of model is scanned instead of looked up.
func (db *DB) Advise(ctx context.Context, model *schema.Model, stmt *bulk.Statement) (*optimizer.Analysis, error) {
	plan, err := db.Explain(ctx, stmt)
	if err != nil {
		return nil, err
	}
	analysis := optimizer.Advise(plan, optimizer.Target{
		Table:            model.Table,
		PrimaryKey:       model.PrimaryKey,
		ConditionColumns: stmt.ConditionColumns,
		Dialect:          db.Dialect(),
	})
	for _, s := range analysis.Suggestions {
		db.logger.Info("bulk update suggestion", "table", model.Table, "type", string(s.Type), "message", s.Message)
	}
	return analysis, nil
}
