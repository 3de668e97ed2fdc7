package analyzer

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

func TestParseSQLiteExplain(t *testing.T) {
	tests := []struct {
		name        string
		lines       []string
		wantIndex   string
		wantScanned []string
	}{
		{
			name:        "primary_key_join",
			lines:       []string{"SCAN t", "SEARCH accounts USING INTEGER PRIMARY KEY (rowid=?)"},
			wantIndex:   "PRIMARY KEY",
			wantScanned: []string{"t"},
		},
		{
			name:        "secondary_index",
			lines:       []string{"SCAN 2-ROW VALUES CLAUSE", "SEARCH accounts USING INDEX accounts_email (email=?)"},
			wantIndex:   "accounts_email",
			wantScanned: nil,
		},
		{
			name:        "covering_index",
			lines:       []string{"SEARCH accounts USING COVERING INDEX idx_email_status (email=?)"},
			wantIndex:   "idx_email_status",
			wantScanned: nil,
		},
		{
			name:        "automatic_index",
			lines:       []string{"SCAN accounts", "SEARCH t USING AUTOMATIC COVERING INDEX (column1=?)"},
			wantIndex:   "AUTOMATIC INDEX",
			wantScanned: []string{"accounts"},
		},
		{
			name:        "legacy_scan_table",
			lines:       []string{"SCAN TABLE accounts"},
			wantScanned: []string{"accounts"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := parseSQLiteExplain(tt.lines)
			if plan.Database != "sqlite" {
				t.Errorf("Database = %q, want sqlite", plan.Database)
			}
			if plan.IndexName != tt.wantIndex {
				t.Errorf("IndexName = %q, want %q", plan.IndexName, tt.wantIndex)
			}
			if plan.UsesIndex != (tt.wantIndex != "") {
				t.Errorf("UsesIndex = %v", plan.UsesIndex)
			}
			if plan.FullScan != (len(tt.wantScanned) > 0) {
				t.Errorf("FullScan = %v", plan.FullScan)
			}
			if len(plan.ScannedTables) != len(tt.wantScanned) {
				t.Fatalf("ScannedTables = %v, want %v", plan.ScannedTables, tt.wantScanned)
			}
			for i, table := range tt.wantScanned {
				if plan.ScannedTables[i] != table {
					t.Errorf("ScannedTables[%d] = %q, want %q", i, plan.ScannedTables[i], table)
				}
			}
		})
	}
}

func TestParsePostgresExplain(t *testing.T) {
	indexed := `[{"Plan": {
		"Node Type": "ModifyTable", "Relation Name": "accounts", "Total Cost": 16.6, "Plan Rows": 0,
		"Plans": [{"Node Type": "Nested Loop", "Plans": [
			{"Node Type": "Values Scan", "Alias": "t", "Plan Rows": 2},
			{"Node Type": "Index Scan", "Relation Name": "accounts", "Index Name": "accounts_pkey", "Plan Rows": 1}
		]}]
	}}]`
	plan, err := parsePostgresExplain(indexed)
	if err != nil {
		t.Fatalf("parsePostgresExplain: %v", err)
	}
	if plan.Cost != 16.6 {
		t.Errorf("Cost = %v, want 16.6", plan.Cost)
	}
	if !plan.UsesIndex || plan.IndexName != "accounts_pkey" {
		t.Errorf("index = %v %q, want accounts_pkey", plan.UsesIndex, plan.IndexName)
	}
	if plan.FullScan {
		t.Error("FullScan = true, want false")
	}

	scanned := `[{"Plan": {"Node Type": "ModifyTable", "Plans": [{"Node Type": "Hash Join", "Plans": [
		{"Node Type": "Seq Scan", "Relation Name": "accounts", "Plan Rows": 1000},
		{"Node Type": "Hash", "Plans": [{"Node Type": "Values Scan", "Plan Rows": 2}]}
	]}]}}]`
	plan, err = parsePostgresExplain(scanned)
	if err != nil {
		t.Fatalf("parsePostgresExplain: %v", err)
	}
	if !plan.ScansTable("accounts") || plan.UsesIndex {
		t.Errorf("plan = %+v, want a scan of accounts", plan)
	}

	for _, raw := range []string{`[]`, `{`} {
		if _, err := parsePostgresExplain(raw); err == nil {
			t.Errorf("parsePostgresExplain(%q) succeeded", raw)
		}
	}
}

func TestParseMySQLExplain(t *testing.T) {
	raw := `{"query_block": {
		"select_id": 1,
		"cost_info": {"query_cost": "3.40"},
		"nested_loop": [
			{"table": {"table_name": "t", "access_type": "ALL", "rows_examined_per_scan": 2,
				"materialized_from_subquery": {"query_block": {"table": {"table_name": "t", "access_type": "ALL"}}}}},
			{"table": {"table_name": "accounts", "access_type": "eq_ref", "key": "PRIMARY", "rows_examined_per_scan": 1}}
		]
	}}`
	plan, err := parseMySQLExplain(raw)
	if err != nil {
		t.Fatalf("parseMySQLExplain: %v", err)
	}
	if plan.Cost != 3.4 {
		t.Errorf("Cost = %v, want 3.4", plan.Cost)
	}
	if plan.IndexName != "PRIMARY" {
		t.Errorf("IndexName = %q, want PRIMARY", plan.IndexName)
	}
	if plan.ScansTable("accounts") {
		t.Error("accounts should not be scanned")
	}
	if plan.EstimatedRows != 1 {
		t.Errorf("EstimatedRows = %d, want 1", plan.EstimatedRows)
	}

	// MariaDB reports numeric costs and plain table scans.
	plan, err = parseMySQLExplain(`{"query_block": {"cost_info": {"query_cost": 12.5},
		"table": {"table_name": "accounts", "access_type": "ALL", "rows_examined_per_scan": 40}}}`)
	if err != nil {
		t.Fatalf("parseMySQLExplain: %v", err)
	}
	if plan.Cost != 12.5 || !plan.ScansTable("accounts") || plan.EstimatedRows != 40 {
		t.Errorf("plan = %+v", plan)
	}
}

func TestNew(t *testing.T) {
	for _, name := range []string{"postgres", "mysql", "mariadb", "sqlite"} {
		if _, err := New(name, nil); err != nil {
			t.Errorf("New(%q): %v", name, err)
		}
	}
	if _, err := New("oracle", nil); err == nil {
		t.Error("New(oracle) succeeded")
	}
}

func TestSQLiteAnalyzer_Explain(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE accounts (id INTEGER PRIMARY KEY, balance INTEGER NOT NULL)`); err != nil {
		t.Fatalf("create: %v", err)
	}

	plan, err := NewSQLiteAnalyzer(db).Explain(context.Background(),
		`UPDATE "accounts" SET "balance" = ? WHERE "accounts"."id" = ?`, []any{5, 1})
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if plan.RawOutput == "" {
		t.Error("RawOutput is empty")
	}
	if !plan.UsesIndex || plan.ScansTable("accounts") {
		t.Errorf("plan = %+v, want a primary key lookup", plan)
	}

	if _, err := NewSQLiteAnalyzer(db).Explain(context.Background(), `UPDATE missing SET x = 1`, nil); err == nil {
		t.Error("Explain on a missing table succeeded")
	}
}
