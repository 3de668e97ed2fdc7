package bulk

// Statement is a compiled bulk update.
type Statement struct {
	// SQL uses the dialect's placeholder format.
	SQL  string
	Args []interface{}
	// Rows is the number of input rows compiled into the statement.
	Rows int
	// Simple is true for the single-row fast path without a row source.
	Simple bool
	// ConditionColumns are the columns rows are matched on, in order.
	ConditionColumns []string

	// RowSourceWidth is the number of VALUES columns, 0 on the fast path.
	RowSourceWidth  int
	ConstantColumns []string
	BitmaskColumns  []string
}
