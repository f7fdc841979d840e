package schema

import (
	"sheetload/internal/storage"
)

// Plan is the ordered set of DDL-equivalent operations to run before any row
// insertion, plus the effective column list to use for row mapping.
//
// Exactly one of Create / AddColumns is populated for a given reconcile:
// a missing table yields a full CREATE, an existing one yields only the
// additive ADD COLUMN set (possibly empty).
type Plan struct {
	Create     bool
	Table      storage.TableSpec
	AddColumns []storage.ColumnSpec

	// InsertColumns is the reconciled user column list, in source order.
	// It never contains the system id/created_at columns.
	InsertColumns []string
}

// Reconcile compares the inferred column specs against the destination
// table's current column set.
//
// Semantics:
//   - Table absent: CREATE with all inferred columns in order. Plan.Table
//     carries only those; the backend's CREATE builder brackets them with the
//     server-assigned id and created_at system columns.
//   - Table present: ADD COLUMN for each inferred name not already there.
//     Existing columns are left untouched even when the newly inferred type
//     differs; there is no retroactive retyping.
//
// The column set of a destination table is monotonically non-shrinking:
// reconciliation only ever adds.
func Reconcile(table string, specs []storage.ColumnSpec, existing []string, tableExists bool) Plan {
	insert := make([]string, 0, len(specs))
	for _, c := range specs {
		insert = append(insert, c.Name)
	}

	if !tableExists {
		cols := make([]storage.ColumnSpec, 0, len(specs))
		cols = append(cols, specs...)
		return Plan{
			Create:        true,
			Table:         storage.TableSpec{Name: table, Columns: cols},
			InsertColumns: insert,
		}
	}

	have := make(map[string]bool, len(existing))
	for _, c := range existing {
		have[c] = true
	}

	var add []storage.ColumnSpec
	for _, c := range specs {
		if !have[c.Name] {
			add = append(add, c)
		}
	}

	return Plan{
		AddColumns:    add,
		InsertColumns: insert,
	}
}
