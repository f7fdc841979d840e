// TableSpec and ColumnSpec live here so both the schema planner and the
// backend packages can import them without circular deps.
package storage

// Canonical column type categories. Backends map these to dialect types;
// anything else is rejected by the backend's column builder.
const (
	TypeInteger  = "integer"
	TypeFloat    = "float"
	TypeBoolean  = "boolean"
	TypeDateTime = "datetime"
	TypeText     = "text"
)

// System column names appended to every created table. They are
// server-assigned and never part of the inferred column set.
const (
	IDColumn        = "id"
	CreatedAtColumn = "created_at"
)

type TableSpec struct {
	Name    string       `json:"name"`
	Columns []ColumnSpec `json:"columns"`
}

type ColumnSpec struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}
