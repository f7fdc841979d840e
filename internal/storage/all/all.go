// Package all registers every storage backend with the factory.
// Import it for side effects from binaries that select a backend at runtime.
package all

import (
	_ "sheetload/internal/storage/mssql"
	_ "sheetload/internal/storage/mysql"
	_ "sheetload/internal/storage/postgres"
	_ "sheetload/internal/storage/sqlite"
)
