// Package config resolves the destination connection from the environment.
//
// The CLI loads a local .env file (godotenv) before calling FromEnv, so a
// checked-out project directory with a .env works the same as real
// environment variables. Nothing here is ever hard-coded into the binary.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// DB describes the destination connection.
type DB struct {
	Kind     string // mysql | postgres | mssql | sqlite
	Host     string
	Port     int
	User     string
	Password string
	Database string

	// DSN, when set, is used verbatim and the individual fields are ignored.
	// For sqlite it is the database file path (":memory:" works too).
	DSN string
}

// Environment variables read by FromEnv.
const (
	EnvKind     = "DB_KIND"
	EnvHost     = "DB_HOST"
	EnvPort     = "DB_PORT"
	EnvUser     = "DB_USER"
	EnvPassword = "DB_PASSWORD"
	EnvDatabase = "DB_NAME"
	EnvDSN      = "DB_DSN"
)

var defaultPorts = map[string]int{
	"mysql":    3306,
	"postgres": 5432,
	"mssql":    1433,
}

// FromEnv builds a DB from the environment. Kind defaults to mysql, the
// port to the kind's conventional default. Missing credentials are caught
// by Validate, not here.
func FromEnv() (DB, error) {
	db := DB{
		Kind:     strings.ToLower(getenv(EnvKind, "mysql")),
		Host:     getenv(EnvHost, "localhost"),
		User:     os.Getenv(EnvUser),
		Password: os.Getenv(EnvPassword),
		Database: os.Getenv(EnvDatabase),
		DSN:      os.Getenv(EnvDSN),
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return DB{}, fmt.Errorf("%s: %w", EnvPort, err)
		}
		db.Port = port
	} else {
		db.Port = defaultPorts[db.Kind]
	}

	return db, nil
}

// Validate checks that the config is complete enough to build a DSN.
func (db DB) Validate() error {
	switch db.Kind {
	case "mysql", "postgres", "mssql":
		if db.DSN != "" {
			return nil
		}
		if db.User == "" {
			return fmt.Errorf("%s is required for kind=%s", EnvUser, db.Kind)
		}
		if db.Database == "" {
			return fmt.Errorf("%s is required for kind=%s", EnvDatabase, db.Kind)
		}
		return nil
	case "sqlite":
		if db.DSN == "" && db.Database == "" {
			return fmt.Errorf("%s or %s (database file path) is required for kind=sqlite", EnvDSN, EnvDatabase)
		}
		return nil
	default:
		return fmt.Errorf("unsupported %s=%q", EnvKind, db.Kind)
	}
}

// ConnString renders the DSN for the configured kind. An explicit DSN wins.
func (db DB) ConnString() string {
	if db.DSN != "" {
		return db.DSN
	}

	switch db.Kind {
	case "mysql":
		// parseTime makes the driver return DATETIME columns as time.Time.
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			db.User, db.Password, db.Host, db.Port, db.Database)
	case "postgres":
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(db.User, db.Password),
			Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
			Path:   "/" + db.Database,
		}
		return u.String()
	case "mssql":
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(db.User, db.Password),
			Host:     fmt.Sprintf("%s:%d", db.Host, db.Port),
			RawQuery: url.Values{"database": []string{db.Database}}.Encode(),
		}
		return u.String()
	case "sqlite":
		return db.Database
	default:
		return ""
	}
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
