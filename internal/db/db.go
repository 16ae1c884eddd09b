package db

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed local.sql
var localSchema string

//go:embed service_sqlite.sql
var sqliteSchema string

//go:embed service_postgres.sql
var postgresSchema string

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
	driver string
	dir    string
}

// New opens the client's local database in dataDir (the XDG data
// directory when empty) and initializes the settings schema
func New(dataDir string) (*DB, error) {
	dbPath, err := getDBPath(dataDir)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(DriverSQLite, dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(localSchema); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{DB: db, driver: DriverSQLite, dir: filepath.Dir(dbPath)}, nil
}

// Dir is the directory holding the local database, empty for a service database
func (db *DB) Dir() string {
	return db.dir
}

// Open connects to the development data service's database and
// initializes the service schema for the given driver
func Open(driver, dsn string) (*DB, error) {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = sqliteSchema
		dsn = withSQLiteForeignKeys(dsn)
	case DriverPostgres:
		schema = postgresSchema
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// one writer keeps sqlite from reporting SQLITE_BUSY under concurrent handlers
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{DB: db, driver: driver}, nil
}

func withSQLiteForeignKeys(dsn string) string {
	if dsn == ":memory:" {
		return "file::memory:?cache=shared&_foreign_keys=on"
	}
	for i := 0; i < len(dsn); i++ {
		if dsn[i] == '?' {
			return dsn + "&_foreign_keys=on"
		}
	}
	return dsn + "?_foreign_keys=on"
}

// getDBPath returns the path to the local database file
func getDBPath(dataDir string) (string, error) {
	if dataDir == "" {
		// Use XDG data directory or fallback to home directory
		dataDir = os.Getenv("XDG_DATA_HOME")
		if dataDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share")
		}
		dataDir = filepath.Join(dataDir, "pulse")
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(dataDir, "pulse.db"), nil
}

// placeholder returns the n-th (1-based) bind parameter for the driver
func (db *DB) placeholder(n int) string {
	if db.driver == DriverPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// GetSetting retrieves a setting value by key
func (db *DB) GetSetting(key string) (string, error) {
	var value string
	err := db.QueryRow("SELECT value FROM settings WHERE key = "+db.placeholder(1), key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetSetting sets a setting value
func (db *DB) SetSetting(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO settings (key, value) VALUES (`+db.placeholder(1)+`, `+db.placeholder(2)+`)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
