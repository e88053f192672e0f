// Package history persists the chat transcript in a local SQLite
// database so past sessions survive restarts and can be pruned on a
// retention schedule.
package history

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"arbor/app/pkg/logger"
)

const (
	dbFileName           = "arbor.db"
	currentSchemaVersion = 2
)

// DB owns the SQLite connection backing the transcript store.
type DB struct {
	conn *sql.DB
	path string
}

type migrationError struct {
	fromVersion int
	err         error
}

func (e *migrationError) Error() string {
	return fmt.Sprintf("migrate from schema version %d: %v", e.fromVersion, e.err)
}

func (e *migrationError) Unwrap() error {
	return e.err
}

// Open creates the data directory if needed, opens the database and
// brings the schema up to the current version.
func Open(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	path := filepath.Join(dataDir, dbFileName)
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping history db: %w", err)
	}
	d := &DB{conn: conn, path: path}
	if err := d.initSchema(); err != nil {
		d.conn.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) initSchema() error {
	if _, err := d.conn.Exec(`CREATE TABLE IF NOT EXISTS schema_meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		version INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_meta: %w", err)
	}

	version, err := d.readSchemaVersion()
	if err != nil {
		return err
	}
	if version == currentSchemaVersion {
		return nil
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("history db schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	// Back up the database file before touching an existing schema so a
	// failed migration can be rolled back.
	backupPath := ""
	if version > 0 {
		backupPath, err = d.createMigrationBackup(version)
		if err != nil {
			return err
		}
	}

	if err := d.applyMigrations(version); err != nil {
		if backupPath != "" {
			if restoreErr := d.restoreFromBackup(backupPath); restoreErr != nil {
				logger.Error("restore history db from %s failed: %v", backupPath, restoreErr)
			} else {
				logger.Info("history db restored from %s after failed migration", backupPath)
			}
		}
		return err
	}
	return nil
}

func (d *DB) readSchemaVersion() (int, error) {
	var version int
	err := d.conn.QueryRow(`SELECT version FROM schema_meta WHERE id = 1`).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

func (d *DB) writeSchemaVersion(version int) error {
	_, err := d.conn.Exec(`INSERT INTO schema_meta (id, version) VALUES (1, ?)
ON CONFLICT(id) DO UPDATE SET version = excluded.version`, version)
	if err != nil {
		return fmt.Errorf("write schema version %d: %w", version, err)
	}
	return nil
}

func (d *DB) applyMigrations(fromVersion int) error {
	for version := fromVersion; version < currentSchemaVersion; version++ {
		if err := d.applyNextMigration(version); err != nil {
			return &migrationError{fromVersion: version, err: err}
		}
		logger.Info("history db migrated to schema version %d", version+1)
	}
	return nil
}

func (d *DB) applyNextMigration(fromVersion int) error {
	var err error
	switch fromVersion {
	case 0:
		err = d.migrateToMessages()
	case 1:
		err = d.migrateToSessions()
	default:
		return fmt.Errorf("no migration defined from version %d", fromVersion)
	}
	if err != nil {
		return err
	}
	return d.writeSchemaVersion(fromVersion + 1)
}

func (d *DB) migrateToMessages() error {
	// created_at stores UnixNano so messages appended within the same
	// second keep their order.
	_, err := d.conn.Exec(`CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		sender TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session_created ON messages(session_id, created_at)`)
	return err
}

func (d *DB) migrateToSessions() error {
	_, err := d.conn.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL
	)`)
	return err
}

func (d *DB) createMigrationBackup(fromVersion int) (string, error) {
	if _, err := d.conn.Exec(`PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		logger.Error("checkpoint before history backup failed: %v", err)
	}
	backupPath := fmt.Sprintf("%s.migration-%d.bak", d.path, fromVersion)
	if err := copyFile(d.path, backupPath); err != nil {
		return "", fmt.Errorf("create migration backup: %w", err)
	}
	logger.Info("history db backed up to %s before migration from version %d", backupPath, fromVersion)
	return backupPath, nil
}

func (d *DB) restoreFromBackup(backupPath string) error {
	if err := d.conn.Close(); err != nil {
		logger.Error("close history db before restore failed: %v", err)
	}
	if err := copyFile(backupPath, d.path); err != nil {
		return err
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(d.path + suffix)
	}
	conn, err := sql.Open("sqlite", d.path)
	if err != nil {
		return err
	}
	d.conn = conn
	return conn.Ping()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// Conn exposes the underlying connection for the store layer.
func (d *DB) Conn() *sql.DB {
	return d.conn
}

// Path returns the database file location.
func (d *DB) Path() string {
	return d.path
}

func (d *DB) Close() error {
	return d.conn.Close()
}
