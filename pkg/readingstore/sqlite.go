package readingstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/iver-wharf/wharf-core/v2/pkg/logger"

	// SQLite driver, registered as "sqlite3"
	_ "github.com/mattn/go-sqlite3"
)

var log = logger.NewScoped("READING-STORE")

type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens, or creates, a SQLite database at the path.
func NewSQLiteStore(path string) (Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	log.Debug().WithString("path", path).Message("Opened database.")
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		poll_id TEXT NOT NULL,
		sensor TEXT NOT NULL,
		celsius REAL NOT NULL,
		read_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_readings_sensor_read_at ON readings(sensor, read_at);
	CREATE INDEX IF NOT EXISTS idx_readings_read_at ON readings(read_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate readings table: %w", err)
	}
	return nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func (s *sqliteStore) Add(pollID uuid.UUID, readings []Reading) error {
	if len(readings) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO readings (poll_id, sensor, celsius, read_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, r := range readings {
		if _, err := stmt.Exec(pollID.String(), r.Sensor, r.Celsius, r.ReadAt.UTC()); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert reading for sensor %s: %w", r.Sensor, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit readings: %w", err)
	}
	return nil
}

func (s *sqliteStore) List(sensor string, limit int) ([]Reading, error) {
	rows, err := s.db.Query(`
		SELECT id, poll_id, sensor, celsius, read_at FROM readings
		WHERE sensor = ?
		ORDER BY read_at DESC, id DESC
		LIMIT ?`, sensor, limit)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	readings := []Reading{}
	for rows.Next() {
		var r Reading
		var pollID string
		if err := rows.Scan(&r.ID, &pollID, &r.Sensor, &r.Celsius, &r.ReadAt); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		r.PollID, err = uuid.Parse(pollID)
		if err != nil {
			return nil, fmt.Errorf("parse poll ID of reading %d: %w", r.ID, err)
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate readings: %w", err)
	}
	return readings, nil
}

func (s *sqliteStore) Prune(olderThan time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM readings WHERE read_at < ?`, olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete old readings: %w", err)
	}
	return res.RowsAffected()
}
