// Package journal keeps an operational log of a server run in SQLite:
// who connected, what was said, who got kicked. Game state never goes here.
package journal

import (
	"database/sql"
	"log"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// open opens (or creates) the SQLite database and brings the schema up
func open(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// one writer goroutine plus readers; WAL keeps them out of each other's way
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, err
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// migrate creates tables if they don't exist
func migrate(conn *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		motd TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		ended_at TEXT
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		kind TEXT NOT NULL,
		client_id INTEGER,
		detail TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, kind);
	`
	_, err := conn.Exec(schema)
	if err != nil {
		log.Printf("journal: migration error: %v", err)
	}
	return err
}

// startRun records a new run and returns its id
func startRun(conn *sql.DB, motd string) (string, error) {
	id := uuid.NewString()
	_, err := conn.Exec(`INSERT INTO runs (id, motd, started_at) VALUES (?, ?, ?)`,
		id, motd, time.Now().UTC().Format(time.RFC3339))
	return id, err
}

func endRun(conn *sql.DB, id string) error {
	_, err := conn.Exec(`UPDATE runs SET ended_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), id)
	return err
}
