package journal

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"rusteroids/internal/world"
)

// Kind classifies a journal entry
type Kind string

const (
	KindConnect    Kind = "connect"
	KindDisconnect Kind = "disconnect"
	KindRejected   Kind = "rejected"
	KindChat       Kind = "chat"
	KindKick       Kind = "kick"
	KindRestyle    Kind = "restyle"
	KindKill       Kind = "kill"
)

const (
	queueLen      = 1024
	batchLen      = 50
	flushInterval = 5 * time.Second
)

// Entry is a single journal line
type Entry struct {
	Kind     Kind
	ClientID world.ClientID // 0 when no client is involved
	Detail   string
	At       time.Time
}

// Journal batches entries to SQLite from a background goroutine. A nil
// *Journal accepts and discards everything, so callers need no checks.
type Journal struct {
	db      *sql.DB
	runID   string
	entries chan Entry
	stop    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Int64
	once    sync.Once
}

// Open opens the database at path, starts a run and the background writer
func Open(path, motd string) (*Journal, error) {
	db, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	runID, err := startRun(db, motd)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: start run: %w", err)
	}
	j := &Journal{
		db:      db,
		runID:   runID,
		entries: make(chan Entry, queueLen),
		stop:    make(chan struct{}),
	}
	j.wg.Add(1)
	go j.writer()
	return j, nil
}

// RunID identifies this server run in the runs table
func (j *Journal) RunID() string {
	if j == nil {
		return ""
	}
	return j.runID
}

// Record enqueues an entry without blocking. When the queue is full the
// entry is dropped and counted.
func (j *Journal) Record(kind Kind, client world.ClientID, detail string) {
	if j == nil {
		return
	}
	select {
	case j.entries <- Entry{Kind: kind, ClientID: client, Detail: detail, At: time.Now().UTC()}:
	default:
		j.dropped.Add(1)
	}
}

// Dropped reports how many entries were lost to a full queue
func (j *Journal) Dropped() int64 {
	if j == nil {
		return 0
	}
	return j.dropped.Load()
}

// Close flushes what is queued, marks the run finished and closes the
// database. Safe to call more than once.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	var err error
	j.once.Do(func() {
		close(j.stop)
		j.wg.Wait()
		if e := endRun(j.db, j.runID); e != nil {
			log.Printf("journal: end run: %v", e)
		}
		err = j.db.Close()
	})
	return err
}

// Counts returns the number of entries of each kind written for this run
func (j *Journal) Counts() (map[Kind]int, error) {
	if j == nil {
		return nil, nil
	}
	rows, err := j.db.Query(`
		SELECT kind, COUNT(*) FROM events
		WHERE run_id = ?
		GROUP BY kind
	`, j.runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[Kind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		result[Kind(kind)] = n
	}
	return result, rows.Err()
}

// writer is the background goroutine that batches entries into the database
func (j *Journal) writer() {
	defer j.wg.Done()

	batch := make([]Entry, 0, 64)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case e := <-j.entries:
			batch = append(batch, e)
			if len(batch) >= batchLen {
				j.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				j.flush(batch)
				batch = batch[:0]
			}
		case <-j.stop:
			// the channel stays open so a late Record cannot panic
		drain:
			for {
				select {
				case e := <-j.entries:
					batch = append(batch, e)
				default:
					break drain
				}
			}
			if len(batch) > 0 {
				j.flush(batch)
			}
			return
		}
	}
}

// flush writes a batch of entries in one transaction
func (j *Journal) flush(batch []Entry) {
	tx, err := j.db.Begin()
	if err != nil {
		log.Printf("journal: begin tx error: %v", err)
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO events (run_id, kind, client_id, detail, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		log.Printf("journal: prepare error: %v", err)
		return
	}
	defer stmt.Close()

	for _, e := range batch {
		cid := sql.NullInt64{Int64: int64(e.ClientID), Valid: e.ClientID != 0}
		detail := sql.NullString{String: e.Detail, Valid: e.Detail != ""}
		if _, err := stmt.Exec(j.runID, string(e.Kind), cid, detail, e.At.Format(time.RFC3339)); err != nil {
			log.Printf("journal: insert error: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		log.Printf("journal: commit error: %v", err)
	}
}
