// Package archive persists finished investigations to SQLite so history
// survives restarts and can be listed by the CLI.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/c360studio/agentconsole/investigation"
)

// Open opens (creating if needed) the archive database at path.
func Open(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir archive dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA synchronous=NORMAL; PRAGMA temp_store=MEMORY;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates the archive schema.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS investigations (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL,
			status TEXT NOT NULL,
			agents_json TEXT NOT NULL,
			current_step INTEGER NOT NULL,
			substitutions_json TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			archived_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS findings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			investigation_id TEXT NOT NULL,
			category TEXT NOT NULL,
			sentence TEXT NOT NULL,
			FOREIGN KEY(investigation_id) REFERENCES investigations(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_investigations_archived ON investigations(archived_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_findings_investigation ON findings(investigation_id);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate failed: %w", err)
		}
	}
	return nil
}

// Record is one archived investigation with its extracted findings.
type Record struct {
	Investigation investigation.Investigation
	Findings      investigation.Findings
	ArchivedAt    time.Time
}

// Store reads and writes the investigation archive.
type Store struct {
	db *sql.DB
}

// NewStore creates a store over an opened and migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for lifecycle management.
func (s *Store) DB() *sql.DB { return s.db }

// Save archives one finished investigation. Re-archiving the same id
// replaces the stored record and its findings.
func (s *Store) Save(ctx context.Context, inv *investigation.Investigation, findings investigation.Findings) error {
	agentsJSON, err := json.Marshal(inv.Agents)
	if err != nil {
		return fmt.Errorf("marshal agents: %w", err)
	}
	subsJSON, err := json.Marshal(inv.Substitutions)
	if err != nil {
		return fmt.Errorf("marshal substitutions: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO investigations
		(id,name,description,status,agents_json,current_step,substitutions_json,started_at,ended_at,archived_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET status=excluded.status,current_step=excluded.current_step,
			substitutions_json=excluded.substitutions_json,ended_at=excluded.ended_at,archived_at=excluded.archived_at`,
		inv.ID, inv.Name, inv.Description, string(inv.Status), string(agentsJSON),
		inv.CurrentStep, string(subsJSON), inv.StartTime.UTC(), nullableTime(inv.EndTime), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert investigation: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM findings WHERE investigation_id = ?`, inv.ID); err != nil {
		return fmt.Errorf("clear findings: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO findings (investigation_id,category,sentence) VALUES (?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for category, sentences := range map[string][]string{
		"finding":        findings.Findings,
		"recommendation": findings.Recommendations,
		"insight":        findings.Insights,
	} {
		for _, sentence := range sentences {
			if _, err := stmt.ExecContext(ctx, inv.ID, category, sentence); err != nil {
				return fmt.Errorf("insert finding: %w", err)
			}
		}
	}
	return tx.Commit()
}

// ListRecent returns the most recently archived investigations, newest
// first, with their findings attached.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,name,description,status,agents_json,current_step,
		substitutions_json,started_at,ended_at,archived_at
		FROM investigations ORDER BY archived_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Record, 0, limit)
	for rows.Next() {
		var (
			rec       Record
			status    string
			agents    string
			subs      string
			endedAt   sql.NullTime
			archived  time.Time
			startedAt time.Time
		)
		inv := &rec.Investigation
		if err := rows.Scan(&inv.ID, &inv.Name, &inv.Description, &status, &agents,
			&inv.CurrentStep, &subs, &startedAt, &endedAt, &archived); err != nil {
			return nil, err
		}
		inv.Status = investigation.Status(status)
		inv.StartTime = startedAt
		if endedAt.Valid {
			t := endedAt.Time
			inv.EndTime = &t
		}
		if err := json.Unmarshal([]byte(agents), &inv.Agents); err != nil {
			return nil, fmt.Errorf("unmarshal agents for %s: %w", inv.ID, err)
		}
		if err := json.Unmarshal([]byte(subs), &inv.Substitutions); err != nil {
			return nil, fmt.Errorf("unmarshal substitutions for %s: %w", inv.ID, err)
		}
		rec.ArchivedAt = archived
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if err := s.loadFindings(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) loadFindings(ctx context.Context, rec *Record) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, sentence FROM findings WHERE investigation_id = ? ORDER BY id`,
		rec.Investigation.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var category, sentence string
		if err := rows.Scan(&category, &sentence); err != nil {
			return err
		}
		switch category {
		case "finding":
			rec.Findings.Findings = append(rec.Findings.Findings, sentence)
		case "recommendation":
			rec.Findings.Recommendations = append(rec.Findings.Recommendations, sentence)
		case "insight":
			rec.Findings.Insights = append(rec.Findings.Insights, sentence)
		}
	}
	return rows.Err()
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
