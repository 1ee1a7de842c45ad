package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Entry is one applied change.
type Entry struct {
	ID             int64
	Tool           string
	Note           string
	Backup         string
	Summary        string
	BeforeChecksum string
	AfterChecksum  string
	AppliedAt      time.Time
}

// DefaultLimit caps List when no limit is given.
const DefaultLimit = 20

// Record appends e and returns its id. A zero AppliedAt is set to now.
func (db *DB) Record(e Entry) (int64, error) {
	if e.Tool == "" || e.Note == "" {
		return 0, errors.New("journal: entry needs tool and note")
	}
	if e.AppliedAt.IsZero() {
		e.AppliedAt = time.Now()
	}
	res, err := db.conn.Exec(`
		INSERT INTO changes (tool, note, backup, summary, before_checksum, after_checksum, applied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.Tool, e.Note, e.Backup, e.Summary, e.BeforeChecksum, e.AfterChecksum, e.AppliedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("journal: record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("journal: record id: %w", err)
	}
	return id, nil
}

// List returns the most recent entries first. An empty tool lists every
// tool; a non-positive limit means DefaultLimit.
func (db *DB) List(tool string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	query := `SELECT id, tool, note, backup, summary, before_checksum, after_checksum, applied_at FROM changes`
	args := []any{}
	if tool != "" {
		query += ` WHERE tool = ?`
		args = append(args, tool)
	}
	query += ` ORDER BY applied_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LastForNote returns the newest entry for note, or sql.ErrNoRows.
func (db *DB) LastForNote(note string) (Entry, error) {
	row := db.conn.QueryRow(`
		SELECT id, tool, note, backup, summary, before_checksum, after_checksum, applied_at
		FROM changes WHERE note = ? ORDER BY applied_at DESC, id DESC LIMIT 1
	`, note)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, sql.ErrNoRows
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var e Entry
	err := s.Scan(&e.ID, &e.Tool, &e.Note, &e.Backup, &e.Summary, &e.BeforeChecksum, &e.AfterChecksum, &e.AppliedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, err
	}
	if err != nil {
		return Entry{}, fmt.Errorf("journal: scan: %w", err)
	}
	return e, nil
}
