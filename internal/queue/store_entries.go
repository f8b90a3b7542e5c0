package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const entryColumns = `id, run_id, workflow_id, input_path, format, final_output, outcome, message, started_at, finished_at, created_at`

// Record inserts a finished workflow and assigns entry.ID.
func (s *Store) Record(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return errors.New("record history: entry required")
	}
	if strings.TrimSpace(entry.WorkflowID) == "" || strings.TrimSpace(entry.InputPath) == "" {
		return errors.New("record history: workflow id and input path required")
	}
	if entry.Outcome == "" {
		return errors.New("record history: outcome required")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	res, err := s.execWithRetry(ctx,
		`INSERT INTO history (run_id, workflow_id, input_path, format, final_output, outcome, message, started_at, finished_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.WorkflowID,
		entry.InputPath,
		entry.Format,
		nullableString(entry.FinalOutput),
		string(entry.Outcome),
		nullableString(entry.Message),
		nullableTime(entry.StartedAt),
		nullableTime(entry.FinishedAt),
		entry.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("history entry id: %w", err)
	}
	entry.ID = id
	return nil
}

// List returns the most recent entries first, filtered by outcome when any
// are given. A limit <= 0 returns every entry.
func (s *Store) List(ctx context.Context, limit int, outcomes ...Outcome) ([]*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM history`
	args := make([]any, 0, len(outcomes)+1)
	if len(outcomes) > 0 {
		query += ` WHERE outcome IN (` + makePlaceholders(len(outcomes)) + `)`
		for _, outcome := range outcomes {
			args = append(args, string(outcome))
		}
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Stats returns the number of entries per outcome.
func (s *Store) Stats(ctx context.Context) (map[Outcome]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT outcome, COUNT(1) FROM history GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("history stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Outcome]int)
	for rows.Next() {
		var (
			outcome string
			count   int
		)
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("scan history stats: %w", err)
		}
		stats[Outcome(outcome)] = count
	}
	return stats, rows.Err()
}

// Clear removes all entries and returns how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM history`)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	return res.RowsAffected()
}

// Prune removes entries created before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM history WHERE created_at < ?`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return res.RowsAffected()
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		entry       Entry
		finalOutput sql.NullString
		outcome     string
		message     sql.NullString
		startedAt   sql.NullString
		finishedAt  sql.NullString
		createdAt   string
	)
	if err := scanner.Scan(
		&entry.ID,
		&entry.RunID,
		&entry.WorkflowID,
		&entry.InputPath,
		&entry.Format,
		&finalOutput,
		&outcome,
		&message,
		&startedAt,
		&finishedAt,
		&createdAt,
	); err != nil {
		return nil, fmt.Errorf("scan history entry: %w", err)
	}
	entry.FinalOutput = finalOutput.String
	entry.Outcome = Outcome(outcome)
	entry.Message = message.String
	if startedAt.Valid {
		if ts, err := parseTimeString(startedAt.String); err == nil {
			entry.StartedAt = ts
		}
	}
	if finishedAt.Valid {
		if ts, err := parseTimeString(finishedAt.String); err == nil {
			entry.FinishedAt = ts
		}
	}
	if ts, err := parseTimeString(createdAt); err == nil {
		entry.CreatedAt = ts
	}
	return &entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
