package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/routiner/internal/model"
)

type CompletionStore struct {
	db *sql.DB
}

func NewCompletionStore(db *sql.DB) *CompletionStore {
	return &CompletionStore{db: db}
}

func scanCompletion(scanner interface{ Scan(...any) error }) (*model.Completion, error) {
	var c model.Completion
	err := scanner.Scan(&c.Date, &c.RoutineID, &c.Done, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const completionCols = `date, routine_id, done, updated_at`

// Set writes the done flag for a (date, routine) slot. The row key is derived
// from both, so repeated writes overwrite the same row.
func (s *CompletionStore) Set(date, routineID string, done bool) (*model.Completion, error) {
	_, err := s.db.Exec(
		`INSERT INTO completions (id, date, routine_id, done, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET done = excluded.done, updated_at = excluded.updated_at`,
		model.CompletionKey(date, routineID), date, routineID, done, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("set completion: %w", err)
	}
	return s.Get(date, routineID)
}

func (s *CompletionStore) Get(date, routineID string) (*model.Completion, error) {
	row := s.db.QueryRow(`SELECT `+completionCols+` FROM completions WHERE id = ?`, model.CompletionKey(date, routineID))
	c, err := scanCompletion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get completion: %w", err)
	}
	return c, nil
}

// ListByDateRange returns completions with start <= date <= end, compared as
// YYYY-MM-DD strings.
func (s *CompletionStore) ListByDateRange(start, end string) ([]model.Completion, error) {
	rows, err := s.db.Query(
		`SELECT `+completionCols+` FROM completions WHERE date >= ? AND date <= ? ORDER BY date ASC, routine_id ASC`,
		start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("list completions by range: %w", err)
	}
	defer rows.Close()

	var completions []model.Completion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}

// Snapshot returns the completions in range as a date -> routine -> done map.
func (s *CompletionStore) Snapshot(start, end string) (model.CompletionMap, error) {
	completions, err := s.ListByDateRange(start, end)
	if err != nil {
		return nil, err
	}
	m := model.CompletionMap{}
	for _, c := range completions {
		m.Set(c.Date, c.RoutineID, c.Done)
	}
	return m, nil
}
