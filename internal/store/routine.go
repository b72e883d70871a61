package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/routiner/internal/model"
)

type RoutineStore struct {
	db *sql.DB
}

func NewRoutineStore(db *sql.DB) *RoutineStore {
	return &RoutineStore{db: db}
}

func scanRoutine(scanner interface{ Scan(...any) error }) (*model.Routine, error) {
	var r model.Routine
	var days string
	err := scanner.Scan(
		&r.ID, &r.Name, &r.Description, &r.Color, &r.Icon,
		&days, &r.TimeOfDay, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	// Weekdays decoding never fails; a corrupt column reads as no schedule.
	json.Unmarshal([]byte(days), &r.Days)
	if r.Days == nil {
		r.Days = model.Weekdays{}
	}
	return &r, nil
}

func encodeDays(days model.Weekdays) (string, error) {
	b, err := json.Marshal(model.NewWeekdays(days...))
	if err != nil {
		return "", fmt.Errorf("encode days: %w", err)
	}
	return string(b), nil
}

const routineCols = `id, name, description, color, icon, days, time_of_day, created_at, updated_at`

func (s *RoutineStore) Create(f model.RoutineFields) (*model.Routine, error) {
	days, err := encodeDays(f.Days)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	now := time.Now().UTC()

	_, err = s.db.Exec(
		`INSERT INTO routines (id, name, description, color, icon, days, time_of_day, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, f.Name, f.Description, f.Color, f.Icon, days, string(f.TimeOfDay), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert routine: %w", err)
	}
	return s.GetByID(id)
}

func (s *RoutineStore) GetByID(id string) (*model.Routine, error) {
	row := s.db.QueryRow(`SELECT `+routineCols+` FROM routines WHERE id = ?`, id)
	r, err := scanRoutine(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get routine: %w", err)
	}
	return r, nil
}

// List returns routines in creation order.
func (s *RoutineStore) List() ([]model.Routine, error) {
	rows, err := s.db.Query(`SELECT ` + routineCols + ` FROM routines ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("list routines: %w", err)
	}
	defer rows.Close()

	var routines []model.Routine
	for rows.Next() {
		r, err := scanRoutine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan routine: %w", err)
		}
		routines = append(routines, *r)
	}
	return routines, rows.Err()
}

func (s *RoutineStore) Update(id string, f model.RoutineFields) (*model.Routine, error) {
	days, err := encodeDays(f.Days)
	if err != nil {
		return nil, err
	}
	_, err = s.db.Exec(
		`UPDATE routines SET name = ?, description = ?, color = ?, icon = ?, days = ?, time_of_day = ?, updated_at = ? WHERE id = ?`,
		f.Name, f.Description, f.Color, f.Icon, days, string(f.TimeOfDay), time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update routine: %w", err)
	}
	return s.GetByID(id)
}

// Delete removes a routine and all of its completions.
func (s *RoutineStore) Delete(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM completions WHERE routine_id = ?`, id); err != nil {
		return fmt.Errorf("delete routine completions: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM routines WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete routine: %w", err)
	}
	return tx.Commit()
}
