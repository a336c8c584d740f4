package sqlite

import (
	"database/sql"
	"fmt"

	"posturemonitor/internal/models"
	"posturemonitor/internal/repository"
)

// LogRepository implements repository.LogStore for SQLite.
type LogRepository struct {
	db *DB
}

// NewLogRepository creates a new SQLite angle log repository.
func NewLogRepository(db *DB) *LogRepository {
	return &LogRepository{db: db}
}

// Append adds a row after every stored row.
func (r *LogRepository) Append(row models.LogRow) error {
	if err := repository.CheckRows(row); err != nil {
		return err
	}

	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec(`
		INSERT INTO angle_log (timestamp, image, side, hip_angle, angle_range, frequency, total_duration)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, row.Timestamp, row.Image, row.Side.String(), row.HipAngle, row.AngleRange, row.Frequency, row.TotalDuration)
	if err != nil {
		return fmt.Errorf("%w: failed to insert row: %w", repository.ErrStorageUnavailable, err)
	}
	return nil
}

// ReadAll returns every row in insertion order.
func (r *LogRepository) ReadAll() ([]models.LogRow, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT timestamp, image, side, hip_angle, angle_range, frequency, total_duration
		FROM angle_log ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query rows: %w", repository.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var result []models.LogRow
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate rows: %w", repository.ErrStorageUnavailable, err)
	}

	return result, nil
}

// ReplaceAll rewrites the log with rows in a single transaction.
func (r *LogRepository) ReplaceAll(rows []models.LogRow) error {
	if err := repository.CheckRows(rows...); err != nil {
		return err
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", repository.ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM angle_log`); err != nil {
		return fmt.Errorf("%w: failed to clear rows: %w", repository.ErrStorageUnavailable, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO angle_log (timestamp, image, side, hip_angle, angle_range, frequency, total_duration)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: failed to prepare statement: %w", repository.ErrStorageUnavailable, err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.Exec(row.Timestamp, row.Image, row.Side.String(), row.HipAngle, row.AngleRange, row.Frequency, row.TotalDuration); err != nil {
			return fmt.Errorf("%w: failed to insert row: %w", repository.ErrStorageUnavailable, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %w", repository.ErrStorageUnavailable, err)
	}
	return nil
}

// Patch updates the counters of the most recent row with the same side and
// timestamp.
func (r *LogRepository) Patch(row models.LogRow) error {
	r.db.Lock()
	defer r.db.Unlock()

	var id int64
	err := r.db.Conn().QueryRow(`
		SELECT id FROM angle_log WHERE side = ? AND timestamp = ?
		ORDER BY id DESC LIMIT 1
	`, row.Side.String(), row.Timestamp).Scan(&id)
	if err == sql.ErrNoRows {
		return repository.ErrRowNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: failed to find row: %w", repository.ErrStorageUnavailable, err)
	}

	if _, err := r.db.Conn().Exec(`
		UPDATE angle_log SET frequency = ?, total_duration = ? WHERE id = ?
	`, row.Frequency, row.TotalDuration, id); err != nil {
		return fmt.Errorf("%w: failed to update row: %w", repository.ErrStorageUnavailable, err)
	}
	return nil
}

func scanRow(rows *sql.Rows) (models.LogRow, error) {
	var row models.LogRow
	var side string
	if err := rows.Scan(&row.Timestamp, &row.Image, &side, &row.HipAngle, &row.AngleRange, &row.Frequency, &row.TotalDuration); err != nil {
		return models.LogRow{}, fmt.Errorf("%w: failed to scan row: %w", repository.ErrStorageUnavailable, err)
	}
	s, err := models.ParseSide(side)
	if err != nil {
		return models.LogRow{}, fmt.Errorf("%w: %w", repository.ErrMalformedRow, err)
	}
	row.Side = s
	return row, nil
}
