package archive

import (
	"database/sql"

	"codeberg.org/halcyon/robomon/internal/errors"
)

// initSchema initializes the database schema for archived frames
func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS thermal_frames (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            frame_no INTEGER NOT NULL,
            ts TEXT NOT NULL,
            t_min REAL NOT NULL,
            t_max REAL NOT NULL,
            t_mean REAL NOT NULL,
            image_path TEXT
        );
        CREATE TABLE IF NOT EXISTS torque_frames (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            frame_no INTEGER NOT NULL,
            ts TEXT NOT NULL,
            max_diff REAL NOT NULL,
            anomaly INTEGER NOT NULL
        );
    `)
	if err != nil {
		return errors.New().Wrap(ErrStorageInit, err)
	}

	return nil
}

const insertThermalSQL = `
    INSERT INTO thermal_frames (frame_no, ts, t_min, t_max, t_mean, image_path)
    VALUES (?, ?, ?, ?, ?, ?)
`

const insertTorqueSQL = `
    INSERT INTO torque_frames (frame_no, ts, max_diff, anomaly)
    VALUES (?, ?, ?, ?)
`
