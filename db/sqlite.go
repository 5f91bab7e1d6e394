package db

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"ppg-heartrate/models"
	"ppg-heartrate/utils"

	_ "github.com/mattn/go-sqlite3" // SQLite driver registration
)

// SQLiteClient keeps the history of reported readings.
type SQLiteClient struct {
	db *sql.DB
}

func NewSQLiteClient(dataSourceName string) (*SQLiteClient, error) {
	// Extract the file path before query parameters
	dbPath := dataSourceName
	if idx := strings.Index(dataSourceName, "?"); idx != -1 {
		dbPath = dataSourceName[:idx]
	}

	dbDir := filepath.Dir(dbPath)
	if dbDir != "." && dbDir != "" {
		if err := utils.CreateFolder(dbDir); err != nil {
			return nil, fmt.Errorf("error creating database directory: %s", err)
		}
	}

	// Add busy timeout param to DSN (milliseconds)
	if !strings.Contains(dataSourceName, "_busy_timeout") {
		if strings.Contains(dataSourceName, "?") {
			dataSourceName += "&_busy_timeout=5000"
		} else {
			dataSourceName += "?_busy_timeout=5000"
		}
	}

	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("error connecting to SQLite: %s", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating tables: %s", err)
	}

	return &SQLiteClient{db: db}, nil
}

func createTables(db *sql.DB) error {
	createReadingsTable := `
    CREATE TABLE IF NOT EXISTS readings (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        session_id TEXT NOT NULL,
        device_id TEXT,
        source TEXT NOT NULL,
        completed_at DATETIME NOT NULL,
        bpm INTEGER NOT NULL,
        mode TEXT NOT NULL,
        snr REAL NOT NULL DEFAULT 0,
        stability REAL NOT NULL DEFAULT 0,
        confidence REAL NOT NULL DEFAULT 0,
        saturation REAL NOT NULL DEFAULT 0,
        low_confidence INTEGER NOT NULL DEFAULT 0,
        samples INTEGER NOT NULL DEFAULT 0,
        arousal TEXT,
        latency_ms REAL NOT NULL DEFAULT 0
    );
    CREATE INDEX IF NOT EXISTS idx_readings_completed ON readings(completed_at);
    CREATE INDEX IF NOT EXISTS idx_readings_device ON readings(device_id, completed_at);
    `

	if _, err := db.Exec(createReadingsTable); err != nil {
		return fmt.Errorf("error creating readings table: %s", err)
	}
	return nil
}

func (db *SQLiteClient) Close() error {
	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

// StoreReading stores a reading and returns its id.
func (db *SQLiteClient) StoreReading(r models.Reading) (int64, error) {
	if r.CompletedAt.IsZero() {
		r.CompletedAt = time.Now()
	}

	var arousal *string
	if r.Wellness != nil {
		arousal = &r.Wellness.Level
	}

	lowConfidence := 0
	if r.LowConfidence {
		lowConfidence = 1
	}

	res, err := db.db.Exec(`
		INSERT INTO readings (
			session_id, device_id, source, completed_at, bpm, mode,
			snr, stability, confidence, saturation, low_confidence,
			samples, arousal, latency_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SessionID,
		r.DeviceID,
		r.Source,
		r.CompletedAt.UTC(),
		r.BPM,
		r.Mode,
		r.SNR,
		r.Stability,
		r.Confidence,
		r.Saturation,
		lowConfidence,
		r.Samples,
		arousal,
		r.LatencyMs,
	)
	if err != nil {
		return 0, fmt.Errorf("error storing reading: %s", err)
	}
	return res.LastInsertId()
}

// RecentReadings returns up to limit readings, newest first. A non-empty
// deviceID restricts the result to that device.
func (db *SQLiteClient) RecentReadings(deviceID string, limit int) ([]models.Reading, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, session_id, device_id, source, completed_at, bpm, mode,
		       snr, stability, confidence, saturation, low_confidence,
		       samples, arousal, latency_ms
		FROM readings`
	args := []interface{}{}
	if deviceID != "" {
		query += ` WHERE device_id = ?`
		args = append(args, deviceID)
	}
	query += ` ORDER BY completed_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying readings: %s", err)
	}
	defer rows.Close()

	readings := []models.Reading{}
	for rows.Next() {
		var r models.Reading
		var device, arousal sql.NullString
		var lowConfidence int

		err := rows.Scan(
			&r.ID,
			&r.SessionID,
			&device,
			&r.Source,
			&r.CompletedAt,
			&r.BPM,
			&r.Mode,
			&r.SNR,
			&r.Stability,
			&r.Confidence,
			&r.Saturation,
			&lowConfidence,
			&r.Samples,
			&arousal,
			&r.LatencyMs,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning reading: %s", err)
		}

		r.DeviceID = device.String
		r.LowConfidence = lowConfidence == 1
		if arousal.Valid {
			r.Wellness = &models.Wellness{Level: arousal.String}
		}
		readings = append(readings, r)
	}

	return readings, rows.Err()
}
