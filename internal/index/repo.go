package index

import (
	"fmt"
	"time"
)

// SessionRow is one catalogued telemetry session.
type SessionRow struct {
	Filename        string
	Checksum        string
	SessionCount    int
	MeanStability   float64
	Variance        float64
	DriftPercentile float64
	IndexedAt       time.Time
}

// UpsertSession inserts or replaces a session's statistics.
func (db *DB) UpsertSession(row SessionRow) error {
	if row.IndexedAt.IsZero() {
		row.IndexedAt = time.Now()
	}
	_, err := db.conn.Exec(`
		INSERT INTO sessions (filename, checksum, session_count, mean_stability, variance, drift_percentile, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET
			checksum         = excluded.checksum,
			session_count    = excluded.session_count,
			mean_stability   = excluded.mean_stability,
			variance         = excluded.variance,
			drift_percentile = excluded.drift_percentile,
			indexed_at       = excluded.indexed_at
	`, row.Filename, row.Checksum, row.SessionCount, row.MeanStability, row.Variance, row.DriftPercentile, row.IndexedAt)
	if err != nil {
		return fmt.Errorf("index: upsert session: %w", err)
	}
	return nil
}

// DeleteSession removes a session from the catalog.
func (db *DB) DeleteSession(filename string) error {
	if _, err := db.conn.Exec(`DELETE FROM sessions WHERE filename = ?`, filename); err != nil {
		return fmt.Errorf("index: delete session: %w", err)
	}
	return nil
}

// GetChecksum returns the stored checksum for a session, or empty string if
// not catalogued.
func (db *DB) GetChecksum(filename string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM sessions WHERE filename = ?`, filename).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// ListSessions returns every catalogued session ordered by filename.
func (db *DB) ListSessions() ([]SessionRow, error) {
	rows, err := db.conn.Query(`
		SELECT filename, checksum, session_count, mean_stability, variance, drift_percentile, indexed_at
		FROM sessions ORDER BY filename
	`)
	if err != nil {
		return nil, fmt.Errorf("index: list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		var row SessionRow
		if err := rows.Scan(&row.Filename, &row.Checksum, &row.SessionCount,
			&row.MeanStability, &row.Variance, &row.DriftPercentile, &row.IndexedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// AllChecksums returns filename -> checksum for every catalogued session.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT filename, checksum FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, cs string
		if err := rows.Scan(&name, &cs); err != nil {
			return nil, err
		}
		out[name] = cs
	}
	return out, rows.Err()
}
