// Package audit is the append-only record of assessment decisions:
// submissions, retake grants, visibility and quota changes, verdict
// releases, violations. Rows are never updated or deleted.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

const (
	EventAttemptSubmitted         = "AttemptSubmitted"
	EventRetakeGranted            = "RetakeGranted"
	EventRetakeRevoked            = "RetakeRevoked"
	EventResultsVisibilityChanged = "ResultsVisibilityChanged"
	EventMaxAttemptsChanged       = "MaxAttemptsChanged"
	EventVerdictReleased          = "VerdictReleased"
	EventViolationRecorded        = "ViolationRecorded"
)

type Event struct {
	Offset    int64  `json:"offset"`
	SiteID    string `json:"site_id"`
	Type      string `json:"type"`
	Key       string `json:"key"` // natural key: attemptID or testID
	DataJSON  string `json:"data"`
	CreatedAt int64  `json:"created_at"`
}

// Log appends events. The zero value is unusable; a nil *Log is a
// valid no-op sink so tests and tools can skip auditing.
type Log struct {
	db     *sql.DB
	siteID string
}

func NewLog(db *sql.DB, siteID string) *Log {
	if siteID == "" {
		siteID = "local"
	}
	return &Log{db: db, siteID: siteID}
}

func (l *Log) Append(ctx context.Context, typ, key string, data interface{}) error {
	if l == nil {
		return nil
	}
	payload := "{}"
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return err
		}
		payload = string(b)
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		l.siteID, typ, key, payload, time.Now().Unix())
	return err
}

// Since returns events at or after the given offset, oldest first.
func (l *Log) Since(ctx context.Context, offset int64, limit int) ([]Event, error) {
	if l == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT "offset", site_id, typ, key, data, created_at FROM event_log
		 WHERE "offset" >= $1 ORDER BY "offset" LIMIT $2`, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Offset, &e.SiteID, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
