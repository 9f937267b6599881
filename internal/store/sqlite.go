package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	_ "modernc.org/sqlite"

	"github.com/i474232898/weather-sensor-dashboard/internal/weather"
)

// SQLiteStore keeps the cache in a SQLite table, one row per record.
// seq preserves insertion order across saves.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and applies the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		log.Println("warning: could not set WAL mode:", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS weather_records (
        seq INTEGER PRIMARY KEY,
        date TEXT NOT NULL UNIQUE,
        payload TEXT NOT NULL
    );`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

// Load returns the records in insertion order. Read or decode failures
// are logged and yield an empty cache.
func (s *SQLiteStore) Load(ctx context.Context) []weather.DailyRecord {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM weather_records ORDER BY seq`)
	if err != nil {
		log.Printf("WARN: cannot read weather cache from sqlite, starting empty: %v", err)
		return []weather.DailyRecord{}
	}
	defer rows.Close()

	out := make([]weather.DailyRecord, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			log.Printf("WARN: cannot scan weather cache row, starting empty: %v", err)
			return []weather.DailyRecord{}
		}
		var rec weather.DailyRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			log.Printf("WARN: weather cache row is not valid JSON, starting empty: %v", err)
			return []weather.DailyRecord{}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		log.Printf("WARN: weather cache iteration failed, starting empty: %v", err)
		return []weather.DailyRecord{}
	}
	return out
}

// Save replaces the table contents with records, in slice order.
func (s *SQLiteStore) Save(ctx context.Context, records []weather.DailyRecord) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM weather_records`); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO weather_records(seq, date, payload) VALUES(?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, rec := range records {
		payload, mErr := json.Marshal(rec)
		if mErr != nil {
			err = fmt.Errorf("encode record %s: %w", rec.Date, mErr)
			return err
		}
		if _, err = stmt.ExecContext(ctx, i+1, rec.Date, string(payload)); err != nil {
			return fmt.Errorf("insert record %s: %w", rec.Date, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
