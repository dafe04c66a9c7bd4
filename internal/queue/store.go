package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"sceneforge/internal/config"
	"sceneforge/internal/render"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("history record not found")

// Store manages render history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "history.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Create inserts a pending record for a submitted render.
func (s *Store) Create(ctx context.Context, id, scene, quality string) (*Record, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO render_history (
            id, scene, quality, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?)`,
		id,
		scene,
		quality,
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert history record: %w", err)
	}

	return s.GetByID(ctx, id)
}

// MarkRendering transitions a record into the rendering state.
func (s *Store) MarkRendering(ctx context.Context, id string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		"UPDATE render_history SET status = ?, updated_at = ? WHERE id = ?",
		StatusRendering, timestamp, id)
	if err != nil {
		return fmt.Errorf("mark rendering: %w", err)
	}
	return requireRow(res)
}

// Finish records the final result of a render.
func (s *Store) Finish(ctx context.Context, id string, result render.Result) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE render_history SET
            status = ?, scene = ?, quality = ?, error_message = ?,
            artifact_path = ?, artifact_size = ?, total_animations = ?,
            duration_ms = ?, log = ?, updated_at = ?
        WHERE id = ?`,
		StatusFromOutcome(result.Outcome),
		result.Scene,
		result.Quality,
		nullableString(result.ErrorMessage),
		nullableString(result.ArtifactPath),
		result.ArtifactSize,
		result.TotalAnimations,
		result.Duration.Milliseconds(),
		nullableString(result.Log),
		timestamp,
		id,
	)
	if err != nil {
		return fmt.Errorf("finish history record: %w", err)
	}
	return requireRow(res)
}

const recordColumns = "id, scene, quality, status, error_message, artifact_path, artifact_size, total_animations, duration_ms, log, created_at, updated_at"

// GetByID fetches a single record. Returns ErrNotFound when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM render_history WHERE id = ?", id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return record, err
}

// List returns the most recent records, newest first. A non-positive limit
// returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]*Record, error) {
	query := "SELECT " + recordColumns + " FROM render_history ORDER BY created_at DESC, id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Clear removes all history records.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM render_history"); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		id              string
		scene           string
		quality         string
		statusStr       string
		errorMessage    sql.NullString
		artifactPath    sql.NullString
		artifactSize    sql.NullInt64
		totalAnimations sql.NullInt64
		durationMS      sql.NullInt64
		logText         sql.NullString
		createdRaw      string
		updatedRaw      string
	)

	if err := scanner.Scan(
		&id,
		&scene,
		&quality,
		&statusStr,
		&errorMessage,
		&artifactPath,
		&artifactSize,
		&totalAnimations,
		&durationMS,
		&logText,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	return &Record{
		ID:              id,
		Scene:           scene,
		Quality:         quality,
		Status:          Status(statusStr),
		ErrorMessage:    errorMessage.String,
		ArtifactPath:    artifactPath.String,
		ArtifactSize:    artifactSize.Int64,
		TotalAnimations: int(totalAnimations.Int64),
		Duration:        time.Duration(durationMS.Int64) * time.Millisecond,
		Log:             logText.String,
		CreatedAt:       parseTimestamp(createdRaw),
		UpdatedAt:       parseTimestamp(updatedRaw),
	}, nil
}

func parseTimestamp(raw string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
