package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const streamColumns = `id, pod_name, parent_id, name, path, user_id, access_permission, metadata, has_schema, created_at, updated_at`

func scanStream(row interface{ Scan(...any) error }) (*Stream, error) {
	var st Stream
	var parent, metadata sql.NullString
	var hasSchema int
	var created, updated string
	if err := row.Scan(&st.ID, &st.PodName, &parent, &st.Name, &st.Path, &st.UserID,
		&st.AccessPermission, &metadata, &hasSchema, &created, &updated); err != nil {
		return nil, err
	}
	st.ParentID = parent.String
	st.Metadata = metadata.String
	st.HasSchema = hasSchema != 0
	st.CreatedAt = parseTime(created)
	st.UpdatedAt = parseTime(updated)
	return &st, nil
}

func (s *Store) CreateStream(ctx context.Context, st *Stream, now time.Time) error {
	var parent any
	if st.ParentID != "" {
		parent = st.ParentID
	}
	hasSchema := 0
	if st.HasSchema {
		hasSchema = 1
	}
	st.CreatedAt = now
	st.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO stream (`+streamColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		st.ID, st.PodName, parent, st.Name, st.Path, st.UserID,
		st.AccessPermission, nullIfEmpty(st.Metadata), hasSchema,
		formatTime(now), formatTime(now))
	if err != nil {
		return fmt.Errorf("create stream: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (s *Store) GetStreamByID(ctx context.Context, id string) (*Stream, error) {
	row := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT `+streamColumns+` FROM stream WHERE id = ?`), id)
	st, err := scanStream(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get stream: %w", err)
	}
	return st, nil
}

func (s *Store) GetStreamByPath(ctx context.Context, podName, path string) (*Stream, error) {
	row := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT `+streamColumns+` FROM stream WHERE pod_name = ? AND path = ?`),
		podName, path)
	st, err := scanStream(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get stream: %w", err)
	}
	return st, nil
}

// ListStreams returns every stream in the pod ordered by materialized path.
func (s *Store) ListStreams(ctx context.Context, podName string) ([]Stream, error) {
	return s.queryStreams(ctx,
		`SELECT `+streamColumns+` FROM stream WHERE pod_name = ? ORDER BY path`, podName)
}

// ListDescendants returns the stream at path and everything below it,
// depth-first by path.
func (s *Store) ListDescendants(ctx context.Context, podName, path string) ([]Stream, error) {
	return s.queryStreams(ctx,
		`SELECT `+streamColumns+` FROM stream WHERE pod_name = ? AND (path = ? OR path LIKE ? || '/%') ORDER BY path`,
		podName, path, path)
}

func (s *Store) queryStreams(ctx context.Context, query string, args ...any) ([]Stream, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list streams: %w", err)
	}
	defer rows.Close()

	var out []Stream
	for rows.Next() {
		st, err := scanStream(rows)
		if err != nil {
			return nil, fmt.Errorf("list streams: %w", err)
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

// DeleteStream removes the stream at path and all its descendants,
// records included. It returns the ids of the removed streams so callers
// can invalidate caches and blob artifacts.
func (s *Store) DeleteStream(ctx context.Context, podName, path string) ([]string, error) {
	descendants, err := s.ListDescendants(ctx, podName, path)
	if err != nil {
		return nil, err
	}
	if len(descendants) == 0 {
		return nil, ErrNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("delete stream: %w", err)
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(descendants))
	for _, st := range descendants {
		ids = append(ids, st.ID)
		if _, err := tx.ExecContext(ctx,
			s.rebind(`DELETE FROM record WHERE stream_id = ?`), st.ID); err != nil {
			return nil, fmt.Errorf("delete stream records: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			s.rebind(`DELETE FROM stream WHERE id = ?`), st.ID); err != nil {
			return nil, fmt.Errorf("delete stream: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("delete stream: %w", err)
	}
	return ids, nil
}
