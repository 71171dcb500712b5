package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const recordColumns = `id, stream_id, idx, name, path, content, content_type, size, content_hash, hash, previous_hash, user_id, headers, deleted, purged, storage, created_at`

func scanRecord(row interface{ Scan(...any) error }) (*Record, error) {
	var r Record
	var prev, headers, storageTag sql.NullString
	var deleted, purged int
	var created string
	if err := row.Scan(&r.ID, &r.StreamID, &r.Index, &r.Name, &r.Path, &r.Content,
		&r.ContentType, &r.Size, &r.ContentHash, &r.Hash, &prev, &r.UserID,
		&headers, &deleted, &purged, &storageTag, &created); err != nil {
		return nil, err
	}
	r.PreviousHash = prev.String
	r.Headers = decodeHeaders(headers.String)
	r.Deleted = deleted != 0
	r.Purged = purged != 0
	r.Storage = storageTag.String
	r.CreatedAt = parseTime(created)
	return &r, nil
}

// AppendRecord serializes appends to one stream. It locks the stream row,
// reads the chain tail, asks build for the next record, and inserts it in
// the same transaction. build receives lastIndex = -1 and lastHash = ""
// for an empty stream.
func (s *Store) AppendRecord(ctx context.Context, streamID string, build func(lastIndex int64, lastHash string) (*Record, error)) (*Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("append: %w", err)
	}
	defer tx.Rollback()

	if err := s.lockStream(ctx, tx, streamID); err != nil {
		return nil, err
	}

	lastIndex := int64(-1)
	lastHash := ""
	row := tx.QueryRowContext(ctx, s.rebind(
		`SELECT idx, hash FROM record WHERE stream_id = ? ORDER BY idx DESC LIMIT 1`), streamID)
	if err := row.Scan(&lastIndex, &lastHash); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("append: read tail: %w", err)
	}

	rec, err := build(lastIndex, lastHash)
	if err != nil {
		return nil, err
	}

	deleted, purged := 0, 0
	if rec.Deleted {
		deleted = 1
	}
	if rec.Purged {
		purged = 1
	}
	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO record (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		rec.ID, rec.StreamID, rec.Index, rec.Name, rec.Path, rec.Content,
		rec.ContentType, rec.Size, rec.ContentHash, rec.Hash,
		nullIfEmpty(rec.PreviousHash), rec.UserID,
		nullIfEmpty(encodeHeaders(rec.Headers)), deleted, purged,
		nullIfEmpty(rec.Storage), formatTime(rec.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("append: insert: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		s.rebind(`UPDATE stream SET updated_at = ? WHERE id = ?`),
		formatTime(rec.CreatedAt), streamID); err != nil {
		return nil, fmt.Errorf("append: touch stream: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("append: commit: %w", err)
	}
	return rec, nil
}

// lockStream takes the per-stream write lock. Postgres uses a row lock;
// sqlite serializes through its single writer.
func (s *Store) lockStream(ctx context.Context, tx *sql.Tx, streamID string) error {
	query := `SELECT id FROM stream WHERE id = ?`
	if s.dialect == DialectPostgres {
		query += ` FOR UPDATE`
	}
	var id string
	if err := tx.QueryRowContext(ctx, s.rebind(query), streamID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock stream: %w", err)
	}
	return nil
}

// LatestRecordByName returns the highest-index record with the given name,
// deletion markers included.
func (s *Store) LatestRecordByName(ctx context.Context, streamID, name string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+recordColumns+` FROM record
		WHERE stream_id = ? AND name = ?
		ORDER BY idx DESC LIMIT 1`), streamID, name)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

func (s *Store) RecordByIndex(ctx context.Context, streamID string, idx int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+recordColumns+` FROM record WHERE stream_id = ? AND idx = ?`), streamID, idx)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

func (s *Store) CountRecords(ctx context.Context, streamID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT COUNT(*) FROM record WHERE stream_id = ?`), streamID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

// ListRecords returns records with idx >= after, ascending, at most limit.
func (s *Store) ListRecords(ctx context.Context, streamID string, after, limit int64) ([]Record, error) {
	return s.queryRecords(ctx, `
		SELECT `+recordColumns+` FROM record
		WHERE stream_id = ? AND idx >= ?
		ORDER BY idx LIMIT ?`, streamID, after, limit)
}

// RecordRange returns records with start <= idx < end, ascending, at most
// limit.
func (s *Store) RecordRange(ctx context.Context, streamID string, start, end, limit int64) ([]Record, error) {
	return s.queryRecords(ctx, `
		SELECT `+recordColumns+` FROM record
		WHERE stream_id = ? AND idx >= ? AND idx < ?
		ORDER BY idx LIMIT ?`, streamID, start, end, limit)
}

// ListUniqueRecords returns, per name, the highest-index record, excluding
// names whose latest record is deleted and excluding purged rows. Ordered
// by idx ascending.
func (s *Store) ListUniqueRecords(ctx context.Context, streamID string) ([]Record, error) {
	return s.queryRecords(ctx, `
		SELECT `+recordColumns+` FROM record r
		WHERE r.stream_id = ? AND r.deleted = 0 AND r.purged = 0
			AND r.idx = (SELECT MAX(r2.idx) FROM record r2 WHERE r2.stream_id = r.stream_id AND r2.name = r.name)
		ORDER BY r.idx`, streamID)
}

// HasRecordName reports whether any record with the name was ever written
// to the stream. Used for stream/record path collision checks.
func (s *Store) HasRecordName(ctx context.Context, streamID, name string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT 1 FROM record WHERE stream_id = ? AND name = ? LIMIT 1`), streamID, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check record name: %w", err)
	}
	return true, nil
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list records: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// PurgedArtifact identifies blob content left behind by a purged record.
type PurgedArtifact struct {
	ContentHash string
	Storage     string
}

// PurgeRecords blanks the content of every record with the given name
// while keeping hash fields intact for chain verification. It returns the
// external artifacts whose hash files should be unlinked.
func (s *Store) PurgeRecords(ctx context.Context, streamID, name string) ([]PurgedArtifact, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("purge: %w", err)
	}
	defer tx.Rollback()

	if err := s.lockStream(ctx, tx, streamID); err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, s.rebind(`
		SELECT DISTINCT content_hash, storage FROM record
		WHERE stream_id = ? AND name = ? AND purged = 0 AND storage IS NOT NULL`),
		streamID, name)
	if err != nil {
		return nil, fmt.Errorf("purge: select artifacts: %w", err)
	}
	var artifacts []PurgedArtifact
	for rows.Next() {
		var a PurgedArtifact
		if err := rows.Scan(&a.ContentHash, &a.Storage); err != nil {
			rows.Close()
			return nil, fmt.Errorf("purge: scan artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("purge: %w", err)
	}

	res, err := tx.ExecContext(ctx, s.rebind(`
		UPDATE record SET content = NULL, size = 0, purged = 1, storage = NULL
		WHERE stream_id = ? AND name = ?`), streamID, name)
	if err != nil {
		return nil, fmt.Errorf("purge: update: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return nil, ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("purge: commit: %w", err)
	}
	return artifacts, nil
}
