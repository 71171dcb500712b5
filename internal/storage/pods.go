package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func (s *Store) CreatePod(ctx context.Context, name string, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO pod (name, created_at) SELECT ?, ? WHERE NOT EXISTS (SELECT 1 FROM pod WHERE name = ?)`),
		name, formatTime(now), name)
	if err != nil {
		return fmt.Errorf("create pod: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create pod: %w", err)
	}
	if affected == 0 {
		return ErrExists
	}
	return nil
}

var ErrExists = errors.New("already exists")

func (s *Store) GetPod(ctx context.Context, name string) (*Pod, error) {
	var created string
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT created_at FROM pod WHERE name = ?`), name).Scan(&created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pod: %w", err)
	}
	return &Pod{Name: name, CreatedAt: parseTime(created)}, nil
}

// DeletePod removes the pod and everything under it.
func (s *Store) DeletePod(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete pod: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		s.rebind(`DELETE FROM record WHERE stream_id IN (SELECT id FROM stream WHERE pod_name = ?)`), name); err != nil {
		return fmt.Errorf("delete pod records: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		s.rebind(`DELETE FROM stream WHERE pod_name = ?`), name); err != nil {
		return fmt.Errorf("delete pod streams: %w", err)
	}
	res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM pod WHERE name = ?`), name)
	if err != nil {
		return fmt.Errorf("delete pod: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// PodOwnerRow pairs a pod with the content of its latest owner record, if
// any. The caller decodes the ownership payload.
type PodOwnerRow struct {
	Pod          Pod
	OwnerContent []byte
}

// ListPodsWithOwners returns every pod joined against the latest
// non-deleted record named "owner" in its ".config/owner" stream.
func (s *Store) ListPodsWithOwners(ctx context.Context) ([]PodOwnerRow, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT p.name, p.created_at, r.content
		FROM pod p
		LEFT JOIN stream s ON s.pod_name = p.name AND s.path = '.config/owner'
		LEFT JOIN record r ON r.stream_id = s.id AND r.name = 'owner' AND r.deleted = 0
			AND r.idx = (SELECT MAX(r2.idx) FROM record r2 WHERE r2.stream_id = s.id AND r2.name = 'owner' AND r2.deleted = 0)
		ORDER BY p.name`))
	if err != nil {
		return nil, fmt.Errorf("list pods: %w", err)
	}
	defer rows.Close()

	var out []PodOwnerRow
	for rows.Next() {
		var name, created string
		var content []byte
		if err := rows.Scan(&name, &created, &content); err != nil {
			return nil, fmt.Errorf("list pods: %w", err)
		}
		out = append(out, PodOwnerRow{
			Pod:          Pod{Name: name, CreatedAt: parseTime(created)},
			OwnerContent: content,
		})
	}
	return out, rows.Err()
}

// LookupCustomDomain resolves a custom domain to a pod name via the latest
// non-deleted ".config/domains" record whose name equals the domain.
func (s *Store) LookupCustomDomain(ctx context.Context, domain string) (string, error) {
	var podName string
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT s.pod_name
		FROM stream s
		JOIN record r ON r.stream_id = s.id AND r.name = ? AND r.deleted = 0
			AND r.idx = (SELECT MAX(r2.idx) FROM record r2 WHERE r2.stream_id = s.id AND r2.name = ?)
		WHERE s.path = '.config/domains'
		LIMIT 1`), domain, domain).Scan(&podName)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup domain: %w", err)
	}
	return podName, nil
}
