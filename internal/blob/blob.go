// Package blob stores record content that exceeds the inline threshold in
// a content-addressed filesystem layout:
//
//	<root>/<pod>/<streamPath>/.storage/<hash>   content, shared across names
//	<root>/<pod>/<streamPath>/<name>            name-link holding the hash
//
// Soft delete removes the name-link; purge removes the hash file.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var ErrNotFound = errors.New("blob not found")

// Tag identifies the filesystem adapter in record storage columns.
const Tag = "fs"

// PutResult reports which artifacts a Put newly created. A failed append
// rolls back exactly those; content and name-links that predate the call
// belong to committed records and must survive.
type PutResult struct {
	Tag            string
	CreatedContent bool
	CreatedName    bool
}

type Store interface {
	Put(ctx context.Context, pod, streamPath, name, contentHash string, data []byte) (PutResult, error)
	Open(ctx context.Context, pod, streamPath, contentHash string) (io.ReadCloser, error)
	DeleteName(ctx context.Context, pod, streamPath, name string) error
	Purge(ctx context.Context, pod, streamPath, contentHash string) error
}

type FSStore struct {
	root string
}

func NewFSStore(root string) (*FSStore, error) {
	if root == "" {
		return nil, errors.New("blob root is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) contentPath(pod, streamPath, contentHash string) string {
	return filepath.Join(s.root, pod, filepath.FromSlash(streamPath), ".storage", contentHash)
}

func (s *FSStore) namePath(pod, streamPath, name string) string {
	return filepath.Join(s.root, pod, filepath.FromSlash(streamPath), name)
}

// Put writes the content file and the name-link. The content file is
// written once per hash; repeated names pointing at the same content share
// it.
func (s *FSStore) Put(_ context.Context, pod, streamPath, name, contentHash string, data []byte) (PutResult, error) {
	var res PutResult
	if strings.Contains(contentHash, "/") || strings.Contains(name, "/") {
		return res, errors.New("invalid blob key")
	}

	contentFile := s.contentPath(pod, streamPath, contentHash)
	if err := os.MkdirAll(filepath.Dir(contentFile), 0o755); err != nil {
		return res, fmt.Errorf("blob put: %w", err)
	}
	if _, err := os.Stat(contentFile); errors.Is(err, fs.ErrNotExist) {
		if err := writeAtomic(contentFile, data); err != nil {
			return res, fmt.Errorf("blob put: %w", err)
		}
		res.CreatedContent = true
	} else if err != nil {
		return res, fmt.Errorf("blob put: %w", err)
	}

	nameFile := s.namePath(pod, streamPath, name)
	if _, err := os.Stat(nameFile); errors.Is(err, fs.ErrNotExist) {
		res.CreatedName = true
	} else if err != nil {
		return res, fmt.Errorf("blob put: %w", err)
	}
	if err := writeAtomic(nameFile, []byte(contentHash)); err != nil {
		return res, fmt.Errorf("blob put: %w", err)
	}
	res.Tag = Tag
	return res, nil
}

func (s *FSStore) Open(_ context.Context, pod, streamPath, contentHash string) (io.ReadCloser, error) {
	f, err := os.Open(s.contentPath(pod, streamPath, contentHash))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("blob open: %w", err)
	}
	return f, nil
}

// DeleteName unlinks the name-link only; the content file stays for other
// names and for the log history.
func (s *FSStore) DeleteName(_ context.Context, pod, streamPath, name string) error {
	err := os.Remove(s.namePath(pod, streamPath, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("blob delete: %w", err)
	}
	return nil
}

// Purge unlinks the content file.
func (s *FSStore) Purge(_ context.Context, pod, streamPath, contentHash string) error {
	err := os.Remove(s.contentPath(pod, streamPath, contentHash))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("blob purge: %w", err)
	}
	return nil
}

// DeleteTree removes everything stored under a stream path. Called on
// stream and pod deletion.
func (s *FSStore) DeleteTree(_ context.Context, pod, streamPath string) error {
	target := filepath.Join(s.root, pod, filepath.FromSlash(streamPath))
	if streamPath == "" {
		target = filepath.Join(s.root, pod)
	}
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("blob delete tree: %w", err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
