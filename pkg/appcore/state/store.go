// Package state implements the crash-safe State Store: a key-value store
// from app_id to InstallRecord, persisted to a single JSON document via
// write-temp-then-atomic-rename, with a Windows-file-locking retry since
// this toolkit targets Windows hosts.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"winforge/pkg/appcore"

	"github.com/pkg/errors"
)

// document is the on-disk shape of the state file: an object mapping
// app_id to InstallRecord fields.
type document map[string]appcore.InstallRecord

// Store is a single-writer-per-process State Store backed by a JSON file.
// Concurrent processes must serialize externally; within a process Store
// serializes its own mutations with an internal mutex.
type Store struct {
	path string
	mu   sync.Mutex
}

// Open returns a Store backed by path. Open does not read the file; a
// missing or empty file is tolerated by Get/List/Contains, which treat it
// as "no records".
func Open(path string) *Store {
	return &Store{path: path}
}

// Get returns the InstallRecord for app_id, or a KindNotFound AppError.
func (s *Store) Get(appID string) (appcore.InstallRecord, error) {
	doc, err := s.read()
	if err != nil {
		return appcore.InstallRecord{}, err
	}
	rec, ok := doc[appID]
	if !ok {
		return appcore.InstallRecord{}, appcore.NewError(appcore.KindNotFound, "no install record for %q", appID).WithAppID(appID)
	}
	return rec, nil
}

// Contains reports whether app_id has an InstallRecord.
func (s *Store) Contains(appID string) (bool, error) {
	doc, err := s.read()
	if err != nil {
		return false, err
	}
	_, ok := doc[appID]
	return ok, nil
}

// List returns every InstallRecord currently stored, in no particular
// order (the document is a map).
func (s *Store) List() ([]appcore.InstallRecord, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	out := make([]appcore.InstallRecord, 0, len(doc))
	for _, rec := range doc {
		out = append(out, rec)
	}
	return out, nil
}

// MarkInstalled upserts record by app_id and durably commits the full
// document via write-temp-then-rename.
func (s *Store) MarkInstalled(record appcore.InstallRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked()
	if err != nil {
		return err
	}
	doc[record.AppID] = record
	return s.writeLocked(doc)
}

// MarkUninstalled removes app_id's record, if any, and durably commits the
// result.
func (s *Store) MarkUninstalled(appID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked()
	if err != nil {
		return err
	}
	delete(doc, appID)
	return s.writeLocked(doc)
}

func (s *Store) read() (document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

func (s *Store) readLocked() (document, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return document{}, nil
	}
	if err != nil {
		return nil, appcore.NewError(appcore.KindStateStoreError, "read state file: %v", err)
	}
	if len(data) == 0 {
		return document{}, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, appcore.NewError(appcore.KindStateStoreError, "parse state file: %v", err)
	}
	if doc == nil {
		doc = document{}
	}
	return doc, nil
}

// writeLocked marshals doc in full and atomically replaces the canonical
// file: write to a sibling temp file, fsync, then rename over the target.
// A process killed mid-write leaves either the prior document (temp file
// discarded) or the new one (rename is atomic on both POSIX and Win32
// ReplaceFile-backed renames); it never leaves a torn document.
func (s *Store) writeLocked(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return appcore.NewError(appcore.KindStateStoreError, "marshal state file: %v", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return appcore.NewError(appcore.KindStateStoreError, "create state directory: %v", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return appcore.NewError(appcore.KindStateStoreError, "create temp state file: %v", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return appcore.NewError(appcore.KindStateStoreError, "write temp state file: %v", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return appcore.NewError(appcore.KindStateStoreError, "sync temp state file: %v", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return appcore.NewError(appcore.KindStateStoreError, "close temp state file: %v", err)
	}

	if err := renameWithRetry(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return appcore.NewError(appcore.KindStateStoreError, "replace state file: %v", err)
	}
	return nil
}

// renameWithRetry retries os.Rename up to 5 times when it fails with a
// permission error (os.IsPermission, which on Windows covers
// ERROR_ACCESS_DENIED but not ERROR_SHARING_VIOLATION); any other error is
// returned at once. Same pattern installer.go uses when replacing an
// installed package directory.
func renameWithRetry(src, dst string) error {
	var err error
	for attempt := range 5 {
		err = os.Rename(src, dst)
		if err == nil {
			return nil
		}
		if !os.IsPermission(err) {
			return err
		}
		time.Sleep(50 * time.Millisecond * time.Duration(attempt+1))
		if attempt == 4 {
			runtime.GC()
		}
	}
	return errors.Wrap(err, "rename failed after retries")
}
