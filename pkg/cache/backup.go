package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/entrhq/autoanswer/pkg/types"
)

// snapshotVersion is written into every backup file.
const snapshotVersion = "1.0"

// Snapshot is the on-disk backup format.
type Snapshot struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Entries   []Entry   `json:"entries"`
}

// Backup writes every entry to the configured backup path.
// The file is replaced atomically.
func (s *Store) Backup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backupLocked(ctx, s.opts.Now())
}

// BackupTo writes every entry to path.
func (s *Store) BackupTo(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeSnapshot(ctx, path, Snapshot{
		Version:   snapshotVersion,
		CreatedAt: s.opts.Now(),
		Entries:   s.snapshotLocked(),
	})
}

func (s *Store) backupLocked(ctx context.Context, now time.Time) error {
	if s.opts.BackupPath == "" {
		return errNoBackupPath
	}
	snap := Snapshot{Version: snapshotVersion, CreatedAt: now, Entries: s.snapshotLocked()}
	if err := writeSnapshot(ctx, s.opts.BackupPath, snap); err != nil {
		serr := &StorageError{Op: "backup", Err: err}
		s.warn(serr)
		return serr
	}
	s.lastBackup = now
	s.log.Infof("backed up %d cache entries to %s", len(snap.Entries), s.opts.BackupPath)
	return nil
}

// autoBackupLocked runs a backup when the interval has elapsed.
func (s *Store) autoBackupLocked(ctx context.Context, now time.Time) {
	if s.opts.BackupInterval <= 0 || s.opts.BackupPath == "" {
		return
	}
	if !s.lastBackup.IsZero() && now.Sub(s.lastBackup) <= s.opts.BackupInterval {
		return
	}
	_ = s.backupLocked(ctx, now)
}

func writeSnapshot(ctx context.Context, path string, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	// Write to temp file first, then rename for atomic operation
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// ReadSnapshot loads a backup file.
func ReadSnapshot(path string) (Snapshot, error) {
	var snap Snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		return snap, err
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return snap, nil
}

// Restore merges the configured backup file into the cache and returns the
// number of entries restored.
func (s *Store) Restore(ctx context.Context) (int, error) {
	if s.opts.BackupPath == "" {
		return 0, errNoBackupPath
	}
	return s.RestoreFrom(ctx, s.opts.BackupPath)
}

// RestoreFrom merges the snapshot at path into the cache.
//
// Snapshot entries go through the same upsert as Put, keyed by their
// recomputed ID, and keep their creation time and access statistics. An
// entry that already exists keeps the earlier creation time and the larger
// access count, and stays verified when either copy was verified. Restore
// never triggers an automatic backup, so the snapshot being read is left
// untouched.
func (s *Store) RestoreFrom(ctx context.Context, path string) (int, error) {
	snap, err := ReadSnapshot(path)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Now()
	restored := 0
	for _, e := range snap.Entries {
		if err := ctx.Err(); err != nil {
			return restored, err
		}
		q := types.QuestionInfo{
			Type:    e.QuestionType,
			Text:    e.QuestionText,
			Unit:    e.Unit,
			Task:    e.Task,
			SubTask: e.SubTask,
		}
		if _, err := s.upsertLocked(ctx, q, e.CorrectAnswer, e.Confidence, e.Metadata, &e, now); err != nil && !IsStorageError(err) {
			return restored, err
		}
		restored++
	}
	s.log.Infof("restored %d cache entries from %s", restored, path)
	return restored, nil
}
