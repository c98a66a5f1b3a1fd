package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileStore persists one {id}.json file per job in a flat directory. Writes
// go to a temp file and are renamed into place, so a concurrent reader never
// observes a partial record. A write that fails after the initial probe
// succeeded (disk full, permissions flipped) lands that record in the
// overflow table instead; reads and sweeps consult both.
type FileStore struct {
	dir      string
	overflow *MemoryStore
	now      func() time.Time
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir, overflow: NewMemoryStore(), now: time.Now}
}

func (f *FileStore) path(id string) string {
	return filepath.Join(f.dir, id+".json")
}

func (f *FileStore) Put(id string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal job record: %w", err)
	}
	if err := writeAtomic(f.dir, f.path(id), data); err != nil {
		// Keep the record rather than losing the update or crashing the
		// owning task. The stale file, if any, is removed best-effort;
		// reads prefer the overflow copy either way.
		log.Printf("write job record %s failed, keeping in memory: %v", id, err)
		_ = os.Remove(f.path(id))
		return f.overflow.Put(id, rec)
	}
	// Latest write wins: the disk copy supersedes any earlier overflow copy.
	f.overflow.delete(id)
	return nil
}

func (f *FileStore) Get(id string) Record {
	// An overflow entry, when present, is always the latest write for the
	// id: a successful disk write deletes it. Checking it first keeps a
	// stale file from shadowing a fresher record when the stale-file
	// removal in Put failed too.
	if rec, ok := f.overflow.lookup(id); ok {
		return rec
	}
	data, err := os.ReadFile(f.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return notFound()
		}
		log.Printf("read job record %s: %v", id, err)
		return readError(fmt.Sprintf("Could not read job status: %v", err))
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Printf("parse job record %s: %v", id, err)
		return readError(fmt.Sprintf("Could not read job status: %v", err))
	}
	return rec
}

func (f *FileStore) Sweep(maxAge time.Duration, onEvict EvictFunc) (int, error) {
	cutoff := f.now().Add(-maxAge)
	removed := 0
	var errs []error

	// A failed directory scan must not starve the overflow sweep.
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		errs = append(errs, fmt.Errorf("scan job dir: %w", err))
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			errs = append(errs, fmt.Errorf("stat %s: %w", name, err))
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(f.dir, name)
		if onEvict != nil {
			var rec Record
			if data, err := os.ReadFile(path); err == nil && json.Unmarshal(data, &rec) == nil {
				onEvict(strings.TrimSuffix(name, ".json"), rec)
			}
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", name, err))
			continue
		}
		removed++
	}

	n, err := f.overflow.Sweep(maxAge, onEvict)
	if err != nil {
		errs = append(errs, err)
	}
	return removed + n, errors.Join(errs...)
}

// writeAtomic writes data to a sibling temp file and renames it into place.
func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}
