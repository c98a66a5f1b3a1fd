package jobs

import (
	"log"
	"os"
	"path/filepath"
	"time"
)

// EvictFunc is invoked by Sweep with the last known record of each job it is
// about to delete. Implementations must not write back into the store.
type EvictFunc func(id string, rec Record)

// Store persists one status record per job.
//
// Put must be atomic with respect to concurrent readers: a Get racing a Put
// returns either the previous or the new record, never a torn one. Get has
// no error return; read failures surface as error-status records and unknown
// ids as the not_found sentinel, which is what pollers relay to callers.
type Store interface {
	Put(id string, rec Record) error
	Get(id string) Record
	// Sweep deletes records strictly older than maxAge and returns how many
	// were removed. Records at exactly the threshold are kept.
	Sweep(maxAge time.Duration, onEvict EvictFunc) (int, error)
}

// Open selects the store backend for the lifetime of the process. It probes
// the job directory with a trial write; if the directory cannot be created
// or written (read-only deployments), it falls back to an in-memory table
// once and never re-probes.
func Open(dir string) Store {
	if err := probeDir(dir); err != nil {
		log.Printf("job dir %s unwritable, falling back to in-memory job store: %v", dir, err)
		return NewMemoryStore()
	}
	return NewFileStore(dir)
}

func probeDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return err
	}
	return os.Remove(probe)
}
