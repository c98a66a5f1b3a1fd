package jobs

import (
	"fmt"
	"sync/atomic"
	"time"
)

// idSeq disambiguates jobs launched within the same second. Seeded from the
// wall clock so ids stay roughly sortable across process restarts.
var idSeq atomic.Uint64

func init() {
	idSeq.Store(uint64(time.Now().UnixMilli()))
}

// NewID returns a job identifier of the form
// {prefix}_{YYYYMMDDHHMMSS}_{n} with n in [0, 10000). The trailing counter
// advances on every call, so back-to-back launches in the same millisecond
// still get distinct ids.
func NewID(prefix string) string {
	if prefix == "" {
		prefix = "job"
	}
	ts := time.Now().Format("20060102150405")
	return fmt.Sprintf("%s_%s_%d", prefix, ts, idSeq.Add(1)%10000)
}
