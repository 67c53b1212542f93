package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind tags the unit of work a job carries. Trawl batches are numbered per
// chunk, so the kind is matched by prefix when routing.
type Kind string

const (
	KindPopulate    Kind = "populate"
	KindCheckSingle Kind = "checkSingle"

	trawlBatchPrefix = "trawlBatch"
)

// KindTrawlBatch names the job kind for chunk n of a trawl run.
func KindTrawlBatch(n int) Kind {
	return Kind(fmt.Sprintf("%s%d", trawlBatchPrefix, n))
}

// IsTrawlBatch reports whether k is any trawl-batch kind.
func (k Kind) IsTrawlBatch() bool {
	return strings.HasPrefix(string(k), trawlBatchPrefix)
}

// Job is a unit of work on the queue: a kind plus a single relay url or a
// batch of them. Jobs are delivered at least once; Attempts counts
// deliveries so handlers can see redelivery.
type Job struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	RelayURL   string    `json:"relay_url,omitempty"`
	RelayURLs  []string  `json:"relay_urls,omitempty"`
	Attempts   int       `json:"attempts"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewJob builds a single-relay job.
func NewJob(kind Kind, url string) *Job {
	return &Job{
		ID:         uuid.NewString(),
		Kind:       kind,
		RelayURL:   url,
		EnqueuedAt: time.Now().UTC(),
	}
}

// NewBatchJob builds a multi-relay job.
func NewBatchJob(kind Kind, urls []string) *Job {
	return &Job{
		ID:         uuid.NewString(),
		Kind:       kind,
		RelayURLs:  urls,
		EnqueuedAt: time.Now().UTC(),
	}
}
