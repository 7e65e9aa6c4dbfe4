package ports

import "time"

// Digest describes an output file as last written.
type Digest struct {
	Sum     uint64    `json:"sum"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// DigestStore remembers the digest of every output written by the pipeline.
//
//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type DigestStore interface {
	// Lookup returns the recorded digest for path.
	Lookup(path string) (Digest, bool)
	// Record stores the digest for path.
	Record(path string, d Digest)
	// Save persists the recorded digests.
	Save() error
}

// DigestStoreOpener opens the digest store persisted at path.
type DigestStoreOpener func(path string) (DigestStore, error)
