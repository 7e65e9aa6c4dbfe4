package ports

// Hasher computes content digests.
//
//go:generate mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type Hasher interface {
	// ComputeFileHash returns the digest of the file at path.
	ComputeFileHash(path string) (uint64, error)
	// HashBytes returns the digest of b.
	HashBytes(b []byte) uint64
}
