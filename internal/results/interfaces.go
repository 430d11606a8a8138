package results

import (
	"context"
	"time"
)

// TargetStore persists the crawl-target list. Load returns targets in
// file order; Save replaces the whole list atomically and is invoked
// once per run, after the full scheduling pass.
type TargetStore interface {
	Load(ctx context.Context) ([]Target, error)
	Save(ctx context.Context, targets []Target) error
}

// Fetcher downloads the raw bytes of a source document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Extractor turns document bytes plus monitoring criteria into raw
// structured text (CSV-like rows, possibly wrapped in formatting
// markers the caller must strip).
type Extractor interface {
	Extract(ctx context.Context, document []byte, criteria Criteria) (string, error)
}

// Hasher computes digests for duplicate-document detection.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
